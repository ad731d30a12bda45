package types

import "time"

// Outcome is the terminal state of one file in a batch
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeExhausted Outcome = "exhausted" // no resolution met the budget
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped" // batch cancelled before the file started
)

// FileResult reports what happened to one input
type FileResult struct {
	InputPath    string
	OutputPath   string
	Outcome      Outcome
	Err          error
	OriginalSize int64
	OutputSize   int64 // zero unless succeeded
	Width        int
	Height       int
	Attempts     int
	Elapsed      time.Duration
}

// Summary is delivered once per batch
type Summary struct {
	BatchID    string
	TargetSize int64
	Results    []FileResult
	// Err is set when the batch could not run at all
	Err error
}

// Count returns how many results ended with o
func (s Summary) Count(o Outcome) int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// AllSucceeded reports whether every file reached its target
func (s Summary) AllSucceeded() bool {
	return len(s.Results) > 0 && s.Count(OutcomeSucceeded) == len(s.Results)
}
