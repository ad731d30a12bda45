package processor

import (
	"fmt"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"golang.org/x/exp/slices"
)

// Candidate is one output resolution to try
type Candidate struct {
	Width  int
	Height int
}

func (c Candidate) String() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// StartIndex picks the first ladder rung for a compression ratio. Small
// budgets skip the rungs that are almost certain to overshoot.
func StartIndex(ratio float64) int {
	switch {
	case ratio < config.TinyBudgetRatio:
		return slices.Index(config.Ladder, config.TinyBudgetStartHeight)
	case ratio < config.SmallBudgetRatio:
		return slices.Index(config.Ladder, config.SmallBudgetStartHeight)
	default:
		return 0
	}
}

// Ladder yields candidates in descending order, one per call to Next.
// It is single use; build a new one to walk again.
type Ladder struct {
	src     SourceMetadata
	heights []int
	pos     int
	prev    Candidate
}

// NewLadder returns the candidate walk for src at the given ratio
func NewLadder(src SourceMetadata, ratio float64) *Ladder {
	return &Ladder{
		src:     src,
		heights: config.Ladder[StartIndex(ratio):],
	}
}

// Next returns the next candidate. Rungs above the source collapse onto the
// source resolution, so no candidate is produced twice in a row.
func (l *Ladder) Next() (Candidate, bool) {
	for l.pos < len(l.heights) {
		c := Dimensions(l.src, l.heights[l.pos])
		l.pos++
		if c == l.prev {
			continue
		}
		l.prev = c
		return c, true
	}
	return Candidate{}, false
}

// Candidates collects the full walk
func Candidates(src SourceMetadata, ratio float64) []Candidate {
	l := NewLadder(src, ratio)
	var out []Candidate
	for {
		c, ok := l.Next()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

// Dimensions scales src to the ladder height while keeping its aspect
// ratio. Both sides are even and never larger than the source. Scaling uses
// integer floor division so exact ratios such as 16:9 stay exact.
func Dimensions(src SourceMetadata, height int) Candidate {
	sw, sh := src.Width, src.Height
	if sw < 1 || sh < 1 {
		return Candidate{Width: 2, Height: 2}
	}

	var w, h int
	if sh > sw {
		// Portrait: settle the height first
		h = min(height, sh)
		w = evenFloor(h * sw / sh)
		h = evenFloor(w * sh / sw)
	} else {
		w = min(height*sw/sh, sw)
		h = evenFloor(w * sh / sw)
		w = evenFloor(h * sw / sh)
	}

	w = min(w, evenFloor(sw))
	h = min(h, evenFloor(sh))

	return Candidate{
		Width:  max(w, 2),
		Height: max(h, 2),
	}
}

func evenFloor(n int) int {
	return n - n%2
}
