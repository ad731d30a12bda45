package processor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/logging"
	"github.com/ZacxDev/shrinkvid/pkg/types"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrBatchLocked is returned when another batch holds the output folder
var ErrBatchLocked = errors.New("output folder is in use by another batch")

// Batch compresses a list of files one after another into a single folder
type Batch struct {
	id         string
	compressor *Compressor
	outputDir  string
	log        zerolog.Logger
}

// NewBatch creates a batch writing into outputDir
func NewBatch(compressor *Compressor, outputDir string, log zerolog.Logger) *Batch {
	id := uuid.NewString()
	return &Batch{
		id:         id,
		compressor: compressor,
		outputDir:  outputDir,
		log:        log.With().Str(logging.FieldBatchID, id).Logger(),
	}
}

// ID returns the batch identifier carried in every log line
func (b *Batch) ID() string {
	return b.id
}

// OutputPath is where the compressed copy of inputPath is written
func OutputPath(outputDir, inputPath string) string {
	return filepath.Join(outputDir, config.OutputPrefix+filepath.Base(inputPath))
}

// Start runs the batch on a background goroutine. The status channel is
// closed when the batch ends, after which exactly one Summary is sent.
// Callers must drain the status channel; setup errors arrive in
// Summary.Err.
func (b *Batch) Start(ctx context.Context, inputs []string) (<-chan Status, <-chan types.Summary) {
	statuses := make(chan Status, 64)
	done := make(chan types.Summary, 1)

	go func() {
		summary, _ := b.Run(ctx, inputs, func(s Status) {
			statuses <- s
		})
		close(statuses)
		done <- summary
		close(done)
	}()

	return statuses, done
}

// Run compresses every input in order and returns one result per distinct
// input. A file failing never stops the batch; only setup errors are
// returned.
func (b *Batch) Run(ctx context.Context, inputs []string, sink Sink) (types.Summary, error) {
	summary := types.Summary{
		BatchID:    b.id,
		TargetSize: b.compressor.TargetSize(),
	}
	report := reporter{sink: sink}

	files := dedupe(inputs)
	if len(files) == 0 {
		summary.Err = ErrNoInputs
		return summary, ErrNoInputs
	}

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		err = withKind(ErrSystemicIO, errors.Wrap(err, "create output directory"))
		summary.Err = err
		return summary, err
	}

	lock := flock.New(filepath.Join(b.outputDir, config.LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		err = errors.Wrap(err, "acquire output folder lock")
		summary.Err = err
		return summary, err
	}
	if !ok {
		err = errors.Wrap(ErrBatchLocked, b.outputDir)
		summary.Err = err
		return summary, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			b.log.Warn().Err(err).Msg("failed to release output folder lock")
			return
		}
		if err := removeIfExists(lock.Path()); err != nil {
			b.log.Debug().Err(err).Msg("failed to remove lock file")
		}
	}()

	b.log.Info().
		Int("files", len(files)).
		Str("output_dir", b.outputDir).
		Int64("target_bytes", b.compressor.TargetSize()).
		Msg("batch started")
	report.info("Processing %d files", len(files))

	claimed := make(map[string]string, len(files))
	for _, input := range files {
		output := OutputPath(b.outputDir, input)
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, types.FileResult{
				InputPath:  input,
				OutputPath: output,
				Outcome:    types.OutcomeSkipped,
				Err:        ctx.Err(),
			})
			continue
		}

		fileReport := reporter{file: input, sink: sink}
		if prev, taken := claimed[output]; taken {
			err := withKind(ErrOutputCollision, errors.Errorf("%s and %s both write %s", prev, input, filepath.Base(output)))
			summary.Results = append(summary.Results, types.FileResult{
				InputPath:  input,
				OutputPath: output,
				Outcome:    types.OutcomeFailed,
				Err:        err,
			})
			fileReport.error("Error processing %s: %v", filepath.Base(input), err)
			continue
		}
		claimed[output] = input

		fileReport.info("Processing file: %s", input)

		res := b.compressOne(ctx, input, output, sink)
		summary.Results = append(summary.Results, res)

		switch res.Outcome {
		case types.OutcomeSucceeded:
			fileReport.info("File %s done", filepath.Base(input))
		case types.OutcomeExhausted:
			fileReport.warn("File %s could not be compressed to the target size", filepath.Base(input))
		default:
			fileReport.error("Error processing %s: %v", filepath.Base(input), res.Err)
		}
	}

	report.info("All files processed: %d succeeded, %d exhausted, %d failed, %d skipped",
		summary.Count(types.OutcomeSucceeded),
		summary.Count(types.OutcomeExhausted),
		summary.Count(types.OutcomeFailed),
		summary.Count(types.OutcomeSkipped))

	b.log.Info().
		Int("succeeded", summary.Count(types.OutcomeSucceeded)).
		Int("exhausted", summary.Count(types.OutcomeExhausted)).
		Int("failed", summary.Count(types.OutcomeFailed)).
		Int("skipped", summary.Count(types.OutcomeSkipped)).
		Msg("batch finished")

	return summary, nil
}

// compressOne isolates a panicking session so the rest of the batch runs
func (b *Batch) compressOne(ctx context.Context, input, output string, sink Sink) (res types.FileResult) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str(logging.FieldFile, input).Msg("session panicked")
			res = types.FileResult{
				InputPath:  input,
				OutputPath: output,
				Outcome:    types.OutcomeFailed,
				Err:        errors.Errorf("internal error: %v", r),
			}
			_ = removeIfExists(TempPath(output))
		}
	}()
	return b.compressor.Compress(ctx, input, output, sink)
}

// dedupe drops repeated inputs, keeping first-seen order
func dedupe(inputs []string) []string {
	seen := make(map[string]bool, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in == "" {
			continue
		}
		key := filepath.Clean(in)
		if abs, err := filepath.Abs(in); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, in)
	}
	return out
}
