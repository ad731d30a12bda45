package processor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ZacxDev/shrinkvid/internal/ffmpeg"
	"github.com/pkg/errors"
)

// Encoder runs one re-encode. *ffmpeg.Processor satisfies it.
type Encoder interface {
	Encode(ctx context.Context, job ffmpeg.EncodeJob) error
}

// AttemptJob is everything one ladder rung needs
type AttemptJob struct {
	InputPath  string
	TempPath   string
	Candidate  Candidate
	Budget     BitrateBudget
	TargetSize int64
	SourceFPS  float64
}

// EncodeResult is the outcome of one rung. When Succeeded is false the temp
// file has already been removed.
type EncodeResult struct {
	OutputPath string
	OutputSize int64
	Succeeded  bool
	// Err is set when no measurable output was produced
	Err error
	// Systemic marks failures that doom every later rung too
	Systemic bool
}

// Attempt encodes one candidate into job.TempPath and measures it against
// the budget.
func Attempt(ctx context.Context, enc Encoder, job AttemptJob) EncodeResult {
	res := EncodeResult{OutputPath: job.TempPath}

	if err := os.MkdirAll(filepath.Dir(job.TempPath), 0755); err != nil {
		res.Err = withKind(ErrSystemicIO, errors.Wrap(err, "create output directory"))
		res.Systemic = true
		return res
	}

	err := enc.Encode(ctx, ffmpeg.EncodeJob{
		InputPath:    job.InputPath,
		OutputPath:   job.TempPath,
		Width:        job.Candidate.Width,
		Height:       job.Candidate.Height,
		VideoBitrate: job.Budget.VideoBPS,
		AudioBitrate: job.Budget.AudioBPS,
		SourceFPS:    job.SourceFPS,
	})
	if err != nil {
		res.Err = withKind(ErrEncoderFailure, err)
		var encErr *ffmpeg.EncodeError
		if (errors.As(err, &encErr) && encErr.Systemic()) || isSystemicIO(err) {
			res.Err = withKind(ErrSystemicIO, err)
			res.Systemic = true
		}
		if rmErr := removeIfExists(job.TempPath); rmErr != nil {
			res.Err = withKind(ErrSystemicIO, errors.Wrapf(rmErr, "remove partial output after %v", err))
			res.Systemic = true
		}
		return res
	}

	info, err := os.Stat(job.TempPath)
	if err != nil {
		if os.IsNotExist(err) {
			res.Err = withKind(ErrEncoderFailure, errors.Errorf("encoder produced no output at %s", job.TempPath))
		} else {
			res.Err = withKind(ErrSystemicIO, errors.Wrap(err, "stat encoded output"))
			res.Systemic = true
		}
		return res
	}

	res.OutputSize = info.Size()
	res.Succeeded = res.OutputSize <= job.TargetSize
	if !res.Succeeded {
		if err := removeIfExists(job.TempPath); err != nil {
			res.Err = withKind(ErrSystemicIO, errors.Wrap(err, "remove oversized output"))
			res.Systemic = true
		}
	}
	return res
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
