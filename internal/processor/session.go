package processor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/ffmpeg"
	"github.com/ZacxDev/shrinkvid/internal/logging"
	"github.com/ZacxDev/shrinkvid/pkg/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Prober extracts source metadata. *ffmpeg.Processor satisfies it.
type Prober interface {
	GetVideoMetadata(ctx context.Context, inputPath string) (*ffmpeg.VideoMetadata, error)
}

// State is a session's position in the compression state machine
type State int

const (
	StateIdle State = iota
	StateProbing
	StatePlanning
	StateTrying
	StateSucceeded
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StatePlanning:
		return "planning"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Compressor shrinks single files to a fixed byte budget
type Compressor struct {
	prober     Prober
	encoder    Encoder
	targetSize int64
	log        zerolog.Logger
}

// NewCompressor creates a compressor for targetSize bytes
func NewCompressor(prober Prober, encoder Encoder, targetSize int64, log zerolog.Logger) *Compressor {
	return &Compressor{
		prober:     prober,
		encoder:    encoder,
		targetSize: targetSize,
		log:        log,
	}
}

// TargetSize returns the byte budget
func (c *Compressor) TargetSize() int64 {
	return c.targetSize
}

// TempPath is the scratch file for outputPath. It sits in the same
// directory so the final rename never crosses filesystems.
func TempPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+config.TempSuffix+config.OutputExt)
}

type session struct {
	c          *Compressor
	inputPath  string
	outputPath string
	tempPath   string
	state      State
	attempt    int
	report     reporter
	log        zerolog.Logger
	result     types.FileResult
}

// Compress walks the resolution ladder for one file and writes the first
// encode that fits the budget to outputPath. Failures are reported in the
// result; only the temp file is ever written until a candidate is accepted.
func (c *Compressor) Compress(ctx context.Context, inputPath, outputPath string, sink Sink) types.FileResult {
	s := &session{
		c:          c,
		inputPath:  inputPath,
		outputPath: outputPath,
		tempPath:   TempPath(outputPath),
		state:      StateIdle,
		report:     reporter{file: inputPath, sink: sink},
		log:        c.log.With().Str(logging.FieldFile, inputPath).Logger(),
		result: types.FileResult{
			InputPath:  inputPath,
			OutputPath: outputPath,
		},
	}

	start := time.Now()
	s.run(ctx)
	s.result.Elapsed = time.Since(start)
	return s.result
}

func (s *session) transition(to State) {
	s.log.Debug().
		Stringer("from", s.state).
		Stringer(logging.FieldState, to).
		Int("attempt", s.attempt).
		Msg("session state")
	s.state = to
}

func (s *session) fail(err error) {
	s.transition(StateFailed)
	s.result.Outcome = types.OutcomeFailed
	s.result.Err = err
	s.log.Warn().Err(err).Msg("compression failed")
}

func (s *session) run(ctx context.Context) {
	accepted := false
	defer func() {
		if accepted {
			return
		}
		if err := removeIfExists(s.tempPath); err != nil {
			s.log.Error().Err(err).Str("temp", s.tempPath).Msg("failed to remove temp file")
		}
	}()

	s.transition(StateProbing)
	src, err := probeSource(ctx, s.c.prober, s.inputPath)
	if err != nil {
		s.fail(err)
		return
	}
	s.result.OriginalSize = src.OriginalSizeBytes

	s.transition(StatePlanning)
	budget, ratio, err := Plan(src, s.c.targetSize)
	if err != nil {
		s.fail(err)
		return
	}

	s.report.info("Original size: %.2fMB", megabytes(src.OriginalSizeBytes))
	s.report.info("Original bitrate: %dkbps", int64(src.OriginalBitrate()/1000))
	s.report.info("Target total bitrate: %dkbps", kbps(budget.TotalBPS))
	s.report.info("Target video bitrate: %dkbps", kbps(budget.VideoBPS))
	s.report.info("Target audio bitrate: %dkbps", kbps(budget.AudioBPS))
	s.report.info("Compression ratio: %.2f%%", ratio*100)

	s.log.Info().
		Int64("target_bytes", s.c.targetSize).
		Int64("video_bps", budget.VideoBPS).
		Int64("audio_bps", budget.AudioBPS).
		Float64("ratio", ratio).
		Msg("planned budget")

	if err := os.MkdirAll(filepath.Dir(s.outputPath), 0755); err != nil {
		s.fail(withKind(ErrSystemicIO, errors.Wrap(err, "create output directory")))
		return
	}

	var (
		oversized int
		lastErr   error
	)
	ladder := NewLadder(src, ratio)
	for {
		cand, ok := ladder.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			s.fail(errors.Wrap(err, "cancelled"))
			return
		}

		s.transition(StateTrying)
		s.attempt++
		s.result.Attempts = s.attempt

		s.report.info("Trying resolution: %s", cand)
		s.report.info("Video bitrate: %dkbps", kbps(budget.VideoBPS))
		s.report.info("Audio bitrate: %dkbps", kbps(budget.AudioBPS))

		res := Attempt(ctx, s.c.encoder, AttemptJob{
			InputPath:  s.inputPath,
			TempPath:   s.tempPath,
			Candidate:  cand,
			Budget:     budget,
			TargetSize: s.c.targetSize,
			SourceFPS:  src.FPS,
		})

		if res.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.fail(errors.Wrap(ctxErr, "cancelled"))
				return
			}
			s.report.error("Error at resolution %s: %v", cand, res.Err)
			if res.Systemic {
				s.fail(res.Err)
				return
			}
			lastErr = res.Err
			ev := s.log.Debug().Err(res.Err).Stringer("resolution", cand)
			var encErr *ffmpeg.EncodeError
			if errors.As(res.Err, &encErr) {
				ev = ev.Str("stderr", encErr.Stderr)
			}
			ev.Msg("attempt failed, trying next resolution")
			continue
		}

		s.report.info("Current file size: %.2f MB", megabytes(res.OutputSize))

		if !res.Succeeded {
			oversized++
			s.log.Debug().
				Stringer("resolution", cand).
				Int64("size", res.OutputSize).
				Msg("output over budget")
			continue
		}

		if err := s.accept(); err != nil {
			s.fail(err)
			return
		}
		accepted = true

		s.transition(StateSucceeded)
		s.result.Outcome = types.OutcomeSucceeded
		s.result.OutputSize = res.OutputSize
		s.result.Width = cand.Width
		s.result.Height = cand.Height
		s.report.info("Compressed to target size, final resolution: %s", cand)
		s.log.Info().
			Stringer("resolution", cand).
			Int64("size", res.OutputSize).
			Int("attempts", s.attempt).
			Msg("compressed")
		return
	}

	if oversized == 0 && lastErr != nil {
		s.fail(lastErr)
		return
	}

	s.transition(StateExhausted)
	s.result.Outcome = types.OutcomeExhausted
	s.report.warn("Could not reach %.2fMB at any resolution, file left unconverted", megabytes(s.c.targetSize))
	s.log.Info().Int("attempts", s.attempt).Msg("ladder exhausted")
}

// probeSource stats and probes inputPath
func probeSource(ctx context.Context, prober Prober, inputPath string) (SourceMetadata, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return SourceMetadata{}, withKind(ErrInputNotFound, err)
		}
		return SourceMetadata{}, withKind(ErrUnreadableSource, err)
	}
	if info.IsDir() {
		return SourceMetadata{}, withKind(ErrUnreadableSource, errors.Errorf("%s is a directory", inputPath))
	}

	md, err := prober.GetVideoMetadata(ctx, inputPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SourceMetadata{}, errors.Wrap(ctxErr, "cancelled")
		}
		return SourceMetadata{}, withKind(ErrUnreadableSource, err)
	}

	return SourceMetadata{
		Width:             md.Width,
		Height:            md.Height,
		DurationSeconds:   md.Duration,
		OriginalSizeBytes: info.Size(),
		FPS:               md.FPS,
	}, nil
}

// Preview is a dry run of one session: what would be tried, without encoding
type Preview struct {
	InputPath  string
	Source     SourceMetadata
	Budget     BitrateBudget
	Ratio      float64
	Candidates []Candidate
}

// Preview probes inputPath and plans it against the compressor's target
func (c *Compressor) Preview(ctx context.Context, inputPath string) (Preview, error) {
	pv := Preview{InputPath: inputPath}

	src, err := probeSource(ctx, c.prober, inputPath)
	if err != nil {
		return pv, err
	}
	pv.Source = src

	budget, ratio, err := Plan(src, c.targetSize)
	if err != nil {
		return pv, err
	}
	pv.Budget = budget
	pv.Ratio = ratio
	pv.Candidates = Candidates(src, ratio)
	return pv, nil
}

// accept moves the temp file over the final output. Both live in the same
// directory, so the rename replaces any previous output atomically.
func (s *session) accept() error {
	if err := os.Rename(s.tempPath, s.outputPath); err != nil {
		return withKind(ErrSystemicIO, errors.Wrap(err, "move output into place"))
	}
	return nil
}
