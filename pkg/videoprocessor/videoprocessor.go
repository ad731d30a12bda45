// Package videoprocessor wires configuration, ffmpeg and the compression
// pipeline together for the command line.
package videoprocessor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/display"
	"github.com/ZacxDev/shrinkvid/internal/ffmpeg"
	"github.com/ZacxDev/shrinkvid/internal/logging"
	"github.com/ZacxDev/shrinkvid/internal/platform"
	"github.com/ZacxDev/shrinkvid/internal/processor"
	"github.com/ZacxDev/shrinkvid/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrIncomplete is returned by Compress when at least one file failed or
// was skipped
var ErrIncomplete = errors.New("not every file was processed")

// Options are the command line settings. Zero values fall back to the
// config file, then to built-in defaults.
type Options struct {
	ConfigPath  string
	FFmpegPath  string
	FFprobePath string
	OutputDir   string
	TargetMB    int
	Target      string // human size such as "8MiB"; wins over everything
	Preset      string
	Verbose     bool
	LogFormat   string
	NoColor     bool

	Stdout io.Writer
	Stderr io.Writer
}

// VideoProcessor runs compression batches
type VideoProcessor struct {
	cfg     config.Config
	opts    Options
	log     zerolog.Logger
	printer *display.Printer
	target  int64
	ffmpeg  *ffmpeg.Processor
}

// New loads configuration and prepares logging. ffmpeg binaries are
// resolved on first use.
func New(opts Options) (*VideoProcessor, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logFormat := cfg.Logging.Format
	if opts.LogFormat != "" {
		logFormat = opts.LogFormat
	}
	log, err := logging.New(opts.Stderr, logging.Options{
		Level:   cfg.Logging.Level,
		Format:  logFormat,
		Verbose: opts.Verbose,
		NoColor: opts.NoColor || !display.ShouldColorize(opts.Stderr),
	})
	if err != nil {
		return nil, err
	}

	target, err := ResolveTargetSize(cfg, opts)
	if err != nil {
		return nil, err
	}

	colorize := !opts.NoColor && display.ShouldColorize(opts.Stdout)
	return &VideoProcessor{
		cfg:     cfg,
		opts:    opts,
		log:     log,
		printer: display.NewPrinter(opts.Stdout, colorize),
		target:  target,
	}, nil
}

// TargetSize returns the resolved per-file byte budget
func (vp *VideoProcessor) TargetSize() int64 {
	return vp.target
}

// ResolveTargetSize applies --target, then --preset, then --target-mb, then
// the config file's preset and target_mb.
func ResolveTargetSize(cfg config.Config, opts Options) (int64, error) {
	if s := strings.TrimSpace(opts.Target); s != "" {
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid target size %q", s)
		}
		if n == 0 {
			return 0, errors.Errorf("target size must be positive, got %q", s)
		}
		if n > math.MaxInt64 {
			return 0, errors.Errorf("target size %q is too large", s)
		}
		return int64(n), nil
	}
	if opts.Preset != "" {
		return presetSize(opts.Preset)
	}
	if opts.TargetMB < 0 {
		return 0, errors.Errorf("target size must be positive, got %d MB", opts.TargetMB)
	}
	if opts.TargetMB > 0 {
		o := config.CompressOptions{TargetSizeMB: opts.TargetMB}
		return o.TargetSize(), nil
	}
	if cfg.Compress.Preset != "" {
		return presetSize(cfg.Compress.Preset)
	}
	o := config.CompressOptions{TargetSizeMB: cfg.Compress.TargetMB}
	return o.TargetSize(), nil
}

func presetSize(name string) (int64, error) {
	p, err := platform.Get(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return 0, errors.Wrapf(err, "choose one of %s", strings.Join(platform.GetSupportedPlatforms(), ", "))
	}
	return p.GetMaxFileSize(), nil
}

func (vp *VideoProcessor) processor() (*ffmpeg.Processor, error) {
	if vp.ffmpeg != nil {
		return vp.ffmpeg, nil
	}

	ffmpegPath := vp.cfg.Paths.FFmpeg
	if vp.opts.FFmpegPath != "" {
		ffmpegPath = vp.opts.FFmpegPath
	}
	ffprobePath := vp.cfg.Paths.FFprobe
	if vp.opts.FFprobePath != "" {
		ffprobePath = vp.opts.FFprobePath
	}

	resolvedFFmpeg, err := ffmpeg.ResolveBinary("ffmpeg", ffmpegPath)
	if err != nil {
		return nil, err
	}
	resolvedFFprobe, err := ffmpeg.ResolveBinary("ffprobe", ffprobePath)
	if err != nil {
		return nil, err
	}

	vp.log.Debug().
		Str("ffmpeg", resolvedFFmpeg).
		Str("ffprobe", resolvedFFprobe).
		Msg("resolved binaries")

	vp.ffmpeg = ffmpeg.NewProcessor(ffmpeg.Options{
		FFmpegPath:  resolvedFFmpeg,
		FFprobePath: resolvedFFprobe,
		Encoder:     vp.cfg.Encoder,
		Logger:      vp.log,
	})
	return vp.ffmpeg, nil
}

func (vp *VideoProcessor) outputDir() (string, error) {
	dir := vp.opts.OutputDir
	if dir == "" {
		dir = vp.cfg.Paths.OutputDir
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("output folder is required (--output or paths.output_dir)")
	}
	return dir, nil
}

// Compress runs a batch over inputs, printing progress as it goes
func (vp *VideoProcessor) Compress(ctx context.Context, inputs []string) (types.Summary, error) {
	outDir, err := vp.outputDir()
	if err != nil {
		return types.Summary{}, err
	}
	proc, err := vp.processor()
	if err != nil {
		return types.Summary{}, err
	}

	opts := config.CompressOptions{
		InputPaths:  inputs,
		OutputDir:   outDir,
		TargetBytes: vp.target,
	}
	return vp.compress(ctx, proc, proc, opts)
}

func (vp *VideoProcessor) compress(ctx context.Context, prober processor.Prober, enc processor.Encoder, opts config.CompressOptions) (types.Summary, error) {
	compressor := processor.NewCompressor(prober, enc, opts.TargetSize(), vp.log)
	batch := processor.NewBatch(compressor, opts.OutputDir, vp.log)

	statuses, done := batch.Start(ctx, opts.InputPaths)
	for s := range statuses {
		vp.printer.Status(s)
	}
	summary := <-done
	if summary.Err != nil {
		return summary, summary.Err
	}

	vp.printer.Summary(summary)

	if n := summary.Count(types.OutcomeFailed) + summary.Count(types.OutcomeSkipped); n > 0 {
		return summary, errors.Wrapf(ErrIncomplete, "%d of %d files", n, len(summary.Results))
	}
	return summary, nil
}

// Probe prints the plan each input would get, without encoding
func (vp *VideoProcessor) Probe(ctx context.Context, inputs []string) ([]processor.Preview, error) {
	proc, err := vp.processor()
	if err != nil {
		return nil, err
	}
	return vp.probe(ctx, proc, inputs)
}

func (vp *VideoProcessor) probe(ctx context.Context, prober processor.Prober, inputs []string) ([]processor.Preview, error) {
	if len(inputs) == 0 {
		return nil, processor.ErrNoInputs
	}

	compressor := processor.NewCompressor(prober, nil, vp.target, vp.log)
	var (
		previews []processor.Preview
		failed   int
	)
	for _, input := range inputs {
		pv, err := compressor.Preview(ctx, input)
		if err != nil {
			failed++
			vp.printer.Status(processor.Status{File: input, Level: processor.LevelError, Message: fmt.Sprintf("%s: %v", input, err)})
			continue
		}
		previews = append(previews, pv)
		vp.printer.Preview(pv)
	}
	if failed > 0 {
		return previews, errors.Wrapf(ErrIncomplete, "%d of %d files", failed, len(inputs))
	}
	return previews, nil
}

// Preset describes one named size ceiling
type Preset struct {
	Name        string
	Description string
	MaxFileSize int64
}

// GetSupportedPlatforms returns every size preset in name order
func GetSupportedPlatforms() []Preset {
	names := platform.GetSupportedPlatforms()
	presets := make([]Preset, 0, len(names))
	for _, name := range names {
		p, err := platform.Get(name)
		if err != nil {
			continue
		}
		presets = append(presets, Preset{
			Name:        p.GetName(),
			Description: p.GetDescription(),
			MaxFileSize: p.GetMaxFileSize(),
		})
	}
	return presets
}
