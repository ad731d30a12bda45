package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/logging"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// EncodeJob describes one scaled, bitrate-capped re-encode
type EncodeJob struct {
	InputPath    string
	OutputPath   string
	Width        int
	Height       int
	VideoBitrate int64 // bits per second
	AudioBitrate int64 // bits per second
	SourceFPS    float64
}

// OutputFPS caps the source frame rate at the configured maximum. Zero means
// the source rate is unknown and ffmpeg keeps whatever it detects.
func (p *Processor) OutputFPS(sourceFPS float64) float64 {
	if sourceFPS <= 0 {
		return 0
	}
	if sourceFPS > p.encoder.MaxFPS {
		return p.encoder.MaxFPS
	}
	return sourceFPS
}

func (p *Processor) threads() int {
	if p.encoder.Threads > 0 {
		return p.encoder.Threads
	}
	return GetOptimalThreadCount()
}

// BuildArgs returns the ffmpeg argument list for job, without the binary
func (p *Processor) BuildArgs(job EncodeJob) []string {
	outputKwargs := ffmpeg.KwArgs{
		"c:v":      p.encoder.VideoCodec,
		"c:a":      p.encoder.AudioCodec,
		"b:v":      strconv.FormatInt(job.VideoBitrate, 10),
		"b:a":      strconv.FormatInt(job.AudioBitrate, 10),
		"vf":       fmt.Sprintf("scale=%d:%d", job.Width, job.Height),
		"preset":   p.encoder.SpeedPreset,
		"threads":  p.threads(),
		"pix_fmt":  p.encoder.PixFmt,
		"movflags": "+faststart",
		"f":        config.OutputFormat,
	}
	if p.encoder.Profile != "" {
		outputKwargs["profile:v"] = p.encoder.Profile
	}
	if p.encoder.Level != "" {
		outputKwargs["level"] = p.encoder.Level
	}
	if fps := p.OutputFPS(job.SourceFPS); fps > 0 {
		outputKwargs["r"] = strconv.FormatFloat(fps, 'f', -1, 64)
	}

	return ffmpeg.Input(job.InputPath).
		Output(job.OutputPath, outputKwargs).
		OverWriteOutput().
		GetArgs()
}

// Encode runs ffmpeg for job. Cancelling ctx kills the process.
func (p *Processor) Encode(ctx context.Context, job EncodeJob) error {
	args := p.BuildArgs(job)

	p.log.Debug().
		Str(logging.FieldFile, job.InputPath).
		Strs("args", args).
		Msg("running ffmpeg")

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderrBuf bytes.Buffer
	if p.verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &EncodeError{
			Args:   args,
			Stderr: tail(stderrBuf.String(), stderrTailBytes),
			Err:    err,
		}
	}
	return nil
}
