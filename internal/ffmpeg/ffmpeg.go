package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/ZacxDev/shrinkvid/internal/config"
	"github.com/ZacxDev/shrinkvid/internal/logging"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// VideoMetadata contains metadata about a video file
type VideoMetadata struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Codec    string
}

// Options configures a Processor. Binary paths are resolved by the caller.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Encoder     config.Encoder
	Verbose     bool
	Logger      zerolog.Logger
}

// Processor wraps FFmpeg functionality
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	encoder     config.Encoder
	verbose     bool
	log         zerolog.Logger
}

// NewProcessor creates a new FFmpeg processor
func NewProcessor(opts Options) *Processor {
	ffmpegPath := strings.TrimSpace(opts.FFmpegPath)
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	ffprobePath := strings.TrimSpace(opts.FFprobePath)
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		encoder:     opts.Encoder,
		verbose:     opts.Verbose,
		log:         opts.Logger,
	}
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	NBFrames     string `json:"nb_frames"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
}

// GetVideoMetadata runs ffprobe against inputPath
func (p *Processor) GetVideoMetadata(ctx context.Context, inputPath string) (*VideoMetadata, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", inputPath)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, errors.Wrapf(err, "error probing video: %s", lastLine(string(exitErr.Stderr)))
		}
		return nil, errors.Wrap(err, "error probing video")
	}

	metadata, err := ParseProbe(output)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str(logging.FieldFile, inputPath).
		Float64("duration", metadata.Duration).
		Int("width", metadata.Width).
		Int("height", metadata.Height).
		Float64("fps", metadata.FPS).
		Str("codec", metadata.Codec).
		Msg("probed source")

	return metadata, nil
}

// ParseProbe extracts VideoMetadata from ffprobe JSON output
func ParseProbe(data []byte) (*VideoMetadata, error) {
	var probe probeResult
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "parse ffprobe output")
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no streams found in video")
	}

	var videoStream *probeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			videoStream = &probe.Streams[i]
			break
		}
	}

	if videoStream == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	fps := parseRate(videoStream.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(videoStream.RFrameRate)
	}

	// First try video stream duration
	duration := parseSeconds(videoStream.Duration)

	// If stream duration is not available, try format duration
	if duration == 0 {
		duration = parseSeconds(probe.Format.Duration)
	}

	// If still no duration found, try calculating from frames and frame rate
	if duration == 0 && fps > 0 {
		if frames, err := strconv.ParseFloat(strings.TrimSpace(videoStream.NBFrames), 64); err == nil {
			duration = frames / fps
		}
	}

	if duration == 0 {
		return nil, fmt.Errorf("could not determine video duration")
	}

	if videoStream.Width < 2 || videoStream.Height < 2 {
		return nil, fmt.Errorf("invalid video dimensions %dx%d", videoStream.Width, videoStream.Height)
	}

	return &VideoMetadata{
		Duration: duration,
		Width:    videoStream.Width,
		Height:   videoStream.Height,
		FPS:      fps,
		Codec:    videoStream.CodecName,
	}, nil
}

func parseSeconds(s string) float64 {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0
	}
	return d
}

// parseRate reads ffprobe rationals such as "30000/1001"
func parseRate(rate string) float64 {
	nums := strings.Split(strings.TrimSpace(rate), "/")
	switch len(nums) {
	case 1:
		return parseSeconds(nums[0])
	case 2:
		num, err1 := strconv.ParseFloat(nums[0], 64)
		den, err2 := strconv.ParseFloat(nums[1], 64)
		if err1 == nil && err2 == nil && den != 0 && num > 0 {
			return num / den
		}
	}
	return 0
}

// GetOptimalThreadCount returns the thread count used when none is configured
func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}
