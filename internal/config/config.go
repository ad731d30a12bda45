package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// CompressOptions defines options for one compression batch
type CompressOptions struct {
	InputPaths   []string
	OutputDir    string
	TargetSizeMB int
	TargetBytes  int64 // overrides TargetSizeMB when non-zero
}

// TargetSize returns the byte budget for every file in the batch
func (o *CompressOptions) TargetSize() int64 {
	if o.TargetBytes > 0 {
		return o.TargetBytes
	}
	return int64(o.TargetSizeMB) * BytesPerMB
}

const (
	// Sizes are reported and budgeted in binary megabytes
	BytesPerMB = 1024 * 1024

	DefaultTargetSizeMB = 10

	// Fraction of the naive bit budget actually spent; the rest absorbs
	// container overhead and rate-control overshoot
	SafetyMargin = 0.9
	AudioShare   = 0.05

	// Compression ratio thresholds for the ladder start
	TinyBudgetRatio  = 0.1 // start at 480
	SmallBudgetRatio = 0.3 // start at 720

	TinyBudgetStartHeight  = 480
	SmallBudgetStartHeight = 720

	// Output name prefix and temp suffix
	OutputPrefix   = "compressed_"
	TempSuffix     = "_temp"
	OutputFormat   = "mp4"
	OutputExt      = ".mp4"
	LockFileName   = ".shrinkvid.lock"
	ConfigFileName = "config.toml"
	AppName        = "shrinkvid"
)

// Ladder is the descending sequence of candidate output heights
var Ladder = []int{1080, 720, 576, 480, 360, 240}

// Config is the on-disk configuration. Every field is optional.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Compress Compress `toml:"compress"`
	Encoder  Encoder  `toml:"encoder"`
	Logging  Logging  `toml:"logging"`
}

// Paths holds external binary locations and the default output folder
type Paths struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	OutputDir string `toml:"output_dir"`
}

// Compress holds batch defaults
type Compress struct {
	TargetMB int    `toml:"target_mb"`
	Preset   string `toml:"preset"`
}

// Encoder holds the fixed encoder profile used for every attempt
type Encoder struct {
	VideoCodec  string  `toml:"video_codec"`
	AudioCodec  string  `toml:"audio_codec"`
	SpeedPreset string  `toml:"speed_preset"`
	Threads     int     `toml:"threads"` // 0 picks a count from the CPU
	Profile     string  `toml:"profile"`
	Level       string  `toml:"level"`
	PixFmt      string  `toml:"pix_fmt"`
	MaxFPS      float64 `toml:"max_fps"`
}

// Logging holds diagnostic log settings
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Compress: Compress{
			TargetMB: DefaultTargetSizeMB,
		},
		Encoder: Encoder{
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			SpeedPreset: "medium",
			Threads:     4,
			Profile:     "main",
			Level:       "4.0",
			PixFmt:      "yuv420p",
			MaxFPS:      30,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(dir, AppName, ConfigFileName), nil
}

// Load reads path over the defaults. An empty path means the default
// location, where a missing file is fine; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate rejects values no encode could run with
func (c *Config) Validate() error {
	if c.Compress.TargetMB <= 0 {
		return errors.Errorf("compress.target_mb must be positive, got %d", c.Compress.TargetMB)
	}
	if c.Encoder.Threads < 0 {
		return errors.Errorf("encoder.threads must not be negative, got %d", c.Encoder.Threads)
	}
	if c.Encoder.MaxFPS <= 0 {
		return errors.Errorf("encoder.max_fps must be positive, got %v", c.Encoder.MaxFPS)
	}
	for name, v := range map[string]string{
		"encoder.video_codec":  c.Encoder.VideoCodec,
		"encoder.audio_codec":  c.Encoder.AudioCodec,
		"encoder.speed_preset": c.Encoder.SpeedPreset,
		"encoder.pix_fmt":      c.Encoder.PixFmt,
	} {
		if strings.TrimSpace(v) == "" {
			return errors.Errorf("%s must not be empty", name)
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return errors.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
