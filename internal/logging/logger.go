// Package logging builds the diagnostic zerolog logger. User facing progress
// lines go through processor.Status instead.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Structured field names shared across packages
const (
	FieldBatchID = "batch_id"
	FieldFile    = "file"
	FieldState   = "state"
)

// Options controls logger construction
type Options struct {
	Level   string
	Format  string // console or json
	Verbose bool   // forces debug
	NoColor bool
}

// New returns a logger writing to w
func New(w io.Writer, opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
		level = parsed
	}
	if opts.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    opts.NoColor,
			TimeFormat: time.Kitchen,
		}
	case "json":
	default:
		return zerolog.Nop(), errors.Errorf("unsupported log format %q", opts.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
