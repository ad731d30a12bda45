package ffmpeg

import (
	"regexp"
	"strings"
)

const stderrTailBytes = 4096

// Stderr patterns that mean the destination itself is unusable, so every
// later attempt would fail the same way.
var (
	reNoSpace  = regexp.MustCompile(`(?i)No space left on device|Disk quota exceeded`)
	reDenied   = regexp.MustCompile(`(?i)Permission denied|Operation not permitted`)
	reReadOnly = regexp.MustCompile(`(?i)Read-only file system`)
)

// EncodeError is returned when an ffmpeg run exits unsuccessfully
type EncodeError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	if line := lastLine(e.Stderr); line != "" {
		return "ffmpeg: " + e.Err.Error() + ": " + line
	}
	return "ffmpeg: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Systemic reports whether the failure was caused by the output location
// rather than the particular encode.
func (e *EncodeError) Systemic() bool {
	return MatchSystemic(e.Stderr)
}

// MatchSystemic reports whether stderr contains a destination I/O failure
func MatchSystemic(stderr string) bool {
	return reNoSpace.MatchString(stderr) ||
		reDenied.MatchString(stderr) ||
		reReadOnly.MatchString(stderr)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
