package processor

import "fmt"

// Level grades a status line for display
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Status is one human readable progress line
type Status struct {
	File    string
	Level   Level
	Message string
}

// Sink receives status lines in order. It is called from the batch goroutine.
type Sink func(Status)

type reporter struct {
	file string
	sink Sink
}

func (r reporter) emit(level Level, format string, args ...interface{}) {
	if r.sink == nil {
		return
	}
	r.sink(Status{File: r.file, Level: level, Message: fmt.Sprintf(format, args...)})
}

func (r reporter) info(format string, args ...interface{}) {
	r.emit(LevelInfo, format, args...)
}

func (r reporter) warn(format string, args ...interface{}) {
	r.emit(LevelWarn, format, args...)
}

func (r reporter) error(format string, args ...interface{}) {
	r.emit(LevelError, format, args...)
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

func kbps(bps int64) int64 {
	return bps / 1000
}
