package processor

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// Per-file failure kinds. Match with errors.Is.
var (
	ErrInputNotFound    = errors.New("input file not found")
	ErrUnreadableSource = errors.New("unreadable source")
	ErrInvalidBudget    = errors.New("invalid budget")
	ErrEncoderFailure   = errors.New("encoder failure")
	ErrSystemicIO       = errors.New("systemic I/O failure")
	ErrNoInputs         = errors.New("no video files selected")
	ErrOutputCollision  = errors.New("output name already used in this batch")
)

// kindError tags an underlying cause with one of the kinds above
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.err
}

func withKind(kind, err error) error {
	return errors.WithStack(&kindError{kind: kind, err: err})
}

// isSystemicIO reports filesystem errors that no later attempt could avoid
func isSystemicIO(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) {
		return true
	}
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EROFS) ||
		errors.Is(err, syscall.EACCES)
}
