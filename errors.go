package rtms

import (
	"errors"
	"fmt"
)

// Status is a result code returned by the native SDK.
type Status int32

const (
	StatusFailure       Status = -1
	StatusOK            Status = 0
	StatusTimeout       Status = 1
	StatusNotExist      Status = 2
	StatusWrongType     Status = 3
	StatusInvalidStatus Status = 4
	StatusInvalidArgs   Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFailure:
		return "FAILURE"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusNotExist:
		return "NOT_EXIST"
	case StatusWrongType:
		return "WRONG_TYPE"
	case StatusInvalidStatus:
		return "INVALID_STATUS"
	case StatusInvalidArgs:
		return "INVALID_ARGS"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

func (s Status) text() string {
	switch s {
	case StatusFailure:
		return "operation failed"
	case StatusTimeout:
		return "operation timed out"
	case StatusNotExist:
		return "resource does not exist"
	case StatusWrongType:
		return "wrong type"
	case StatusInvalidStatus:
		return "invalid status"
	case StatusInvalidArgs:
		return "invalid arguments"
	default:
		return fmt.Sprintf("unknown error code %d", int32(s))
	}
}

// Error is a non-OK result from a native SDK call.
type Error struct {
	Op     string
	Status Status
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Status.text())
}

// Code returns the numeric native result code.
func (e *Error) Code() int { return int(e.Status) }

// Is matches any *Error carrying the same status, so callers can test
// errors.Is(err, ErrTimeout) regardless of the operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Status == e.Status && (t.Op == "" || t.Op == e.Op)
}

// Sentinels for errors.Is.
var (
	ErrFailure       = &Error{Status: StatusFailure}
	ErrTimeout       = &Error{Status: StatusTimeout}
	ErrNotExist      = &Error{Status: StatusNotExist}
	ErrWrongType     = &Error{Status: StatusWrongType}
	ErrInvalidStatus = &Error{Status: StatusInvalidStatus}
	ErrInvalidArgs   = &Error{Status: StatusInvalidArgs}
)

var (
	// ErrInvalidParams wraps every local parameter validation failure.
	ErrInvalidParams = errors.New("invalid parameters")

	ErrLibraryNotFound  = errors.New("rtms native library not found")
	ErrAllocFailed      = errors.New("rtms_alloc returned NULL")
	ErrReleased         = errors.New("session released")
	ErrAlreadyJoined    = errors.New("session already joined")
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

// check translates a native result code. OK never produces an error.
func check(op string, code int32) error {
	if Status(code) == StatusOK {
		return nil
	}
	return &Error{Op: op, Status: Status(code)}
}
