package task

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// ErrorKind is the closed set of error kinds reported at the engine boundary.
type ErrorKind int32

const (
	// ErrInvalidConfiguration: config failed validation.
	ErrInvalidConfiguration ErrorKind = iota
	// ErrIO: pipe or spawn syscall failure.
	ErrIO
	// ErrHandle: unable to obtain child handle (pid missing) or attach to group/job.
	ErrHandle
	// ErrChannel: event or cancellation channel closed unexpectedly.
	ErrChannel
	// ErrControl: control operation in wrong state or OS call failed.
	ErrControl
	// ErrCustom: catch-all.
	ErrCustom
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidConfiguration:
		return "invalid_configuration"
	case ErrIO:
		return "io"
	case ErrHandle:
		return "handle"
	case ErrChannel:
		return "channel"
	case ErrControl:
		return "control"
	case ErrCustom:
		return "custom"
	default:
		return fmt.Sprintf("error_kind(%d)", int32(k))
	}
}

// Error is the typed error returned at the engine boundary and wrapped into
// Error events. Detail carries a human-readable message; Cause, if non-nil,
// is the underlying error (e.g. the *exec.ExitError or *os.PathError).
type Error struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, task.ErrKind(task.ErrControl)) style matching via
// a sentinel wrapper, see ErrKind below.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*kindSentinel)
	if !ok {
		return false
	}
	return e.Kind == sentinel.kind
}

type kindSentinel struct{ kind ErrorKind }

func (s *kindSentinel) Error() string { return "task error kind: " + s.kind.String() }

// ErrKind returns a sentinel error usable with errors.Is to test an Error's Kind:
//
//	if errors.Is(err, task.ErrKind(task.ErrControl)) { ... }
func ErrKind(k ErrorKind) error { return &kindSentinel{kind: k} }

func newError(kind ErrorKind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// DebugDump renders the full error chain for diagnostics, including a spew
// dump of the deepest cause. Intended for logs and test failure output, not
// for the user-facing Error() string.
func (e *Error) DebugDump() string {
	var b []byte
	b = append(b, fmt.Sprintf("[%s] %s\n", e.Kind, e.Detail)...)
	if e.Cause != nil {
		b = append(b, spew.Sdump(e.Cause)...)
	}
	return string(b)
}
