package task

import (
	"errors"
	"testing"
)

func TestErrorIs(t *testing.T) {
	cause := errors.New("underlying")
	err := newError(ErrIO, "pipe broke", cause)

	if !errors.Is(err, ErrKind(ErrIO)) {
		t.Errorf("errors.Is(err, ErrKind(ErrIO)) = false, want true")
	}
	if errors.Is(err, ErrKind(ErrHandle)) {
		t.Errorf("errors.Is(err, ErrKind(ErrHandle)) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true, Unwrap chain broken")
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(ErrControl, "task already finished", nil)
	if got := err.Error(); got == "" {
		t.Errorf("Error() returned empty string")
	}
}

func TestErrorDebugDump(t *testing.T) {
	err := newError(ErrIO, "pipe broke", errors.New("underlying"))
	dump := err.DebugDump()
	if dump == "" {
		t.Errorf("DebugDump() returned empty string")
	}
}
