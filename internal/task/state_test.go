package task

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StatePending, "pending"},
		{StateInitiating, "initiating"},
		{StateRunning, "running"},
		{StateReady, "ready"},
		{StateFinished, "finished"},
		{State(99), "state(99)"},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q\n%s", c.state, got, c.want, spew.Sdump(c))
		}
	}
}

func TestStopReasonFinished(t *testing.T) {
	r := Finished()
	if r.Kind() != StopFinished {
		t.Fatalf("Kind() = %v, want StopFinished", r.Kind())
	}
	if _, ok := r.TerminateReason(); ok {
		t.Errorf("TerminateReason() ok = true for a Finished reason")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestStopReasonTerminated(t *testing.T) {
	r := Terminated(TerminateTimeout)
	if r.Kind() != StopTerminated {
		t.Fatalf("Kind() = %v, want StopTerminated", r.Kind())
	}
	reason, ok := r.TerminateReason()
	if !ok || reason != TerminateTimeout {
		t.Errorf("TerminateReason() = (%v, %v), want (TerminateTimeout, true)", reason, ok)
	}
}

func TestStopReasonErrored(t *testing.T) {
	cause := errors.New("boom")
	r := Errored(cause)
	if r.Kind() != StopError {
		t.Fatalf("Kind() = %v, want StopError", r.Kind())
	}
	if !errors.Is(r.Err(), cause) {
		t.Errorf("Err() = %v, want wrapping %v", r.Err(), cause)
	}
}
