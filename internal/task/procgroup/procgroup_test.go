package procgroup

import (
	"os/exec"
	"testing"
	"time"
)

func TestFallbackGroupSignalsOnlyTheAssignedPid(t *testing.T) {
	g := New(false)
	if g.Active() {
		t.Fatal("Active() = true before Assign")
	}

	cmd := exec.Command("sleep", "30")
	g.Wrap(cmd)
	if err := cmd.Start(); err != nil {
		t.Fatalf("cmd.Start() = %v", err)
	}
	if err := g.Assign(cmd.Process.Pid); err != nil {
		t.Fatalf("Assign() = %v", err)
	}
	if !g.Active() {
		t.Fatal("Active() = false after Assign")
	}

	if err := g.Broadcast(ActionStop); err != nil {
		t.Fatalf("Broadcast(ActionStop) = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Broadcast(ActionStop)")
	}

	if err := g.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	if g.Active() {
		t.Error("Active() = true after Close")
	}
}

func TestActionString(t *testing.T) {
	cases := map[Action]string{
		ActionStop:      "stop",
		ActionPause:     "pause",
		ActionResume:    "resume",
		ActionInterrupt: "interrupt",
	}
	for action, want := range cases {
		if got := action.String(); got != want {
			t.Errorf("Action(%d).String() = %q, want %q", action, got, want)
		}
	}
}
