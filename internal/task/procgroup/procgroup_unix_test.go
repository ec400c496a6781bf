//go:build unix

package procgroup

import (
	"os/exec"
	"testing"
	"time"
)

func TestUnixGroupBroadcastStop(t *testing.T) {
	g := newPlatformGroup()
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
}

func TestUnixGroupBroadcastWithoutAssignFails(t *testing.T) {
	g := newPlatformGroup()
	if err := g.Broadcast(ActionStop); err != ErrNotActive {
		t.Errorf("Broadcast() = %v, want ErrNotActive", err)
	}
}

func TestSignalPIDOnReapedProcessIsNotAnError(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Start(); err != nil {
		t.Fatalf("cmd.Start() = %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("cmd.Wait() = %v", err)
	}
	if err := SignalPID(pid, ActionStop); err != nil {
		t.Errorf("SignalPID() on an already-reaped pid = %v, want nil (ESRCH treated as success)", err)
	}
}
