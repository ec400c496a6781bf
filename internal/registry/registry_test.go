package registry

import (
	"context"
	"testing"
	"time"

	"github.com/xpcn2015/tcrm/internal/task"
)

func waitForState(t *testing.T, r *Registry, name string, want task.State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		info, err := r.Status(context.Background(), name)
		if err != nil {
			t.Fatalf("Status() = %v", err)
		}
		if info.State == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("task %q did not reach state %v within %v", name, want, timeout)
}

func TestRegistryStartStatusStop(t *testing.T) {
	r := New(nil)
	cfg := task.NewConfiguration("sh").WithArgs("-c", "sleep 30")

	if err := r.Start("demo", cfg, 32); err != nil {
		t.Fatalf("Start() = %v", err)
	}

	waitForState(t, r, "demo", task.StateRunning, 2*time.Second)

	if err := r.Stop("demo"); err != nil {
		t.Fatalf("Stop() = %v", err)
	}

	waitForState(t, r, "demo", task.StateFinished, 5*time.Second)
}

func TestRegistryStartDuplicateNameFails(t *testing.T) {
	r := New(nil)
	cfg := task.NewConfiguration("sh").WithArgs("-c", "sleep 30")

	if err := r.Start("demo", cfg, 32); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := r.Start("demo", cfg, 32); err != ErrExists {
		t.Errorf("second Start() = %v, want ErrExists", err)
	}
	_ = r.Stop("demo")
}

func TestRegistryStatusUnknownName(t *testing.T) {
	r := New(nil)
	if _, err := r.Status(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("Status() = %v, want ErrNotFound", err)
	}
}

func TestRegistryLogsCollectsOutput(t *testing.T) {
	r := New(nil)
	cfg := task.NewConfiguration("sh").WithArgs("-c", "echo one; echo two")

	if err := r.Start("logger", cfg, 32); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	waitForState(t, r, "logger", task.StateFinished, 5*time.Second)

	lines, err := r.Logs("logger", 10)
	if err != nil {
		t.Fatalf("Logs() = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Logs() returned %d lines, want 2: %v", len(lines), lines)
	}
	if lines[0].Text != "two" || lines[1].Text != "one" {
		t.Errorf("Logs() = %v, want newest-first [two, one]", lines)
	}
}

func TestRegistryRemoveRequiresFinished(t *testing.T) {
	r := New(nil)
	cfg := task.NewConfiguration("sh").WithArgs("-c", "sleep 30")
	if err := r.Start("demo", cfg, 32); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	waitForState(t, r, "demo", task.StateRunning, 2*time.Second)

	if err := r.Remove("demo"); err == nil {
		t.Error("Remove() on a running task = nil, want error")
	}

	_ = r.Stop("demo")
	waitForState(t, r, "demo", task.StateFinished, 5*time.Second)

	if err := r.Remove("demo"); err != nil {
		t.Errorf("Remove() on a finished task = %v, want nil", err)
	}
	if err := r.Start("demo", cfg, 32); err != nil {
		t.Errorf("Start() after Remove() = %v, want nil (name reusable)", err)
	}
	_ = r.Stop("demo")
}
