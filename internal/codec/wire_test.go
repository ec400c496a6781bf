package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/xpcn2015/tcrm/internal/task"
)

func TestConfigurationRoundTrip(t *testing.T) {
	cfg := task.NewConfiguration("sh").
		WithArgs("-c", "echo hi").
		WithWorkingDir("/tmp").
		WithEnv(map[string]string{"FOO": "bar"}).
		WithTimeout(3 * time.Second).
		WithStdin(true).
		WithReadyIndicator("ready", task.SourceStderr).
		WithProcessGroup(false)

	decoded, err := DecodeConfiguration(EncodeConfiguration(cfg))
	if err != nil {
		t.Fatalf("DecodeConfiguration() = %v", err)
	}

	if decoded.Command() != cfg.Command() {
		t.Errorf("Command() = %q, want %q", decoded.Command(), cfg.Command())
	}
	if len(decoded.Args()) != 2 || decoded.Args()[1] != "echo hi" {
		t.Errorf("Args() = %v, want %v", decoded.Args(), cfg.Args())
	}
	if decoded.WorkingDir() != "/tmp" {
		t.Errorf("WorkingDir() = %q, want /tmp", decoded.WorkingDir())
	}
	if decoded.Env()["FOO"] != "bar" {
		t.Errorf("Env()[FOO] = %q, want bar", decoded.Env()["FOO"])
	}
	if decoded.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", decoded.Timeout())
	}
	if !decoded.EnableStdin() {
		t.Errorf("EnableStdin() = false, want true")
	}
	if decoded.ReadyIndicator() != "ready" || decoded.ReadyIndicatorSource() != task.SourceStderr {
		t.Errorf("ready indicator mismatch: %q/%v", decoded.ReadyIndicator(), decoded.ReadyIndicatorSource())
	}
	if decoded.IsProcessGroupEnabled() {
		t.Errorf("IsProcessGroupEnabled() = true, want false")
	}
}

func TestConfigurationRoundTripMinimal(t *testing.T) {
	cfg := task.NewConfiguration("echo")
	decoded, err := DecodeConfiguration(EncodeConfiguration(cfg))
	if err != nil {
		t.Fatalf("DecodeConfiguration() = %v", err)
	}
	if decoded.Command() != "echo" {
		t.Errorf("Command() = %q, want echo", decoded.Command())
	}
	if decoded.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", decoded.Timeout())
	}
}

func TestDecodeConfigurationRequiresCommand(t *testing.T) {
	if _, err := DecodeConfiguration(nil); err == nil {
		t.Fatal("DecodeConfiguration(nil) = nil error, want missing-command error")
	}
}

func TestStopReasonRoundTrip(t *testing.T) {
	cases := []task.StopReason{
		task.Finished(),
		task.Terminated(task.TerminateTimeout),
		task.Errored(errors.New("boom")),
	}
	for _, r := range cases {
		decoded, err := DecodeStopReason(EncodeStopReason(r))
		if err != nil {
			t.Fatalf("DecodeStopReason() = %v", err)
		}
		if decoded.Kind() != r.Kind() {
			t.Errorf("Kind() = %v, want %v", decoded.Kind(), r.Kind())
		}
	}
}

func TestEventRoundTripStarted(t *testing.T) {
	ev := task.Event{
		Kind:      task.EventStarted,
		TaskID:    uuid.New(),
		ProcessID: 4242,
		CreatedAt: time.Now().Truncate(time.Millisecond),
		RunningAt: time.Now().Truncate(time.Millisecond),
	}
	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}
	if decoded.TaskID != ev.TaskID {
		t.Errorf("TaskID = %v, want %v", decoded.TaskID, ev.TaskID)
	}
	if decoded.ProcessID != ev.ProcessID {
		t.Errorf("ProcessID = %d, want %d", decoded.ProcessID, ev.ProcessID)
	}
}

func TestEventRoundTripStoppedWithExitCode(t *testing.T) {
	code := 7
	ev := task.Event{
		Kind:       task.EventStopped,
		ExitCode:   &code,
		Reason:     task.Finished(),
		FinishedAt: time.Now().Truncate(time.Millisecond),
	}
	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}
	if decoded.ExitCode == nil || *decoded.ExitCode != 7 {
		t.Errorf("ExitCode = %v, want 7", decoded.ExitCode)
	}
	if decoded.Signal != nil {
		t.Errorf("Signal = %v, want nil", decoded.Signal)
	}
	if decoded.Reason.Kind() != task.StopFinished {
		t.Errorf("Reason.Kind() = %v, want StopFinished", decoded.Reason.Kind())
	}
}

func TestEventRoundTripOutput(t *testing.T) {
	ev := task.Event{Kind: task.EventOutput, Line: "hello world", Source: task.SourceStderr}
	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent() = %v", err)
	}
	if decoded.Line != "hello world" || decoded.Source != task.SourceStderr {
		t.Errorf("Line/Source = %q/%v, want %q/%v", decoded.Line, decoded.Source, "hello world", task.SourceStderr)
	}
}

func TestStateRoundTrip(t *testing.T) {
	for _, s := range []task.State{task.StatePending, task.StateRunning, task.StateFinished} {
		decoded, err := DecodeState(EncodeState(s))
		if err != nil {
			t.Fatalf("DecodeState() = %v", err)
		}
		if decoded != s {
			t.Errorf("DecodeState() = %v, want %v", decoded, s)
		}
	}
}
