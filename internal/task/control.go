package task

import (
	"bytes"

	"github.com/xpcn2015/tcrm/internal/task/procgroup"
	"go.uber.org/zap"
)

// Controller is the set of mutating operations exposed on a running task.
type Controller interface {
	SendStdin(data []byte) error
	Terminate(reason TerminateReason) error
	Pause() error
	Resume() error
	Stop() error
}

// SendStdin appends data (and a trailing newline if absent) to the child's
// stdin pipe. Valid only while the task is Running or Ready and stdin was
// enabled at construction.
func (e *Executor) SendStdin(data []byte) error {
	if !e.config.EnableStdin() {
		return newError(ErrControl, "stdin is not enabled for this task", nil)
	}

	state := e.GetState()
	if state != StateRunning && state != StateReady {
		return newError(ErrControl, "task is not running", nil)
	}

	e.stdinMu.Lock()
	defer e.stdinMu.Unlock()
	if e.stdin == nil {
		return newError(ErrControl, "stdin pipe unavailable", nil)
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(bytes.Clone(data), '\n')
	}
	if _, err := e.stdin.Write(data); err != nil {
		return newError(ErrIO, "stdin write failed", err)
	}
	return nil
}

// Terminate fires external cancellation with reason. It is idempotent: a
// second call on an already-terminating task returns a Channel error and the
// stop reason reflects the first caller's reason. A call on a finished task
// returns a Control error.
func (e *Executor) Terminate(reason TerminateReason) error {
	if e.GetState() == StateFinished {
		return newError(ErrControl, "task already finished", nil)
	}
	if !e.ctx.externalCancel.fire(reason) {
		return newError(ErrChannel, "terminate already requested", nil)
	}
	return nil
}

// Pause broadcasts a pause to the process group (or the lone pid, under the
// fallback) and emits ProcessControl{pause} on success.
func (e *Executor) Pause() error { return e.broadcastControl(procgroup.ActionPause, ActionPause) }

// Resume broadcasts a resume.
func (e *Executor) Resume() error { return e.broadcastControl(procgroup.ActionResume, ActionResume) }

// Stop broadcasts an immediate stop without going through the watcher
// fabric's cooperative shutdown; callers that want the Stopped event to
// carry a specific TerminateReason should prefer Terminate.
func (e *Executor) Stop() error { return e.broadcastControl(procgroup.ActionStop, ActionStop) }

func (e *Executor) broadcastControl(groupAction procgroup.Action, eventAction ControlAction) error {
	pid, ok := e.GetProcessID()
	if !ok {
		return newError(ErrControl, "no process id available", nil)
	}

	var err error
	if e.config.IsProcessGroupEnabled() && e.ctx.group.Active() {
		err = e.ctx.group.Broadcast(groupAction)
	} else {
		err = procgroup.SignalPID(pid, groupAction)
	}
	if err != nil {
		e.log.Warn("control broadcast failed", zap.String("action", groupAction.String()), zap.Error(err))
		return newError(ErrControl, "broadcast failed", err)
	}

	e.emit(Event{Kind: EventProcessControl, Action: eventAction})
	return nil
}
