package task

import "time"

// Information is a point-in-time snapshot of a task's observable state.
type Information struct {
	State      State
	ProcessID  *int
	CreatedAt  time.Time
	RunningAt  *time.Time
	FinishedAt *time.Time
	ExitCode   *int
	StopReason *StopReason
}

// InfoProvider is the narrow read-only surface on a task, mirroring the
// reference model's split between status queries and mutating control
// operations: callers that only need to observe a task can depend on this
// interface instead of the full Controller.
type InfoProvider interface {
	GetState() State
	GetProcessID() (int, bool)
	GetCreatedAt() time.Time
	GetRunningAt() (time.Time, bool)
	GetFinishedAt() (time.Time, bool)
	GetExitCode() (int, bool)
	GetInformation() Information
}

func (e *Executor) GetState() State { return e.ctx.state.Load() }

func (e *Executor) GetProcessID() (int, bool) {
	pid := e.ctx.processID.Load()
	if pid == 0 {
		return 0, false
	}
	return int(pid), true
}

func (e *Executor) GetCreatedAt() time.Time {
	t, _ := timeFromNano(e.ctx.createdAtNano.Load())
	return t
}

func (e *Executor) GetRunningAt() (time.Time, bool) {
	return timeFromNano(e.ctx.runningAtNano.Load())
}

func (e *Executor) GetFinishedAt() (time.Time, bool) {
	return timeFromNano(e.ctx.finishedAtNano.Load())
}

func (e *Executor) GetExitCode() (int, bool) {
	if !e.ctx.exitCodeSet.Load() {
		return 0, false
	}
	return int(e.ctx.exitCode.Load()), true
}

// GetInformation aggregates every getter into a single snapshot, the default
// method the reference model provides on top of its narrower getters.
func (e *Executor) GetInformation() Information {
	info := Information{
		State:     e.GetState(),
		CreatedAt: e.GetCreatedAt(),
	}
	if pid, ok := e.GetProcessID(); ok {
		info.ProcessID = &pid
	}
	if t, ok := e.GetRunningAt(); ok {
		info.RunningAt = &t
	}
	if t, ok := e.GetFinishedAt(); ok {
		info.FinishedAt = &t
	}
	if code, ok := e.GetExitCode(); ok {
		info.ExitCode = &code
	}
	if reason, ok := e.ctx.getStopReason(); ok {
		info.StopReason = &reason
	}
	return info
}
