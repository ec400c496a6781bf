// Package procgroup implements the cross-platform process-group/job
// abstraction described by the engine's Process Group component: wrapping a
// to-be-spawned command so its child becomes a group/job leader, attaching
// the running child once its pid is known, and broadcasting stop/pause/
// resume/interrupt to every process the group currently contains.
package procgroup

import (
	"fmt"
	"os/exec"
)

// Action is one of the four broadcastable group-wide operations.
type Action int32

const (
	ActionStop Action = iota
	ActionPause
	ActionResume
	ActionInterrupt
)

func (a Action) String() string {
	switch a {
	case ActionStop:
		return "stop"
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Group is the platform-independent contract. Implementations are not safe
// for use before Wrap, and Assign must be called exactly once after the
// wrapped command has started and its pid is known.
type Group interface {
	// Wrap mutates cmd so the process it spawns becomes the leader of a new
	// group/job. Call before cmd.Start().
	Wrap(cmd *exec.Cmd)
	// Assign records the running child so subsequent Broadcast calls reach
	// its descendants. Call immediately after cmd.Start() returns.
	Assign(pid int) error
	// Broadcast applies action to every process currently in the group.
	Broadcast(action Action) error
	// Active reports whether Assign has succeeded and the group has not
	// been released.
	Active() bool
	// Close releases the platform handle. Safe to call multiple times; only
	// the first call has effect. On Windows this may reap remaining
	// descendants (kill-on-job-close).
	Close() error
}

// ErrNotActive is returned by Broadcast when the group was never assigned or
// has already been closed.
var ErrNotActive = fmt.Errorf("procgroup: group not active")

// SignalPID applies action directly to a single pid, bypassing group
// containment entirely. Used by callers when use_process_group is disabled
// or the group has not been assigned.
func SignalPID(pid int, action Action) error {
	return signalProcess(pid, action)
}

// New returns the platform-appropriate Group implementation. When enabled is
// false, a fallback implementation is returned that operates on the single
// pid passed to Assign and never containerizes descendants — see Fallback.
func New(enabled bool) Group {
	if !enabled {
		return &Fallback{}
	}
	return newPlatformGroup()
}
