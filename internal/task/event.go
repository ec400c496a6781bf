package task

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags the variant held by an Event.
type EventKind int32

const (
	EventStarted EventKind = iota
	EventOutput
	EventReady
	EventStopped
	EventError
	EventProcessControl
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventReady:
		return "ready"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	case EventProcessControl:
		return "process_control"
	default:
		return "unknown"
	}
}

// ControlAction names the control-surface operation that produced a
// ProcessControl event.
type ControlAction int32

const (
	ActionStop ControlAction = iota
	ActionPause
	ActionResume
	ActionInterrupt
)

func (a ControlAction) String() string {
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

// Event is the typed union delivered on the event sink. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	// EventStarted
	TaskID    uuid.UUID
	ProcessID int
	CreatedAt time.Time
	RunningAt time.Time

	// EventOutput
	Line   string
	Source StreamSource

	// EventStopped
	ExitCode   *int
	Reason     StopReason
	FinishedAt time.Time
	Signal     *int // Unix only

	// EventError
	Err error

	// EventProcessControl
	Action ControlAction
}
