package task

import "fmt"

// State is the execution state of a task throughout its lifecycle.
//
//	Pending → Initiating → Running → [Ready] → Finished
//
// Ready is optional and only reached by long-running children that have a
// configured ready indicator. Finished is absorbing.
type State int32

const (
	// StatePending: constructed but not started.
	StatePending State = iota
	// StateInitiating: validation and spawn in progress.
	StateInitiating
	// StateRunning: child is alive, no ready marker seen (or none configured).
	StateRunning
	// StateReady: child has produced the configured ready marker.
	StateReady
	// StateFinished: terminal.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInitiating:
		return "initiating"
	case StateRunning:
		return "running"
	case StateReady:
		return "ready"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TerminateReason is the fixed set of causes for a requested termination.
// The historical Custom(string) variant is not carried forward; callers that
// need free-form context should route it through Error instead.
type TerminateReason int32

const (
	TerminateTimeout TerminateReason = iota
	TerminateCleanup
	TerminateDependenciesFinished
	TerminateUserRequested
	TerminateInternalError
)

func (r TerminateReason) String() string {
	switch r {
	case TerminateTimeout:
		return "timeout"
	case TerminateCleanup:
		return "cleanup"
	case TerminateDependenciesFinished:
		return "dependencies-finished"
	case TerminateUserRequested:
		return "user-requested"
	case TerminateInternalError:
		return "internal-error"
	default:
		return fmt.Sprintf("terminate-reason(%d)", int32(r))
	}
}

// StopReasonKind tags the variant held by a StopReason.
type StopReasonKind int32

const (
	StopFinished StopReasonKind = iota
	StopTerminated
	StopError
)

func (k StopReasonKind) String() string {
	switch k {
	case StopFinished:
		return "finished"
	case StopTerminated:
		return "terminated"
	case StopError:
		return "error"
	default:
		return fmt.Sprintf("stop-reason-kind(%d)", int32(k))
	}
}

// StopReason is the tagged union attached to the terminal Stopped event.
// Exactly one of the three variants is populated, selected by Kind.
type StopReason struct {
	kind      StopReasonKind
	terminate TerminateReason
	err       error
}

// Finished reports the child exited on its own.
func Finished() StopReason { return StopReason{kind: StopFinished} }

// Terminated reports the engine terminated the child for the given cause.
func Terminated(reason TerminateReason) StopReason {
	return StopReason{kind: StopTerminated, terminate: reason}
}

// Errored reports the supervisor itself failed.
func Errored(err error) StopReason {
	return StopReason{kind: StopError, err: err}
}

// Kind reports which variant is populated.
func (r StopReason) Kind() StopReasonKind { return r.kind }

// TerminateReason returns the cause, valid only when Kind() == StopTerminated.
func (r StopReason) TerminateReason() (TerminateReason, bool) {
	if r.kind != StopTerminated {
		return 0, false
	}
	return r.terminate, true
}

// Err returns the supervisor error, valid only when Kind() == StopError.
func (r StopReason) Err() error {
	if r.kind != StopError {
		return nil
	}
	return r.err
}

func (r StopReason) String() string {
	switch r.kind {
	case StopFinished:
		return "finished"
	case StopTerminated:
		return fmt.Sprintf("terminated(%s)", r.terminate)
	case StopError:
		return fmt.Sprintf("error(%v)", r.err)
	default:
		return "unknown"
	}
}
