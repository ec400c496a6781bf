package task

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xpcn2015/tcrm/internal/task/procgroup"
)

// cancelSignal is a single-shot notification channel. Firing it more than
// once is a no-op that reports failure to the second caller, matching the
// engine's idempotent-cancellation contract.
type cancelSignal struct {
	mu     sync.Mutex
	fired  bool
	reason TerminateReason
	ch     chan TerminateReason
}

func newCancelSignal() *cancelSignal {
	return &cancelSignal{ch: make(chan TerminateReason, 1)}
}

// fire delivers reason exactly once. It reports whether this call was the
// one that fired it.
func (c *cancelSignal) fire(reason TerminateReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired {
		return false
	}
	c.fired = true
	c.reason = reason
	c.ch <- reason
	return true
}

func (c *cancelSignal) hasFired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

func (c *cancelSignal) C() <-chan TerminateReason { return c.ch }

// sharedContext is the cross-thread state shared between the Executor, the
// Controller surface, and the watcher fabric's handlers. Scalars are
// atomics so read-heavy access (get_information, log field capture) never
// blocks a handler; the stop reason sits behind a mutex because it is set at
// most once and read as a unit. The group handle is set at construction and
// does its own locking.
type sharedContext struct {
	state State32

	processID atomic.Int64 // 0 == none

	createdAtNano atomic.Int64
	runningAtNano atomic.Int64
	finishedAtNano atomic.Int64

	exitCodeSet atomic.Bool
	exitCode    atomic.Int64

	signalSet atomic.Bool
	signal    atomic.Int64

	readyFired atomic.Bool

	externalCancel *cancelSignal
	internalCancel *cancelSignal

	mu         sync.Mutex
	stopReason *StopReason

	group procgroup.Group
}

// State32 wraps atomic.Int32 with State-typed accessors.
type State32 struct{ v atomic.Int32 }

func (s *State32) Load() State     { return State(s.v.Load()) }
func (s *State32) Store(st State)  { s.v.Store(int32(st)) }

func newSharedContext(group procgroup.Group) *sharedContext {
	ctx := &sharedContext{
		externalCancel: newCancelSignal(),
		internalCancel: newCancelSignal(),
		group:          group,
	}
	ctx.state.Store(StatePending)
	return ctx
}

func (c *sharedContext) markCreated(now time.Time) {
	c.createdAtNano.Store(now.UnixNano())
}

func (c *sharedContext) markRunning(pid int, now time.Time) {
	c.processID.Store(int64(pid))
	c.runningAtNano.Store(now.UnixNano())
	c.state.Store(StateRunning)
}

func (c *sharedContext) markReady() bool {
	return c.readyFired.CompareAndSwap(false, true)
}

func (c *sharedContext) setExitCode(code int) {
	c.exitCode.Store(int64(code))
	c.exitCodeSet.Store(true)
}

func (c *sharedContext) setSignal(sig int) {
	c.signal.Store(int64(sig))
	c.signalSet.Store(true)
}

func (c *sharedContext) clearProcessID() {
	c.processID.Store(0)
}

// trySetStopReason sets the stop reason if unset and reports whether this
// call won the race. The first writer's reason is authoritative.
func (c *sharedContext) trySetStopReason(r StopReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopReason != nil {
		return false
	}
	c.stopReason = &r
	return true
}

func (c *sharedContext) getStopReason() (StopReason, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopReason == nil {
		return StopReason{}, false
	}
	return *c.stopReason, true
}

func timeFromNano(n int64) (time.Time, bool) {
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}
