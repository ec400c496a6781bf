package task

import (
	"bufio"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/xpcn2015/tcrm/internal/task/procgroup"
	"go.uber.org/zap"
)

// lineEvent is what a background scanner goroutine delivers for one stream:
// exactly one of Line, Err, or EOF is meaningful.
type lineEvent struct {
	line string
	err  error
	eof  bool
}

// scanLines runs a bufio.Scanner over r until EOF or error, delivering every
// line (and the terminal EOF/error) on the returned channel, then closing it.
// The buffer sizes mirror the reference processmgr's scanner configuration.
func scanLines(r io.Reader) <-chan lineEvent {
	ch := make(chan lineEvent)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			ch <- lineEvent{line: sc.Text()}
		}
		if err := sc.Err(); err != nil {
			ch <- lineEvent{err: err}
			return
		}
		ch <- lineEvent{eof: true}
	}()
	return ch
}

// runWatcher is the watcher fabric: a single cooperative loop that
// multiplexes the six event sources named in the engine contract. It runs in
// its own goroutine, started once by Start, and performs no blocking system
// call outside the six cases of the select below.
func (e *Executor) runWatcher(stdout, stderr io.Reader) {
	stdoutCh := scanLines(stdout)
	stderrCh := scanLines(stderr)

	var timeoutC <-chan time.Time
	if d := e.config.Timeout(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutC = timer.C
	}

	childDone := make(chan error, 1)
	go func() { childDone <- e.cmd.Wait() }()

	stop := false
	childExited := false
	for !stop {
		select {
		case le, ok := <-stdoutCh:
			if !ok {
				stdoutCh = nil
				continue
			}
			if e.handleOutput(SourceStdout, le) {
				stdoutCh = nil
			}

		case le, ok := <-stderrCh:
			if !ok {
				stderrCh = nil
				continue
			}
			if e.handleOutput(SourceStderr, le) {
				stderrCh = nil
			}

		case <-timeoutC:
			timeoutC = nil // the timeout future fires once, never reconstructed
			e.ctx.internalCancel.fire(TerminateTimeout)

		case reason := <-e.ctx.externalCancel.C():
			e.ctx.trySetStopReason(Terminated(reason))
			stop = true

		case reason := <-e.ctx.internalCancel.C():
			e.ctx.trySetStopReason(Terminated(reason))
			stop = true

		case err := <-childDone:
			e.handleChildExit(err)
			childExited = true
			stop = true
		}
	}

	e.finalize(childDone, childExited)
}

// handleOutput processes one line-reader delivery for source. It returns
// true when the stream is exhausted (EOF or error) and the caller should
// stop selecting on it.
func (e *Executor) handleOutput(source StreamSource, le lineEvent) bool {
	if le.err != nil {
		wrapped := newError(ErrIO, "stream read failed", le.err)
		e.ctx.trySetStopReason(Errored(wrapped))
		e.emit(Event{Kind: EventError, Err: wrapped})
		e.ctx.internalCancel.fire(TerminateInternalError)
		return true
	}
	if le.eof {
		return true
	}

	e.emit(Event{Kind: EventOutput, Line: le.line, Source: source})

	indicator := e.config.ReadyIndicator()
	if indicator != "" && source == e.config.ReadyIndicatorSource() &&
		!e.ctx.readyFired.Load() && strings.Contains(le.line, indicator) {
		if e.ctx.markReady() {
			e.ctx.state.Store(StateReady)
			e.emit(Event{Kind: EventReady})
		}
	}
	return false
}

func (e *Executor) handleChildExit(waitErr error) {
	if waitErr == nil {
		e.ctx.setExitCode(0)
	} else if exitErr, ok := waitErr.(*exec.ExitError); ok {
		e.ctx.setExitCode(exitErr.ExitCode())
		if sig, ok := extractSignal(exitErr); ok {
			e.ctx.setSignal(sig)
		}
	} else {
		wrapped := newError(ErrIO, "failed to wait for process", waitErr)
		e.ctx.trySetStopReason(Errored(wrapped))
		e.emit(Event{Kind: EventError, Err: wrapped})
		return
	}
	e.ctx.trySetStopReason(Finished())
}

// finalize runs once after the select loop exits: it requests termination of
// the process group when the stop reason is Terminated, ensures the child is
// reaped, and emits the terminal Stopped event.
func (e *Executor) finalize(childDone <-chan error, childExited bool) {
	reason, ok := e.ctx.getStopReason()
	if !ok {
		reason = Finished()
	}

	if reason.Kind() == StopTerminated {
		e.terminateChild()
	}

	if !childExited {
		select {
		case <-childDone:
		case <-time.After(5 * time.Second):
			e.log.Warn("child did not exit after termination; issuing direct kill")
			if pid, ok := e.GetProcessID(); ok {
				_ = procgroup.SignalPID(pid, procgroup.ActionStop)
			}
			<-childDone
		}
	}

	now := time.Now()
	e.ctx.finishedAtNano.Store(now.UnixNano())
	e.ctx.state.Store(StateFinished)
	e.ctx.clearProcessID()

	ev := Event{Kind: EventStopped, Reason: reason, FinishedAt: now}
	if code, ok := e.GetExitCode(); ok {
		ev.ExitCode = &code
	}
	if e.ctx.signalSet.Load() {
		sig := int(e.ctx.signal.Load())
		ev.Signal = &sig
	}
	e.emit(ev)

	e.stdinMu.Lock()
	if e.stdin != nil {
		_ = e.stdin.Close()
	}
	e.stdinMu.Unlock()

	if err := e.ctx.group.Close(); err != nil {
		e.log.Debug("process group close reported an error", zap.Error(err))
	}
}

// terminateChild asks the process group (or the lone pid) to stop. Already-
// exited outcomes are not propagated as errors: the group is gone, which is
// exactly the desired end state.
func (e *Executor) terminateChild() {
	if e.config.IsProcessGroupEnabled() && e.ctx.group.Active() {
		if err := e.ctx.group.Broadcast(procgroup.ActionStop); err != nil {
			e.log.Warn("group termination failed", zap.Error(err))
		}
		return
	}
	if pid, ok := e.GetProcessID(); ok {
		if err := procgroup.SignalPID(pid, procgroup.ActionStop); err != nil {
			e.log.Warn("direct termination failed", zap.Error(err))
		}
	}
}
