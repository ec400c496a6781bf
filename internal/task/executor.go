// Package task implements the single-task process supervisor: the state
// machine, the concurrent watcher fabric, the process-group lifecycle, and
// the event protocol that together make up the engine's core.
package task

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xpcn2015/tcrm/internal/task/procgroup"
	"go.uber.org/zap"
)

// Executor binds a Configuration to a running (or not-yet-started) child
// process and owns every resource associated with one execution: the
// command, its pipes, the shared context, and the process group handle.
type Executor struct {
	ID     uuid.UUID
	config Configuration
	log    *zap.Logger

	ctx *sharedContext

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdinMu sync.Mutex

	sink chan<- Event

	startCalled atomic.Bool
}

// NewExecutor constructs an Executor bound to config. The task starts in
// StatePending; call Start to spawn the child. log defaults to a no-op
// logger when nil, matching the reference processmgr's fallback.
func NewExecutor(config Configuration, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	group := procgroup.New(config.IsProcessGroupEnabled())
	ctx := newSharedContext(group)
	ctx.markCreated(time.Now())

	return &Executor{
		ID:     id,
		config: config,
		log:    log.With(zap.String("task_id", id.String())),
		ctx:    ctx,
	}
}

// Start validates the configuration, spawns the child, emits Started, and
// launches the watcher fabric in a background goroutine. It returns once the
// Started event has been emitted (or once a start-time failure has been
// reported), never once the task finishes.
func (e *Executor) Start(sink chan<- Event) error {
	if !e.startCalled.CompareAndSwap(false, true) {
		return newError(ErrControl, "task already started", nil)
	}
	return e.start(sink)
}

func (e *Executor) start(sink chan<- Event) error {
	e.sink = sink
	e.ctx.state.Store(StateInitiating)

	if err := e.config.Validate(); err != nil {
		e.failStart(err)
		return err
	}

	cmd := exec.Command(e.config.Command(), e.config.Args()...)
	cmd.Dir = e.config.WorkingDir()
	cmd.Env = buildEnv(e.config.Env())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		wrapped := newError(ErrIO, "stdout pipe creation failed", err)
		e.failStart(wrapped)
		return wrapped
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		wrapped := newError(ErrIO, "stderr pipe creation failed", err)
		e.failStart(wrapped)
		return wrapped
	}

	var stdin io.WriteCloser
	if e.config.EnableStdin() {
		w, err := cmd.StdinPipe()
		if err != nil {
			_ = stdout.Close()
			_ = stderr.Close()
			wrapped := newError(ErrIO, "stdin pipe creation failed", err)
			e.failStart(wrapped)
			return wrapped
		}
		stdin = w
	}
	// enable_stdin=false: cmd.Stdin stays nil, which os/exec connects to the
	// null device — the child's stdin reads as closed/empty.

	e.ctx.group.Wrap(cmd)

	if err := cmd.Start(); err != nil {
		wrapped := newError(ErrIO, "failed to spawn process", err)
		e.failStart(wrapped)
		return wrapped
	}
	e.cmd = cmd
	e.stdinMu.Lock()
	e.stdin = stdin
	e.stdinMu.Unlock()

	pid := cmd.Process.Pid
	now := time.Now()
	e.ctx.markRunning(pid, now)

	if err := e.ctx.group.Assign(pid); err != nil {
		e.log.Warn("failed to assign process to group; control operations degrade to direct pid signaling",
			zap.Error(err))
	}

	e.emit(Event{
		Kind:      EventStarted,
		TaskID:    e.ID,
		ProcessID: pid,
		CreatedAt: e.GetCreatedAt(),
		RunningAt: now,
	})

	go e.runWatcher(stdout, stderr)
	return nil
}

// failStart emits the boundary Error + terminal Stopped pair required when
// start-time validation or spawn fails, and transitions to Finished.
func (e *Executor) failStart(err error) {
	e.ctx.trySetStopReason(Errored(err))
	e.emit(Event{Kind: EventError, Err: err})
	now := time.Now()
	e.ctx.finishedAtNano.Store(now.UnixNano())
	e.ctx.state.Store(StateFinished)
	reason, _ := e.ctx.getStopReason()
	e.emit(Event{Kind: EventStopped, Reason: reason, FinishedAt: now})
}

// emit delivers ev on the sink. A closed sink must not take the task down
// with it: the panic from sending on a closed channel is recovered and only
// produces a logged warning. A full sink blocks the send until the consumer
// reads, which is the engine's backpressure.
func (e *Executor) emit(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("event sink unavailable, dropping event", zap.String("kind", ev.Kind.String()))
		}
	}()
	if e.sink == nil {
		return
	}
	e.sink <- ev
}

func buildEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return os.Environ()
	}
	base := os.Environ()
	env := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key := kv
		for i, c := range kv {
			if c == '=' {
				key = kv[:i]
				break
			}
		}
		if v, ok := overrides[key]; ok {
			env = append(env, key+"="+v)
			seen[key] = true
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overrides {
		if !seen[k] {
			env = append(env, k+"="+v)
		}
	}
	return env
}
