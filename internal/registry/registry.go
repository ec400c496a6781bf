// Package registry is the demo CLI's outer-loop convenience layer: it lets
// tcrmctl supervise more than one named task without turning the core
// engine into a multi-task scheduler. The shape (idempotent named
// Start/Stop, per-task scrollback) is adapted from the reference
// processmgr.ProcessManager; the business logic is entirely different,
// since each entry here owns a full task.Executor instead of a bare
// exec.Cmd restart loop, and restart-on-exit is intentionally not carried
// over — the core contract has no restart semantics.
package registry

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xpcn2015/tcrm/internal/logbuf"
	"github.com/xpcn2015/tcrm/internal/task"
)

// entry is one named, supervised task.
type entry struct {
	name     string
	executor *task.Executor
	events   chan task.Event
	logs     *logbuf.Buffer
}

// Registry tracks named tasks started through tcrmctl. Safe for concurrent
// use.
type Registry struct {
	log *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	statusGroup singleflight.Group
}

func New(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log, entries: make(map[string]*entry)}
}

// ErrExists is returned by Start when name is already registered.
var ErrExists = fmt.Errorf("registry: task already exists")

// ErrNotFound is returned by operations on an unknown name.
var ErrNotFound = fmt.Errorf("registry: task not found")

// Start constructs and starts an Executor for cfg under name. Non-blocking:
// it returns once the Started event has been emitted. Idempotent by name:
// a second Start under the same name returns ErrExists without touching the
// existing task.
func (r *Registry) Start(name string, cfg task.Configuration, sinkCapacity int) error {
	r.mu.Lock()
	if _, exists := r.entries[name]; exists {
		r.mu.Unlock()
		return ErrExists
	}

	ex := task.NewExecutor(cfg, r.log.With(zap.String("task_name", name)))
	e := &entry{
		name:     name,
		executor: ex,
		events:   make(chan task.Event, sinkCapacity),
		logs:     &logbuf.Buffer{},
	}
	r.entries[name] = e
	r.mu.Unlock()

	go r.drain(e)

	return ex.Start(e.events)
}

// drain copies Output events into the per-task scrollback buffer and logs
// every event at debug level. It exits once the sink is closed by the
// caller or the task's Stopped event has been drained.
func (r *Registry) drain(e *entry) {
	for ev := range e.events {
		if ev.Kind == task.EventOutput {
			e.logs.Append(logbuf.Line{Text: ev.Line, Stderr: ev.Source == task.SourceStderr})
		}
		r.log.Debug("task event", zap.String("task_name", e.name), zap.String("kind", ev.Kind.String()))
		if ev.Kind == task.EventStopped {
			return
		}
	}
}

// Stop requests termination of the named task with TerminateUserRequested.
func (r *Registry) Stop(name string) error {
	e, ok := r.lookup(name)
	if !ok {
		return ErrNotFound
	}
	return e.executor.Terminate(task.TerminateUserRequested)
}

// Remove drops a finished task from the registry so its name can be reused.
// It is an error to remove a task that has not reached StateFinished.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return ErrNotFound
	}
	if e.executor.GetState() != task.StateFinished {
		return fmt.Errorf("registry: task %q is not finished", name)
	}
	delete(r.entries, name)
	return nil
}

// Status returns the named task's information snapshot, coalescing
// concurrent callers racing a restart the same way the reference
// channel-summary service coalesces concurrent cache refreshes.
func (r *Registry) Status(ctx context.Context, name string) (task.Information, error) {
	v, err, _ := r.statusGroup.Do(name, func() (interface{}, error) {
		e, ok := r.lookup(name)
		if !ok {
			return nil, ErrNotFound
		}
		return e.executor.GetInformation(), nil
	})
	if err != nil {
		return task.Information{}, err
	}
	return v.(task.Information), nil
}

// Logs returns up to n scrollback lines for name, newest first.
func (r *Registry) Logs(name string, n int) ([]logbuf.Line, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	return e.logs.Read(n), nil
}

// Controller returns the named task's control surface.
func (r *Registry) Controller(name string) (task.Controller, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	return e.executor, nil
}

// Names lists every registered task name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	return names
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}
