package procgroup

import (
	"os/exec"
	"sync"
)

// Fallback operates on the single supervised pid alone when use_process_group
// is false, or when the platform offers neither setsid/killpg nor Job
// Objects. The contract is weakened: descendants spawned by the child are
// left to the OS and may become orphans.
type Fallback struct {
	mu     sync.Mutex
	pid    int
	active bool
	closed bool
}

func (f *Fallback) Wrap(cmd *exec.Cmd) {
	// No command mutation: the child is not made a group/job leader.
}

func (f *Fallback) Assign(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrNotActive
	}
	f.pid = pid
	f.active = true
	return nil
}

func (f *Fallback) Broadcast(action Action) error {
	f.mu.Lock()
	pid, active := f.pid, f.active
	f.mu.Unlock()
	if !active {
		return ErrNotActive
	}
	return signalProcess(pid, action)
}

func (f *Fallback) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active && !f.closed
}

func (f *Fallback) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.active = false
	return nil
}
