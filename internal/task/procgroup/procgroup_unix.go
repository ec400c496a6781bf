//go:build unix

package procgroup

import (
	"errors"
	"os/exec"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// unixGroup realizes Group via setsid/killpg. Wrap installs a pre-exec hook
// that calls setsid() so the spawned child becomes the leader of a new
// session and process group; since the session leader's pid equals the
// process-group id on Unix, Assign is a pure bookkeeping step.
type unixGroup struct {
	mu     sync.Mutex
	pgid   int
	active bool
	closed bool
}

func newPlatformGroup() Group {
	return &unixGroup{}
}

func (g *unixGroup) Wrap(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
}

func (g *unixGroup) Assign(pid int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrNotActive
	}
	g.pgid = pid
	g.active = true
	return nil
}

func (g *unixGroup) Broadcast(action Action) error {
	g.mu.Lock()
	pgid, active := g.pgid, g.active
	g.mu.Unlock()
	if !active {
		return ErrNotActive
	}

	var sig syscall.Signal
	switch action {
	case ActionStop:
		sig = syscall.SIGTERM
	case ActionPause:
		sig = syscall.SIGSTOP
	case ActionResume:
		sig = syscall.SIGCONT
	case ActionInterrupt:
		sig = syscall.SIGINT
	default:
		return errors.New("procgroup: unknown action")
	}

	// killpg targets the negative pid; ESRCH means the group has already
	// exited, which is success from the caller's point of view.
	if err := unix.Kill(-pgid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}

func (g *unixGroup) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active && !g.closed
}

func (g *unixGroup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.active = false
	return nil
}

func signalProcess(pid int, action Action) error {
	var sig syscall.Signal
	switch action {
	case ActionStop:
		sig = syscall.SIGTERM
	case ActionPause:
		sig = syscall.SIGSTOP
	case ActionResume:
		sig = syscall.SIGCONT
	case ActionInterrupt:
		sig = syscall.SIGINT
	default:
		return errors.New("procgroup: unknown action")
	}
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}
