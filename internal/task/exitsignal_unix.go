//go:build unix

package task

import (
	"os/exec"
	"syscall"
)

// extractSignal returns the terminating signal number when the child was
// killed by a signal, per the Unix-only Stopped.Signal field.
func extractSignal(exitErr *exec.ExitError) (int, bool) {
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}
