//go:build !unix

package task

import "os/exec"

// extractSignal is Unix-only per the spec's Stopped.Signal field; other
// platforms never populate it.
func extractSignal(exitErr *exec.ExitError) (int, bool) {
	return 0, false
}
