//go:build !unix && !windows

package procgroup

import "errors"

// On platforms with neither setsid/killpg nor Job Objects, group
// containment degrades to the Fallback implementation and signaling degrades
// to "unsupported" rather than guessing at a primitive.
func newPlatformGroup() Group {
	return &Fallback{}
}

func signalProcess(pid int, action Action) error {
	return errors.New("procgroup: process signaling unsupported on this platform")
}
