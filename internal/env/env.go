// Package env reads tcrmctl's own ambient settings from the process
// environment. The Configuration the engine supervises is always built
// in-process (see internal/task.Configuration) — this package only covers
// the demo CLI's outer-loop knobs, the same way the reference zmux-server
// reads ENV=dev/prod directly with os.Getenv rather than through a config
// library.
package env

import (
	"os"
	"strconv"
)

// IsDev reports whether ENV=dev, selecting the development zap encoder.
func IsDev() bool {
	return os.Getenv("ENV") == "dev"
}

// SinkCapacity is the event sink channel's buffer capacity. Reference
// configurations use 64-1024; default 256.
func SinkCapacity() int {
	return intOr("TCRM_SINK_CAPACITY", 256)
}

// LogBufferLines bounds the number of scrollback lines returned by `tcrmctl
// logs` when the caller does not specify -n.
func LogBufferLines() int {
	return intOr("TCRM_LOG_LINES", 100)
}

func intOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
