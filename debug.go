package friendly

import (
	"fmt"
	"os"
	"time"
)

// globalDebug gates all diagnostic output (no sync — friendly's mutable
// state lives on the engine tick).
var globalDebug bool

// SetDebug enables diagnostic logging to stderr: media load outcomes,
// scheduler job sizes, and per-frame render stats.
func SetDebug(enabled bool) {
	globalDebug = enabled
}

func debugf(format string, args ...any) {
	if !globalDebug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[friendly] "+format+"\n", args...)
}

// drawStats holds per-frame render metrics. Only populated in debug mode.
type drawStats struct {
	projectTime time.Duration
	submitTime  time.Duration
	cellCount   int
	culledCount int
	quadCount   int
}

func (s drawStats) log() {
	if !globalDebug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[friendly] project: %v | submit: %v | cells: %d | culled: %d | quads: %d\n",
		s.projectTime, s.submitTime, s.cellCount, s.culledCount, s.quadCount)
}
