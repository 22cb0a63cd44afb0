package livewall

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// debugStats holds per-frame timing and component counts.
// Only populated when the runtime is in debug mode.
type debugStats struct {
	frameTime time.Duration
	scanTime  time.Duration
}

// debugLog prints frame timing and component state to stderr about once a
// second.
func (r *Runtime) debugLog() {
	if !r.debug {
		return
	}
	tps := uint64(max(r.prefs.TPS, 1))
	if r.sched.Frame()%tps != 0 {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr,
		"[livewall] frame: %v | scan: %v | timers: %d\n",
		r.stats.frameTime, r.stats.scanTime, r.sched.Pending())
	_, _ = fmt.Fprintf(os.Stderr,
		"[livewall] %s\n", strings.ReplaceAll(r.debugSummary(), "\n", " | "))
}

// debugSummary describes the live components, one per line.
func (r *Runtime) debugSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mesh: %d", r.cfg.CurrentMeshIndex)
	if r.renderingPaused {
		b.WriteString(" (switching)")
	}
	if v := r.Voice(); v != nil {
		fmt.Fprintf(&b, "\nvoice: %s %s", v.State(), v.Current())
	}
	fmt.Fprintf(&b, "\noverlay: %s", r.overlay.State())
	fmt.Fprintf(&b, "\ntokens: %d effects: %d", r.points.Live(), r.sequencer.Live())
	if ids := r.triggers.Counters().IDs(); len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%s=%d", id, r.triggers.Counters().Get(id))
		}
		fmt.Fprintf(&b, "\ncounters: %s", strings.Join(parts, " "))
	}
	return b.String()
}
