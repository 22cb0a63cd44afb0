package livewall

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ReloadDiff lists the hot-swappable sub-trees that changed between two
// configuration documents.
type ReloadDiff struct {
	Notes    bool
	Library  bool
	Triggers bool
}

// Changed reports whether anything changed.
func (d ReloadDiff) Changed() bool {
	return d.Notes || d.Library || d.Triggers
}

// DiffConfig compares the notes, the special-effect library and the active
// mesh's trigger list of two documents by deep equality. Formatting and key
// order do not count as changes.
func DiffConfig(old, cur []byte, activeMesh int) ReloadDiff {
	same := func(path string) bool {
		return reflect.DeepEqual(gjson.GetBytes(old, path).Value(), gjson.GetBytes(cur, path).Value())
	}
	return ReloadDiff{
		Notes:    !same("notes"),
		Library:  !same("specialEffectLibrary"),
		Triggers: !same(fmt.Sprintf("meshes.%d.specialEffectTriggers", activeMesh)),
	}
}

// SetMeshIndex returns data with currentMeshIndex replaced.
func SetMeshIndex(data []byte, index int) ([]byte, error) {
	out, err := sjson.SetBytes(data, "currentMeshIndex", index)
	if err != nil {
		return nil, fmt.Errorf("livewall: set currentMeshIndex: %w", err)
	}
	return out, nil
}

// Reloader polls the configuration file. The file is read off the loop
// goroutine and the bytes are posted back, so apply always runs on the loop.
type Reloader struct {
	path     string
	interval time.Duration
	sched    *Scheduler
	apply    func(data []byte)

	timers  *TimerGroup
	modTime time.Time
	busy    bool
	stopped bool
}

// NewReloader creates a stopped reloader for path.
func NewReloader(sched *Scheduler, path string, interval time.Duration, apply func(data []byte)) *Reloader {
	return &Reloader{
		path:     path,
		interval: interval,
		sched:    sched,
		apply:    apply,
		timers:   NewTimerGroup(sched),
	}
}

// Start begins polling. The current modification time is the baseline.
func (r *Reloader) Start() {
	if r.interval <= 0 || r.path == "" {
		return
	}
	if fi, err := os.Stat(r.path); err == nil {
		r.modTime = fi.ModTime()
	}
	r.stopped = false
	r.timers.After(r.interval, r.poll)
}

// Stop ends polling. A read in flight is dropped.
func (r *Reloader) Stop() {
	r.stopped = true
	r.timers.CancelAll()
}

func (r *Reloader) poll() {
	if r.stopped {
		return
	}
	r.timers.After(r.interval, r.poll)
	if r.busy {
		return
	}
	r.busy = true
	since := r.modTime
	go func() {
		fi, err := os.Stat(r.path)
		if err != nil || !fi.ModTime().After(since) {
			r.sched.Post(func() { r.busy = false })
			return
		}
		data, err := os.ReadFile(r.path)
		r.sched.Post(func() {
			r.busy = false
			if r.stopped {
				return
			}
			if err != nil {
				log.Printf("livewall: reload %s: %v", r.path, err)
				return
			}
			r.modTime = fi.ModTime()
			r.apply(data)
		})
	}()
}

// Check reads the file synchronously and applies it.
func (r *Reloader) Check() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("livewall: reload: %w", err)
	}
	r.apply(data)
	return nil
}
