package livewall

import (
	"sync"
	"time"

	"github.com/zyedidia/generic/mapset"
)

// TimerID identifies a callback scheduled with Scheduler.After.
// The zero value never identifies a live timer.
type TimerID uint64

type timer struct {
	id  TimerID
	due time.Duration
	fn  func()
}

// Scheduler is the single cooperative event loop of a Runtime. Timers,
// next-frame callbacks and tweens all run on the goroutine that calls Advance,
// so nothing scheduled here ever needs locking. Post is the one entry point
// that other goroutines (audio decoders, asset loaders) may call.
//
// There is no wall-clock reading: time only moves when Advance is called,
// which keeps every sequence deterministic under test.
type Scheduler struct {
	now    time.Duration
	frame  uint64
	nextID TimerID

	timers    []timer
	nextFrame []func()
	tweens    []*TweenGroup

	postMu sync.Mutex
	posted []func()
}

// NewScheduler creates an idle scheduler at time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the elapsed scheduler time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Frame returns the number of completed Advance calls.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// After runs fn once d has elapsed. A non-positive d runs fn during the next
// Advance.
func (s *Scheduler) After(d time.Duration, fn func()) TimerID {
	if d < 0 {
		d = 0
	}
	s.nextID++
	id := s.nextID
	s.timers = append(s.timers, timer{id: id, due: s.now + d, fn: fn})
	return id
}

// Cancel removes a pending timer. It reports whether the timer was still
// pending.
func (s *Scheduler) Cancel(id TimerID) bool {
	for i := range s.timers {
		if s.timers[i].id == id {
			copy(s.timers[i:], s.timers[i+1:])
			s.timers[len(s.timers)-1] = timer{}
			s.timers = s.timers[:len(s.timers)-1]
			return true
		}
	}
	return false
}

// Pending returns the number of timers that have not fired yet.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

// NextFrame runs fn at the start of the next Advance call, before timers.
func (s *Scheduler) NextFrame(fn func()) {
	s.nextFrame = append(s.nextFrame, fn)
}

// Post queues fn to run on the loop goroutine during the next Advance.
// Safe for concurrent use.
func (s *Scheduler) Post(fn func()) {
	s.postMu.Lock()
	s.posted = append(s.posted, fn)
	s.postMu.Unlock()
}

// Animate registers a tween group that is stepped every Advance until Done.
func (s *Scheduler) Animate(g *TweenGroup) *TweenGroup {
	if g != nil {
		s.tweens = append(s.tweens, g)
	}
	return g
}

// Advance moves time forward by dt and runs, in order: posted callbacks,
// next-frame callbacks queued before this call, tweens, then every timer
// whose due time has been reached (earliest first, ties in scheduling order).
// Timers scheduled by those callbacks that are already due also run.
func (s *Scheduler) Advance(dt time.Duration) {
	s.frame++

	s.postMu.Lock()
	posted := s.posted
	s.posted = nil
	s.postMu.Unlock()
	for _, fn := range posted {
		fn()
	}

	queued := s.nextFrame
	s.nextFrame = nil
	for _, fn := range queued {
		fn()
	}

	if dt > 0 {
		s.now += dt
	}

	s.stepTweens(float32(dt.Seconds()))

	for {
		idx := s.earliestDue()
		if idx < 0 {
			return
		}
		t := s.timers[idx]
		copy(s.timers[idx:], s.timers[idx+1:])
		s.timers[len(s.timers)-1] = timer{}
		s.timers = s.timers[:len(s.timers)-1]
		t.fn()
	}
}

// earliestDue returns the index of the earliest due timer, or -1.
func (s *Scheduler) earliestDue() int {
	best := -1
	for i := range s.timers {
		if s.timers[i].due > s.now {
			continue
		}
		if best < 0 || s.timers[i].due < s.timers[best].due ||
			(s.timers[i].due == s.timers[best].due && s.timers[i].id < s.timers[best].id) {
			best = i
		}
	}
	return best
}

func (s *Scheduler) stepTweens(dt float32) {
	if len(s.tweens) == 0 {
		return
	}
	live := s.tweens[:0]
	for _, g := range s.tweens {
		g.Update(dt)
		if !g.Done {
			live = append(live, g)
		}
	}
	for i := len(live); i < len(s.tweens); i++ {
		s.tweens[i] = nil
	}
	s.tweens = live
}

// Reset drops every timer, tween and queued callback. Used on teardown.
func (s *Scheduler) Reset() {
	s.timers = nil
	s.nextFrame = nil
	for _, g := range s.tweens {
		g.Stop()
	}
	s.tweens = nil
	s.postMu.Lock()
	s.posted = nil
	s.postMu.Unlock()
}

// TimerGroup tracks timers that belong to one owner (a token, a flicker
// loop, a slot restore) so they can be cancelled together.
type TimerGroup struct {
	s   *Scheduler
	ids mapset.Set[TimerID]
}

// NewTimerGroup creates an empty group on s.
func NewTimerGroup(s *Scheduler) *TimerGroup {
	return &TimerGroup{s: s, ids: mapset.New[TimerID]()}
}

// After schedules fn like Scheduler.After and tracks the timer until it fires.
func (g *TimerGroup) After(d time.Duration, fn func()) TimerID {
	var id TimerID
	id = g.s.After(d, func() {
		g.ids.Remove(id)
		fn()
	})
	g.ids.Put(id)
	return id
}

// Cancel cancels one timer of the group.
func (g *TimerGroup) Cancel(id TimerID) {
	if g.ids.Has(id) {
		g.ids.Remove(id)
		g.s.Cancel(id)
	}
}

// CancelAll cancels every pending timer of the group.
func (g *TimerGroup) CancelAll() {
	g.ids.Each(func(id TimerID) {
		g.s.Cancel(id)
	})
	g.ids = mapset.New[TimerID]()
}

// Len returns the number of pending timers in the group.
func (g *TimerGroup) Len() int {
	return g.ids.Size()
}
