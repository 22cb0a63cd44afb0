package livewall

import (
	"reflect"
	"testing"
	"time"

	"github.com/tanema/gween/ease"
)

func TestSchedulerTimerOrder(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.After(30*time.Millisecond, func() { got = append(got, "c") })
	s.After(10*time.Millisecond, func() { got = append(got, "a") })
	s.After(10*time.Millisecond, func() { got = append(got, "b") })

	s.Advance(5 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	s.Advance(50 * time.Millisecond)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", s.Pending())
	}
}

func TestSchedulerCancel(t *testing.T) {
	s := NewScheduler()
	fired := false
	id := s.After(time.Millisecond, func() { fired = true })
	if !s.Cancel(id) {
		t.Fatal("Cancel = false, want true")
	}
	if s.Cancel(id) {
		t.Error("second Cancel = true, want false")
	}
	s.Advance(time.Second)
	if fired {
		t.Error("cancelled timer fired")
	}
}

func TestSchedulerChainedDueTimersRunSameAdvance(t *testing.T) {
	s := NewScheduler()
	var got []int
	s.After(10*time.Millisecond, func() {
		got = append(got, 1)
		s.After(0, func() { got = append(got, 2) })
	})
	s.Advance(20 * time.Millisecond)
	if want := []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSchedulerNextFrame(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.NextFrame(func() {
		got = append(got, "next")
		s.NextFrame(func() { got = append(got, "after") })
	})
	s.After(0, func() { got = append(got, "timer") })

	s.Advance(frame)
	if want := []string{"next", "timer"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("first frame = %v, want %v", got, want)
	}
	s.Advance(frame)
	if want := []string{"next", "timer", "after"}; !reflect.DeepEqual(got, want) {
		t.Errorf("second frame = %v, want %v", got, want)
	}
}

func TestSchedulerPostFromGoroutine(t *testing.T) {
	s := NewScheduler()
	done := make(chan struct{})
	ran := false
	go func() {
		s.Post(func() { ran = true })
		close(done)
	}()
	<-done
	if ran {
		t.Fatal("posted callback ran before Advance")
	}
	s.Advance(0)
	if !ran {
		t.Error("posted callback did not run")
	}
}

func TestSchedulerFrameCounter(t *testing.T) {
	s := NewScheduler()
	for i := 0; i < 3; i++ {
		s.Advance(frame)
	}
	if s.Frame() != 3 {
		t.Errorf("Frame = %d, want 3", s.Frame())
	}
	if s.Now() != 3*frame {
		t.Errorf("Now = %v, want %v", s.Now(), 3*frame)
	}
}

func TestSchedulerAnimate(t *testing.T) {
	s := NewScheduler()
	l := newLayer("l", nil)
	done := false
	g := s.Animate(TweenAlpha(l, 1, 100*time.Millisecond, ease.Linear))
	g.OnDone = func() { done = true }

	advance(s, 50*time.Millisecond)
	if l.Alpha <= 0 || l.Alpha >= 1 {
		t.Errorf("Alpha mid-tween = %v, want between 0 and 1", l.Alpha)
	}
	advance(s, 100*time.Millisecond)
	if l.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1", l.Alpha)
	}
	if !done {
		t.Error("OnDone did not run")
	}
}

func TestTweenStopsOnDetachedLayer(t *testing.T) {
	s := NewScheduler()
	l := newLayer("l", nil)
	g := s.Animate(TweenAlpha(l, 1, 100*time.Millisecond, ease.Linear))
	l.detached = true
	s.Advance(frame)
	if !g.Done {
		t.Error("Done = false, want true")
	}
	if l.Alpha != 0 {
		t.Errorf("Alpha = %v, want 0", l.Alpha)
	}
}

func TestSchedulerReset(t *testing.T) {
	s := NewScheduler()
	fired := false
	s.After(0, func() { fired = true })
	s.NextFrame(func() { fired = true })
	s.Post(func() { fired = true })
	s.Reset()
	s.Advance(time.Second)
	if fired {
		t.Error("callback survived Reset")
	}
}

func TestTimerGroup(t *testing.T) {
	s := NewScheduler()
	g := NewTimerGroup(s)
	count := 0
	g.After(10*time.Millisecond, func() { count++ })
	id := g.After(20*time.Millisecond, func() { count += 10 })
	g.After(30*time.Millisecond, func() { count += 100 })
	if g.Len() != 3 {
		t.Fatalf("Len = %d, want 3", g.Len())
	}

	s.Advance(15 * time.Millisecond)
	if g.Len() != 2 {
		t.Errorf("Len after one fired = %d, want 2", g.Len())
	}
	g.Cancel(id)
	s.Advance(10 * time.Millisecond)
	g.CancelAll()
	s.Advance(time.Second)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if g.Len() != 0 || s.Pending() != 0 {
		t.Errorf("Len = %d, Pending = %d, want 0, 0", g.Len(), s.Pending())
	}
}
