package livewall

import (
	"log"
	"time"
)

// audioGrace is added to a presentation's length before an unready voice is
// given up on.
const audioGrace = 1500 * time.Millisecond

// SequenceEntry is one library effect scheduled by a trigger.
type SequenceEntry struct {
	Index  int
	Effect SpecialEffect
}

// sequenceRun is one Play call in flight.
type sequenceRun struct {
	entries []SequenceEntry
	pos     int
	played  []int
	onBatch func(played []int)

	// outstanding counts clips that have not ended yet.
	outstanding int
	presented   bool
	current     *presentation
	audio       []Audio
	timers      *TimerGroup
}

// release cancels r's timers and closes every clip it opened.
func (r *sequenceRun) release() {
	r.timers.CancelAll()
	for _, a := range r.audio {
		a.Close()
	}
	r.audio = nil
}

// Sequencer plays special-effect sequences one entry at a time. Runs queue
// behind each other; a run reports its batch only once its last presentation
// is over and every clip it started has ended.
type Sequencer struct {
	stage   *stage
	animate func(name string)

	run      *sequenceRun
	queue    []*sequenceRun
	live     []*presentation
	disposed bool
}

// newSequencer creates a sequencer drawing into st. animate, if not nil,
// plays an effect's one-shot animation.
func newSequencer(st *stage, animate func(name string)) *Sequencer {
	return &Sequencer{stage: st, animate: animate}
}

// Busy reports whether a run is playing or queued.
func (q *Sequencer) Busy() bool {
	return q.run != nil || len(q.queue) > 0
}

// Play queues entries. onBatch receives the library indices that were
// actually presented.
func (q *Sequencer) Play(entries []SequenceEntry, onBatch func(played []int)) {
	if q.disposed || len(entries) == 0 {
		return
	}
	r := &sequenceRun{
		entries: entries,
		onBatch: onBatch,
		timers:  NewTimerGroup(q.stage.sched),
	}
	if q.run != nil {
		q.queue = append(q.queue, r)
		return
	}
	q.run = r
	q.step(r)
}

// step presents the next entry of r, or marks r presented.
func (q *Sequencer) step(r *sequenceRun) {
	q.prune()
	for r.pos < len(r.entries) {
		e := r.entries[r.pos]
		r.pos++
		if e.Effect == nil {
			continue
		}
		p := q.stage.present(e.Effect)
		if p == nil {
			log.Printf("livewall: special effect %d (type %d) cannot be presented", e.Index, e.Effect.Kind())
			continue
		}
		r.played = append(r.played, e.Index)
		r.current = p
		q.live = append(q.live, p)
		if name := e.Effect.Base().AnimationName; name != "" && q.animate != nil {
			q.animate(name)
		}
		q.startAudio(r, p)
		switch {
		case p.untilDismissed:
			// Dismiss advances.
		case p.audio != nil && p.blocking:
			// The end of the clip advances.
		default:
			r.timers.After(p.duration, func() { q.advance(r, p) })
		}
		return
	}
	r.current = nil
	r.presented = true
	q.maybeFinish(r)
}

// startAudio wires the clip's end events and starts it.
func (q *Sequencer) startAudio(r *sequenceRun, p *presentation) {
	a := p.audio
	if a == nil {
		return
	}
	r.outstanding++
	r.audio = append(r.audio, a)
	ended := false
	finish := func() {
		if ended || q.run != r {
			return
		}
		ended = true
		r.outstanding--
		if p.blocking && !p.untilDismissed {
			q.advance(r, p)
		}
		q.maybeFinish(r)
	}
	p.finishAudio = finish
	a.OnEnded(finish)
	a.OnError(func(err error) {
		log.Printf("livewall: effect audio: %v", err)
		finish()
	})
	play := func() {
		if err := a.Play(); err != nil {
			log.Printf("livewall: effect audio: %v", err)
			finish()
		}
	}
	if p.audioDelay > 0 {
		p.timers.After(p.audioDelay, play)
	} else {
		play()
	}
	if p.stopAudioAt > 0 {
		p.timers.After(p.stopAudioAt, func() {
			a.Stop()
			finish()
		})
	}
	if !p.blocking || p.untilDismissed {
		return
	}
	// Fallback for a clip that never becomes ready or never reports its end.
	r.timers.After(p.duration+audioGrace, func() {
		if ended {
			return
		}
		if !a.Ready() {
			log.Printf("livewall: effect audio not ready after %v, continuing", p.duration+audioGrace)
			a.Stop()
			finish()
			return
		}
		d := a.Duration()
		if d <= 0 {
			log.Printf("livewall: effect audio has no length and did not end after %v, continuing", p.duration+audioGrace)
			a.Stop()
			finish()
			return
		}
		r.timers.After(d, func() {
			if !ended {
				a.Stop()
				finish()
			}
		})
	})
}

// advance moves r past p. Calls for anything but the current presentation
// are ignored.
func (q *Sequencer) advance(r *sequenceRun, p *presentation) {
	if q.run != r || r.current != p {
		return
	}
	r.current = nil
	q.step(r)
}

// maybeFinish reports r's batch once it is complete and starts the next run.
func (q *Sequencer) maybeFinish(r *sequenceRun) {
	if q.run != r || !r.presented || r.outstanding > 0 {
		return
	}
	q.run = nil
	r.release()
	if r.onBatch != nil {
		r.onBatch(append([]int(nil), r.played...))
	}
	if q.disposed || q.run != nil || len(q.queue) == 0 {
		return
	}
	next := q.queue[0]
	q.queue = q.queue[1:]
	q.run = next
	q.step(next)
}

// prune forgets presentations that have nothing left to do.
func (q *Sequencer) prune() {
	live := q.live[:0]
	for _, p := range q.live {
		if !p.idle() {
			live = append(live, p)
		}
	}
	for i := len(live); i < len(q.live); i++ {
		q.live[i] = nil
	}
	q.live = live
}

// Waiting reports whether the sequence is held by a card waiting for a click.
func (q *Sequencer) Waiting() bool {
	return q.run != nil && q.run.current != nil && q.run.current.untilDismissed
}

// Dismiss closes a card that waits for a click and stops its looping audio.
// It reports whether a card was dismissed.
func (q *Sequencer) Dismiss() bool {
	if !q.Waiting() {
		return false
	}
	r := q.run
	p := r.current
	p.untilDismissed = false
	p.dismiss()
	if a := p.audio; a != nil {
		if card, ok := p.effect.(*AlarmCardEffect); ok && (card.Loop || !a.Playing()) {
			a.Stop()
			p.finishAudio()
		}
	}
	q.advance(r, p)
	return true
}

// Cancel stops every run and presentation without reporting batches.
func (q *Sequencer) Cancel() {
	runs := q.queue
	q.queue = nil
	if q.run != nil {
		runs = append(runs, q.run)
		q.run = nil
	}
	for _, r := range runs {
		r.release()
	}
	for _, p := range q.live {
		p.stop()
	}
	q.live = nil
}

// Dispose cancels everything and refuses new runs.
func (q *Sequencer) Dispose() {
	q.Cancel()
	q.disposed = true
}

// Live returns the number of presentations still running or on screen.
func (q *Sequencer) Live() int {
	q.prune()
	return len(q.live)
}
