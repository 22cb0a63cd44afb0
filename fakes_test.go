package livewall

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// frame is the step used by tests, one 60 TPS tick.
const frame = time.Second / 60

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

// advance steps s in frames until d has elapsed.
func advance(s *Scheduler, d time.Duration) {
	for d > 0 {
		step := min(frame, d)
		s.Advance(step)
		d -= step
	}
}

// --- skeleton ---

type fakeAttachment string

func (a fakeAttachment) Name() string { return string(a) }

type fakeSlot struct {
	name  string
	att   Attachment
	setup Attachment
	alpha float64
	verts []float64
}

// newFakeSlot creates a slot whose quad is w x h around (x, y) in skeleton
// space.
func newFakeSlot(name string, x, y, w, h float64) *fakeSlot {
	a := fakeAttachment(name)
	return &fakeSlot{
		name:  name,
		att:   a,
		setup: a,
		alpha: 1,
		verts: []float64{x - w/2, y - h/2, x + w/2, y - h/2, x + w/2, y + h/2, x - w/2, y + h/2},
	}
}

func (s *fakeSlot) Name() string                  { return s.name }
func (s *fakeSlot) Attachment() Attachment        { return s.att }
func (s *fakeSlot) SetAttachment(a Attachment)    { s.att = a }
func (s *fakeSlot) Alpha() float64                { return s.alpha }
func (s *fakeSlot) SetAlpha(a float64)            { s.alpha = a }
func (s *fakeSlot) DefaultAttachment() Attachment { return s.setup }
func (s *fakeSlot) ClearDefaultAttachment()       { s.setup = nil }
func (s *fakeSlot) WorldVertices() []float64      { return s.verts }

type queuedAnimation struct {
	name string
	loop bool
}

// fakeSkeleton records track calls and emits lifecycle events the way a
// skeletal runtime does: Start synchronously on SetAnimation, Complete and
// the queue hand-over only when the test calls complete.
type fakeSkeleton struct {
	anims    map[string]bool
	slots    []*fakeSlot
	listener func(AnimationEvent)

	current  string
	loop     bool
	queue    []queuedAnimation
	calls    []string
	updates  int
	disposed bool
}

func newFakeSkeleton(anims []string, slots ...*fakeSlot) *fakeSkeleton {
	s := &fakeSkeleton{anims: make(map[string]bool), slots: slots}
	for _, a := range anims {
		s.anims[a] = true
	}
	return s
}

func (s *fakeSkeleton) emit(kind AnimationEventKind, name string) {
	if s.listener != nil {
		s.listener(AnimationEvent{Kind: kind, Track: 0, Name: name})
	}
}

func (s *fakeSkeleton) SetAnimation(track int, name string, loop bool) {
	s.calls = append(s.calls, fmt.Sprintf("set:%s", name))
	prev := s.current
	s.queue = nil
	s.current, s.loop = name, loop
	if prev != "" {
		s.emit(AnimationInterrupt, prev)
		s.emit(AnimationEnd, prev)
	}
	s.emit(AnimationStart, name)
}

func (s *fakeSkeleton) AddAnimation(track int, name string, loop bool, delay float64) {
	s.calls = append(s.calls, fmt.Sprintf("add:%s", name))
	s.queue = append(s.queue, queuedAnimation{name, loop})
}

func (s *fakeSkeleton) ClearQueue(track int) {
	s.calls = append(s.calls, "clear")
	s.queue = nil
}

func (s *fakeSkeleton) HasAnimation(name string) bool { return s.anims[name] }

func (s *fakeSkeleton) FindSlot(name string) Slot {
	for _, sl := range s.slots {
		if sl.name == name {
			return sl
		}
	}
	return nil
}

func (s *fakeSkeleton) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	for i, sl := range s.slots {
		out[i] = sl
	}
	return out
}

func (s *fakeSkeleton) SetListener(fn func(AnimationEvent)) { s.listener = fn }
func (s *fakeSkeleton) Update(dt float64)                   { s.updates++ }
func (s *fakeSkeleton) Draw(dst *ebiten.Image, p Placement) {}
func (s *fakeSkeleton) Dispose()                            { s.disposed = true }

// complete finishes one loop of the current entry and, when something is
// queued, hands the track over to it.
func (s *fakeSkeleton) complete() {
	cur := s.current
	s.emit(AnimationComplete, cur)
	if len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.current, s.loop = next.name, next.loop
	s.emit(AnimationEnd, cur)
	s.emit(AnimationStart, next.name)
}

// slot returns the named fake slot or fails the test.
func (s *fakeSkeleton) slot(t *testing.T, name string) *fakeSlot {
	t.Helper()
	for _, sl := range s.slots {
		if sl.name == name {
			return sl
		}
	}
	t.Fatalf("no slot %q", name)
	return nil
}

// --- media ---

type fakeAudio struct {
	path     string
	playing  bool
	paused   bool
	plays    int
	stops    int
	closes   int
	volume   float64
	loop     bool
	ready    bool
	duration time.Duration
	playErr  error

	onEnded func()
	onError func(error)
}

func (a *fakeAudio) Play() error {
	if a.playErr != nil {
		return a.playErr
	}
	a.plays++
	a.playing = true
	a.paused = false
	return nil
}

func (a *fakeAudio) Pause()                  { a.paused = true }
func (a *fakeAudio) Resume()                 { a.paused = false }
func (a *fakeAudio) SetVolume(v float64)     { a.volume = v }
func (a *fakeAudio) SetLoop(loop bool)       { a.loop = loop }
func (a *fakeAudio) Ready() bool             { return a.ready }
func (a *fakeAudio) Playing() bool           { return a.playing }
func (a *fakeAudio) Duration() time.Duration { return a.duration }
func (a *fakeAudio) OnEnded(fn func())       { a.onEnded = fn }
func (a *fakeAudio) OnError(fn func(error))  { a.onError = fn }

func (a *fakeAudio) Stop() {
	a.stops++
	a.playing = false
}

func (a *fakeAudio) Close() {
	a.closes++
	a.playing = false
	a.ready = false
}

// end reports the natural end of the clip.
func (a *fakeAudio) end() {
	a.playing = false
	if a.onEnded != nil {
		a.onEnded()
	}
}

type fakeVideo struct {
	fakeAudio
	muted    bool
	buffer   BufferState
	attached bool
	frame    *ebiten.Image
}

func (v *fakeVideo) SetMuted(m bool)      { v.muted = m }
func (v *fakeVideo) Buffer() BufferState  { return v.buffer }
func (v *fakeVideo) Frame() *ebiten.Image { return v.frame }
func (v *fakeVideo) Detach()              { v.attached = false }
func (v *fakeVideo) Attached() bool       { return v.attached }

// fakeMedia opens fake clips and remembers every one it returned.
type fakeMedia struct {
	audio     map[string][]*fakeAudio
	video     map[string][]*fakeVideo
	audioErr  map[string]error
	videoErr  map[string]error
	durations map[string]time.Duration
	buffer    BufferState
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		audio:     make(map[string][]*fakeAudio),
		video:     make(map[string][]*fakeVideo),
		audioErr:  make(map[string]error),
		videoErr:  make(map[string]error),
		durations: make(map[string]time.Duration),
		buffer:    BufferState{CanPlayThrough: true},
	}
}

func (m *fakeMedia) OpenAudio(path string) (Audio, error) {
	if err := m.audioErr[path]; err != nil {
		return nil, err
	}
	a := &fakeAudio{path: path, ready: true, volume: 1, duration: m.durations[path]}
	m.audio[path] = append(m.audio[path], a)
	return a, nil
}

func (m *fakeMedia) OpenVideo(path string) (Video, error) {
	if err := m.videoErr[path]; err != nil {
		return nil, err
	}
	v := &fakeVideo{fakeAudio: fakeAudio{path: path, ready: true, volume: 1}, buffer: m.buffer, attached: true}
	m.video[path] = append(m.video[path], v)
	return v, nil
}

// lastAudio returns the most recently opened clip for path.
func (m *fakeMedia) lastAudio(t *testing.T, path string) *fakeAudio {
	t.Helper()
	l := m.audio[path]
	if len(l) == 0 {
		t.Fatalf("audio %q was never opened", path)
	}
	return l[len(l)-1]
}

func (m *fakeMedia) lastVideo(t *testing.T, path string) *fakeVideo {
	t.Helper()
	l := m.video[path]
	if len(l) == 0 {
		t.Fatalf("video %q was never opened", path)
	}
	return l[len(l)-1]
}

// --- renderer ---

type fakeRenderer struct {
	paused     int
	resumed    int
	frames     int
	w, h       int
	background string
}

func (r *fakeRenderer) RenderFrame(dst *ebiten.Image) { r.frames++ }
func (r *fakeRenderer) PauseGPU()                     { r.paused++ }
func (r *fakeRenderer) ResumeGPU()                    { r.resumed++ }
func (r *fakeRenderer) Resize(w, h int)               { r.w, r.h = w, h }
func (r *fakeRenderer) SetBackground(path string, transition time.Duration) {
	r.background = path
}

// gpuPaused reports whether pauses outnumber resumes.
func (r *fakeRenderer) gpuPaused() bool { return r.paused > r.resumed }

// --- loader ---

// fakeLoader builds skeletons per mesh name. Load may run on another
// goroutine.
type fakeLoader struct {
	mu     sync.Mutex
	build  map[string]func() *fakeSkeleton
	errs   map[string]error
	loaded []*fakeSkeleton
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{build: make(map[string]func() *fakeSkeleton), errs: make(map[string]error)}
}

func (l *fakeLoader) Load(ctx context.Context, mesh MeshConfig) (Skeleton, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.errs[mesh.Name]; err != nil {
		return nil, err
	}
	b, ok := l.build[mesh.Name]
	if !ok {
		return nil, errors.New("unknown mesh")
	}
	s := b()
	l.loaded = append(l.loaded, s)
	return s, nil
}

func (l *fakeLoader) setErr(name string, err error) {
	l.mu.Lock()
	l.errs[name] = err
	l.mu.Unlock()
}

func (l *fakeLoader) last() *fakeSkeleton {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.loaded) == 0 {
		return nil
	}
	return l.loaded[len(l.loaded)-1]
}

// --- images ---

// fakeImages returns a source that serves small blank images, failing for
// the given names.
func fakeImages(missing ...string) ImageSource {
	bad := make(map[string]bool)
	for _, m := range missing {
		bad[m] = true
	}
	return func(path string) (*ebiten.Image, error) {
		for m := range bad {
			if len(path) >= len(m) && path[len(path)-len(m):] == m {
				return nil, errors.New("missing")
			}
		}
		return ebiten.NewImage(8, 8), nil
	}
}
