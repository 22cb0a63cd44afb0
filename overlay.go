package livewall

import (
	"context"
	"image/color"
	"log"
	"math/rand/v2"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/looplab/fsm"
)

// Overlay states.
const (
	OverlayIdle      = "idle"
	OverlayPlaying   = "playing"
	OverlayAudioTail = "audioTail"
)

const (
	overlayBufferAhead    = 3 * time.Second
	overlayBufferFraction = 0.5
	overlayBufferTimeout  = 5 * time.Second
	overlayBufferPoll     = 100 * time.Millisecond
	overlayRetryText      = "Click to play"
)

// MusicPlayer is the background music channel an overlay may pause.
type MusicPlayer interface {
	Pause()
	Resume()
}

// OverlayHooks are called on the loop goroutine. OnStart runs once the item
// is set up and is where a mesh preload begins; OnEnd runs after every media
// element of the item has finished or the user closed it; OnAbort runs when
// a newer item replaced it.
type OverlayHooks struct {
	OnStart func(item OverlayMediaItem)
	OnEnd   func(item OverlayMediaItem)
	OnAbort func(item OverlayMediaItem)
}

// overlaySession is the one active item.
type overlaySession struct {
	item        OverlayMediaItem
	path        string
	video       Video
	audio       Audio
	audioDone   bool
	pausedMusic bool
	gpuPaused   bool
	retry       bool
	retried     bool
	buffering   bool
	timers      *TimerGroup
}

// OverlayController plays the single full-screen video overlay. Starting an
// item always tears the previous one down first.
type OverlayController struct {
	sched    *Scheduler
	media    MediaBackend
	renderer Renderer
	music    MusicPlayer
	signals  *Signals
	rng      *rand.Rand
	resolve  func(string) string
	volume   func() float64

	// Before start, the runtime clears point effects and restores regions.
	beforeStart func()

	fsm     *fsm.FSM
	session *overlaySession
	hooks   OverlayHooks
	prompt  *Layer
}

// NewOverlayController creates an idle controller.
func NewOverlayController(sched *Scheduler, media MediaBackend, renderer Renderer, signals *Signals, rng *rand.Rand) *OverlayController {
	o := &OverlayController{
		sched:    sched,
		media:    media,
		renderer: renderer,
		signals:  signals,
		rng:      rng,
		resolve:  func(s string) string { return s },
		volume:   func() float64 { return 1 },
	}
	o.fsm = fsm.NewFSM(
		OverlayIdle,
		fsm.Events{
			{Name: "start", Src: []string{OverlayIdle}, Dst: OverlayPlaying},
			{Name: "videoEnded", Src: []string{OverlayPlaying}, Dst: OverlayAudioTail},
			{Name: "finish", Src: []string{OverlayPlaying, OverlayAudioTail}, Dst: OverlayIdle},
		},
		fsm.Callbacks{},
	)
	o.prompt = newLayer("retry", nil)
	o.prompt.Text = overlayRetryText
	o.prompt.Scale = 2
	o.prompt.Alpha = 1
	return o
}

// SetHooks replaces the lifecycle hooks.
func (o *OverlayController) SetHooks(h OverlayHooks) {
	o.hooks = h
}

// SetMusic sets the background music channel.
func (o *OverlayController) SetMusic(m MusicPlayer) {
	o.music = m
}

func (o *OverlayController) event(name string) {
	if err := o.fsm.Event(context.Background(), name); err != nil {
		log.Printf("livewall: overlay %s in state %s: %v", name, o.fsm.Current(), err)
	}
}

// State returns the current state name.
func (o *OverlayController) State() string {
	return o.fsm.Current()
}

// Active reports whether an item is playing or finishing its audio.
func (o *OverlayController) Active() bool {
	return o.session != nil
}

// VideoVisible reports whether a video element is attached.
func (o *OverlayController) VideoVisible() bool {
	return o.session != nil && o.session.video != nil && o.session.video.Attached()
}

// RetryPending reports whether the retry prompt is shown.
func (o *OverlayController) RetryPending() bool {
	return o.session != nil && o.session.retry
}

// pickVideo returns the item's video path, choosing at random from a list.
func (o *OverlayController) pickVideo(item OverlayMediaItem) string {
	if len(item.Videos) > 0 {
		return item.Videos[o.rng.IntN(len(item.Videos))]
	}
	return item.Video
}

// Start tears down any active item and starts item. It reports false when the
// item names no video.
func (o *OverlayController) Start(item OverlayMediaItem) bool {
	path := o.pickVideo(item)
	if path == "" {
		log.Printf("livewall: overlay item has no video")
		return false
	}
	if o.session != nil {
		o.teardown(false)
	}
	if o.beforeStart != nil {
		o.beforeStart()
	}

	s := &overlaySession{item: item, path: path, timers: NewTimerGroup(o.sched)}
	o.session = s
	if item.PauseBackgroundMusic && o.music != nil {
		o.music.Pause()
		s.pausedMusic = true
	}
	vol := 1.0
	if item.Volume != nil {
		vol = *item.Volume
	}
	if item.Audio != "" && o.media != nil {
		a, err := o.media.OpenAudio(o.resolve(item.Audio))
		if err != nil {
			log.Printf("livewall: overlay audio %q: %v", item.Audio, err)
		} else {
			a.SetVolume(vol * o.volume())
			a.SetLoop(item.Loop)
			a.OnEnded(func() { o.onAudioEnded(s) })
			a.OnError(func(err error) {
				log.Printf("livewall: overlay audio %q: %v", item.Audio, err)
				o.onAudioEnded(s)
			})
			s.audio = a
		}
	}
	if s.audio == nil {
		s.audioDone = true
	}

	if o.renderer != nil {
		o.renderer.PauseGPU()
		s.gpuPaused = true
	}
	o.event("start")
	o.signals.Emit(SignalOverlayActive)
	if o.hooks.OnStart != nil {
		o.hooks.OnStart(item)
	}
	o.open(s)
	return true
}

// open creates the video element and waits for it to buffer.
func (o *OverlayController) open(s *overlaySession) {
	if o.session != s {
		return
	}
	if s.video == nil {
		if o.media == nil {
			o.showRetry(s, nil)
			return
		}
		v, err := o.media.OpenVideo(o.resolve(s.path))
		if err != nil {
			o.showRetry(s, err)
			return
		}
		vol := 1.0
		if s.item.Volume != nil {
			vol = *s.item.Volume
		}
		// A separate track carries the sound; the video stays muted so it
		// may autoplay.
		v.SetMuted(s.audio != nil || s.item.Muted)
		v.SetVolume(vol * o.volume())
		v.SetLoop(s.item.Loop)
		v.OnEnded(func() { o.onVideoEnded(s) })
		v.OnError(func(err error) { o.showRetry(s, err) })
		s.video = v
	}
	s.buffering = true
	start := o.sched.Now()
	var poll func()
	poll = func() {
		if o.session != s {
			return
		}
		if bufferReady(s.video.Buffer()) || o.sched.Now()-start >= overlayBufferTimeout {
			s.buffering = false
			o.play(s)
			return
		}
		s.timers.After(overlayBufferPoll, poll)
	}
	poll()
}

// bufferReady is the readiness heuristic for starting playback.
func bufferReady(b BufferState) bool {
	return b.CanPlayThrough || b.Ahead >= overlayBufferAhead || b.Fraction >= overlayBufferFraction
}

func (o *OverlayController) play(s *overlaySession) {
	if err := s.video.Play(); err != nil {
		o.showRetry(s, err)
		return
	}
	if s.audio != nil && !s.audioDone && !s.audio.Playing() {
		if err := s.audio.Play(); err != nil {
			log.Printf("livewall: overlay audio %q: %v", s.item.Audio, err)
			s.audioDone = true
		}
	}
}

// showRetry keeps the overlay up with a prompt instead of closing it.
func (o *OverlayController) showRetry(s *overlaySession, err error) {
	if o.session != s || s.retry {
		return
	}
	log.Printf("livewall: overlay video %q could not play: %v", s.path, err)
	s.retry = true
	s.buffering = false
	s.timers.CancelAll()
}

// Retry attempts playback again after a failure.
func (o *OverlayController) Retry() bool {
	s := o.session
	if s == nil || !s.retry {
		return false
	}
	s.retry = false
	s.retried = true
	o.open(s)
	return true
}

func (o *OverlayController) onVideoEnded(s *overlaySession) {
	if o.session != s || !o.fsm.Is(OverlayPlaying) {
		return
	}
	if s.audio != nil && !s.audioDone && s.audio.Playing() {
		s.video.Stop()
		s.video.Detach()
		if s.gpuPaused {
			o.renderer.ResumeGPU()
			s.gpuPaused = false
		}
		o.event("videoEnded")
		return
	}
	o.teardown(true)
}

func (o *OverlayController) onAudioEnded(s *overlaySession) {
	if o.session != s || s.audioDone {
		return
	}
	s.audioDone = true
	if o.fsm.Is(OverlayAudioTail) {
		o.teardown(true)
	}
}

// Close is the user's click-to-close: a full teardown, including a separate
// audio track that is still playing. The end hook runs.
func (o *OverlayController) Close() {
	if o.session != nil {
		o.teardown(true)
	}
}

// HandleClick consumes a click while an overlay is up: it retries a failed
// start once and otherwise closes the overlay.
func (o *OverlayController) HandleClick() bool {
	s := o.session
	if s == nil {
		return false
	}
	if !s.retried && o.Retry() {
		return true
	}
	o.Close()
	return true
}

// teardown releases the session. completed selects the end hook over the
// abort hook.
func (o *OverlayController) teardown(completed bool) {
	s := o.session
	if s == nil {
		return
	}
	o.session = nil
	s.timers.CancelAll()
	if s.video != nil {
		s.video.Stop()
		s.video.Detach()
		s.video.Close()
	}
	if s.audio != nil {
		s.audio.Close()
	}
	if s.gpuPaused && o.renderer != nil {
		o.renderer.ResumeGPU()
	}
	if s.pausedMusic && o.music != nil {
		o.music.Resume()
	}
	o.event("finish")
	o.signals.Emit(SignalOverlayInactive)
	if completed {
		if o.hooks.OnEnd != nil {
			o.hooks.OnEnd(s.item)
		}
	} else if o.hooks.OnAbort != nil {
		o.hooks.OnAbort(s.item)
	}
}

// Dispose tears down without calling hooks.
func (o *OverlayController) Dispose() {
	o.hooks = OverlayHooks{}
	o.teardown(false)
}

// Draw renders the current video frame stretched over dst, or the retry
// prompt.
func (o *OverlayController) Draw(dst *ebiten.Image) {
	s := o.session
	if s == nil {
		return
	}
	if s.retry {
		w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
		dst.Fill(color.Black)
		o.prompt.X, o.prompt.Y = float64(w)/2, float64(h)/2
		o.prompt.Draw(dst)
		return
	}
	if s.video == nil || !s.video.Attached() {
		return
	}
	frame := s.video.Frame()
	if frame == nil {
		return
	}
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	if fw == 0 || fh == 0 {
		return
	}
	dw, dh := dst.Bounds().Dx(), dst.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(dw)/float64(fw), float64(dh)/float64(fh))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(frame, op)
}
