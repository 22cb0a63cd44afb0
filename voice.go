package livewall

import (
	"log"
	"math"
	"math/rand/v2"
)

// VoiceState is the coordinator's state.
type VoiceState uint8

const (
	VoiceIdle    VoiceState = iota // no animation started yet
	VoicePlaying                   // a variant is playing, no voice is waiting
	VoicePending                   // a queued variant's voice waits for its start
)

// String returns a readable state name.
func (s VoiceState) String() string {
	switch s {
	case VoicePlaying:
		return "playing"
	case VoicePending:
		return "pending-voice"
	default:
		return "idle"
	}
}

// mainTrack is the track every variant plays on.
const mainTrack = 0

// AnimationCoordinator owns the playing variant of one skeleton and its one
// voice channel.
type AnimationCoordinator struct {
	skel     Skeleton
	variants []AnimationVariant
	weights  []float64
	rng      *rand.Rand
	voices   map[string]Audio

	current      int // -1 while a one-shot or nothing plays
	queued       int
	pendingVoice int
	last         int
	voice        Audio
	started      bool
	suppressed   bool

	signal   SignalHandle
	disposed bool
}

// NewAnimationCoordinator normalises the variant weights, preloads every
// voice clip through media and starts a weighted-random first variant
// immediately. media may be nil for a silent skeleton.
func NewAnimationCoordinator(skel Skeleton, variants []AnimationVariant, media MediaBackend,
	resolve func(string) string, volume float64, signals *Signals, rng *rand.Rand) *AnimationCoordinator {
	c := &AnimationCoordinator{
		skel:         skel,
		variants:     variants,
		weights:      normalizeWeights(variants),
		rng:          rng,
		voices:       make(map[string]Audio),
		current:      -1,
		queued:       -1,
		pendingVoice: -1,
		last:         -1,
	}
	if resolve == nil {
		resolve = func(s string) string { return s }
	}
	for _, v := range variants {
		if v.Voice == "" || media == nil {
			continue
		}
		if _, ok := c.voices[v.Voice]; ok {
			continue
		}
		a, err := media.OpenAudio(resolve(v.Voice))
		if err != nil {
			log.Printf("livewall: voice %q for animation %q: %v", v.Voice, v.Name, err)
			continue
		}
		a.SetVolume(volume)
		a.SetLoop(false)
		c.voices[v.Voice] = a
	}
	for _, v := range variants {
		if !skel.HasAnimation(v.Name) {
			log.Printf("livewall: animation %q not found in skeleton", v.Name)
		}
	}
	skel.SetListener(c.onEvent)
	if signals != nil {
		c.signal = signals.Subscribe(c.onSignal)
	}
	if len(variants) > 0 {
		i := c.pick()
		c.last = i
		c.playNow(i, true)
	}
	return c
}

// normalizeWeights turns the configured weights into a distribution.
// Negative or invalid weights count as zero; all zero means uniform.
func normalizeWeights(variants []AnimationVariant) []float64 {
	w := make([]float64, len(variants))
	total := 0.0
	for i, v := range variants {
		if v.Weight > 0 && !math.IsInf(v.Weight, 0) && !math.IsNaN(v.Weight) {
			w[i] = v.Weight
			total += v.Weight
		}
	}
	for i := range w {
		if total > 0 {
			w[i] /= total
		} else {
			w[i] = 1 / float64(len(w))
		}
	}
	return w
}

// pick draws a variant index from the normalised weights.
func (c *AnimationCoordinator) pick() int {
	r := c.rng.Float64()
	cum := 0.0
	for i, w := range c.weights {
		cum += w
		if w > 0 && cum >= r {
			return i
		}
	}
	for i := len(c.weights) - 1; i >= 0; i-- {
		if c.weights[i] > 0 {
			return i
		}
	}
	return 0
}

// loops reports the loop policy of a variant: voiced variants play once.
func (c *AnimationCoordinator) loops(i int) bool {
	return c.variants[i].Voice == ""
}

// playNow replaces the track immediately and clears every queued entry.
func (c *AnimationCoordinator) playNow(i int, withVoice bool) {
	c.stopVoice()
	c.queued = -1
	c.pendingVoice = -1
	c.current = i
	c.started = true
	c.skel.SetAnimation(mainTrack, c.variants[i].Name, c.loops(i))
	if withVoice {
		c.playVoice(i)
	}
}

// playVoice starts the voice of variant i, stopping any other voice.
func (c *AnimationCoordinator) playVoice(i int) {
	if c.suppressed || c.disposed {
		return
	}
	a := c.voices[c.variants[i].Voice]
	if a == nil {
		return
	}
	c.stopVoice()
	c.voice = a
	if err := a.Play(); err != nil {
		log.Printf("livewall: voice %q: %v", c.variants[i].Voice, err)
		c.voice = nil
	}
}

func (c *AnimationCoordinator) stopVoice() {
	if c.voice != nil {
		c.voice.Stop()
		c.voice = nil
	}
}

// onEvent reacts to track lifecycle events of the skeleton.
func (c *AnimationCoordinator) onEvent(ev AnimationEvent) {
	if c.disposed || ev.Track != mainTrack || len(c.variants) == 0 {
		return
	}
	switch ev.Kind {
	case AnimationComplete:
		if c.queued >= 0 || (len(c.variants) < 2 && c.current >= 0) {
			return
		}
		next := c.pick()
		repeat := next == c.last
		c.last = next
		c.queued = next
		c.skel.AddAnimation(mainTrack, c.variants[next].Name, c.loops(next), 0)
		if !repeat && c.variants[next].Voice != "" {
			c.pendingVoice = next
		}
	case AnimationStart:
		if c.queued < 0 || ev.Name != c.variants[c.queued].Name {
			return
		}
		c.current = c.queued
		c.queued = -1
		if c.pendingVoice == c.current {
			c.pendingVoice = -1
			c.playVoice(c.current)
		}
	case AnimationInterrupt:
		// The queued entry itself was cut before it ever started.
		if c.queued >= 0 && ev.Name == c.variants[c.queued].Name &&
			(c.current < 0 || c.variants[c.current].Name != ev.Name) {
			c.queued = -1
			c.pendingVoice = -1
		}
	}
}

func (c *AnimationCoordinator) onSignal(s Signal) {
	switch s {
	case SignalOverlayActive:
		c.suppressed = true
		c.pendingVoice = -1
		c.stopVoice()
	case SignalOverlayInactive:
		c.suppressed = false
	}
}

// RequestVoiceAnimation interrupts everything and plays a uniformly chosen
// variant that has a voice. Without voiced variants it falls back to the
// weighted choice.
func (c *AnimationCoordinator) RequestVoiceAnimation() {
	if c.disposed || len(c.variants) == 0 {
		return
	}
	var voiced []int
	for i, v := range c.variants {
		if v.Voice != "" {
			voiced = append(voiced, i)
		}
	}
	var i int
	if len(voiced) > 0 {
		i = voiced[c.rng.IntN(len(voiced))]
	} else {
		i = c.pick()
	}
	c.skel.ClearQueue(mainTrack)
	c.last = i
	c.playNow(i, true)
}

// PlayOneShot interrupts the current variant with a named animation played
// once; normal selection resumes when it completes.
func (c *AnimationCoordinator) PlayOneShot(name string) {
	if c.disposed {
		return
	}
	if !c.skel.HasAnimation(name) {
		log.Printf("livewall: one-shot animation %q not found in skeleton", name)
		return
	}
	c.stopVoice()
	c.skel.ClearQueue(mainTrack)
	c.queued = -1
	c.pendingVoice = -1
	c.current = -1
	c.started = true
	c.skel.SetAnimation(mainTrack, name, false)
}

// State returns the coordinator's state.
func (c *AnimationCoordinator) State() VoiceState {
	switch {
	case !c.started:
		return VoiceIdle
	case c.pendingVoice >= 0:
		return VoicePending
	default:
		return VoicePlaying
	}
}

// Current returns the name of the playing variant, or "" during a one-shot.
func (c *AnimationCoordinator) Current() string {
	if c.current < 0 {
		return ""
	}
	return c.variants[c.current].Name
}

// Speaking reports whether a voice clip is playing.
func (c *AnimationCoordinator) Speaking() bool {
	return c.voice != nil && c.voice.Playing()
}

// Dispose stops the voice and detaches from the skeleton and the bus.
func (c *AnimationCoordinator) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	c.stopVoice()
	c.signal.Remove()
	c.skel.SetListener(nil)
	for _, a := range c.voices {
		a.Close()
	}
}
