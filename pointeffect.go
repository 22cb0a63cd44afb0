package livewall

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
	"github.com/zyedidia/generic/mapset"
)

const (
	// pointEffectPoolSize caps the number of recycled tokens kept around.
	pointEffectPoolSize = 10
	// pointEffectFade is the fade-in and fade-out window of a token.
	pointEffectFade = 300 * time.Millisecond
	// defaultPointEffectDuration is used when a point effect sets no duration.
	defaultPointEffectDuration = time.Second
	// pointEffectShrink is the scale factor a token shrinks to while fading out.
	pointEffectShrink = 0.5
)

// pointToken is one click-spawned image. Tokens are pooled; gen is bumped on
// every recycle so callbacks queued for an earlier life can tell they are
// stale.
type pointToken struct {
	gen     uint64
	layer   *Layer
	image   string
	motion  *motionTrack
	created time.Duration
	raised  bool
	timers  *TimerGroup
	fade    *TweenGroup
}

// visible reports whether the token counts as shown: still attached and at
// full opacity.
func (t *pointToken) visible() bool {
	return t.raised && t.layer.Attached()
}

// keyframe is one sample of a motion track.
type keyframe struct {
	at       float64 // 0..1 through the period
	scale    float64
	rotation float64
}

// motionTrack is a looping keyframe animation for one style at one scale.
type motionTrack struct {
	period time.Duration
	frames []keyframe
}

type motionKey struct {
	style MotionStyle
	scale float64
}

// sample returns the interpolated scale and rotation at elapsed time d.
func (m *motionTrack) sample(d time.Duration) (float64, float64) {
	if len(m.frames) == 0 {
		return 1, 0
	}
	p := math.Mod(d.Seconds()/m.period.Seconds(), 1)
	for i := 1; i < len(m.frames); i++ {
		a, b := m.frames[i-1], m.frames[i]
		if p <= b.at {
			t := (p - a.at) / (b.at - a.at)
			return a.scale + (b.scale-a.scale)*t, a.rotation + (b.rotation-a.rotation)*t
		}
	}
	last := m.frames[len(m.frames)-1]
	return last.scale, last.rotation
}

// PointEffectTracker owns the click-spawned tokens, their pool and the
// per-image active sets.
type PointEffectTracker struct {
	sched  *Scheduler
	images *ImageCache
	rng    *rand.Rand

	tokens    []*pointToken
	active    map[string]mapset.Set[*pointToken]
	pool      []*pointToken
	keyframes map[motionKey]*motionTrack

	onComplete func(image string)
	disposed   bool
}

// NewPointEffectTracker creates an empty tracker.
func NewPointEffectTracker(sched *Scheduler, images *ImageCache, rng *rand.Rand) *PointEffectTracker {
	return &PointEffectTracker{
		sched:     sched,
		images:    images,
		rng:       rng,
		active:    make(map[string]mapset.Set[*pointToken]),
		keyframes: make(map[motionKey]*motionTrack),
	}
}

// OnComplete sets the callback invoked with the image identity each time a
// token finishes its lifecycle. Cleared tokens never report.
func (p *PointEffectTracker) OnComplete(fn func(image string)) {
	p.onComplete = fn
}

// Preload warms the image cache for every effect.
func (p *PointEffectTracker) Preload(effects []PointEffect) {
	for _, e := range effects {
		p.images.Preload(e.ImageFileName)
	}
}

// SelectByWeight picks one effect. With a total weight of zero the choice is
// uniform; otherwise a value in [0, total] is drawn and the first entry whose
// cumulative weight reaches it wins.
func (p *PointEffectTracker) SelectByWeight(effects []PointEffect) (PointEffect, bool) {
	return selectByWeight(effects, p.rng)
}

func selectByWeight(effects []PointEffect, rng *rand.Rand) (PointEffect, bool) {
	if len(effects) == 0 {
		return PointEffect{}, false
	}
	total := 0.0
	for _, e := range effects {
		if e.Weight > 0 {
			total += e.Weight
		}
	}
	if total <= 0 {
		return effects[rng.IntN(len(effects))], true
	}
	r := rng.Float64() * total
	cum := 0.0
	for _, e := range effects {
		if e.Weight > 0 {
			cum += e.Weight
		}
		if cum >= r && e.Weight > 0 {
			return e, true
		}
	}
	return effects[len(effects)-1], true
}

// obtain returns a pooled token or a new one.
func (p *PointEffectTracker) obtain() *pointToken {
	if n := len(p.pool); n > 0 {
		t := p.pool[n-1]
		p.pool[n-1] = nil
		p.pool = p.pool[:n-1]
		return t
	}
	return &pointToken{layer: newLayer("point", nil), timers: NewTimerGroup(p.sched)}
}

// recycle returns a detached token to the pool, or drops it when the pool
// is full.
func (p *PointEffectTracker) recycle(t *pointToken) {
	t.gen++
	t.raised = false
	t.motion = nil
	t.layer.Image = nil
	if len(p.pool) < pointEffectPoolSize {
		p.pool = append(p.pool, t)
	}
}

// motionFor returns the keyframe track for a style and scale, generating it
// on first use.
func (p *PointEffectTracker) motionFor(style MotionStyle, scale float64) *motionTrack {
	if style == MotionNone {
		return nil
	}
	key := motionKey{style, scale}
	if m, ok := p.keyframes[key]; ok {
		return m
	}
	var m *motionTrack
	switch style {
	case MotionWobble:
		deg := math.Pi / 180
		m = &motionTrack{period: 600 * time.Millisecond, frames: []keyframe{
			{0, scale, 0},
			{0.25, scale, 12 * deg},
			{0.75, scale, -12 * deg},
			{1, scale, 0},
		}}
	case MotionPulse:
		m = &motionTrack{period: 800 * time.Millisecond, frames: []keyframe{
			{0, scale, 0},
			{0.5, scale * 1.15, 0},
			{1, scale, 0},
		}}
	}
	p.keyframes[key] = m
	return m
}

// Show spawns a token for cfg at the screen point. It reports false if the
// image could not be loaded.
func (p *PointEffectTracker) Show(x, y float64, cfg PointEffect) bool {
	if p.disposed {
		return false
	}
	img := p.images.Get(cfg.ImageFileName)
	if img == nil {
		return false
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}
	dur := msDuration(float64(cfg.Duration))
	if dur <= 0 {
		dur = defaultPointEffectDuration
	}

	t := p.obtain()
	t.image = cfg.ImageFileName
	t.created = p.sched.Now()
	t.motion = p.motionFor(ParseMotionStyle(cfg.Animation), scale)
	l := t.layer
	l.Image = img
	l.X, l.Y = x, y
	l.Scale = scale
	l.Rotation = 0
	l.Alpha = 0
	l.detached = false
	p.tokens = append(p.tokens, t)

	set, ok := p.active[t.image]
	if !ok {
		set = mapset.New[*pointToken]()
		p.active[t.image] = set
	}
	set.Put(t)

	gen := t.gen
	p.sched.NextFrame(func() {
		if t.gen != gen || p.disposed {
			return
		}
		t.raised = true
		t.fade = p.sched.Animate(TweenAlpha(l, 1, pointEffectFade, ease.OutQuad))
	})
	t.timers.After(dur, func() {
		t.raised = false
		if t.fade != nil {
			t.fade.Stop()
		}
		t.fade = p.sched.Animate(TweenFade(l, 0, scale*pointEffectShrink, pointEffectFade, ease.InQuad))
	})
	t.timers.After(dur+pointEffectFade, func() {
		p.finish(t)
	})
	return true
}

// remove detaches t from the live list and its active set.
func (p *PointEffectTracker) remove(t *pointToken) {
	for i, c := range p.tokens {
		if c == t {
			copy(p.tokens[i:], p.tokens[i+1:])
			p.tokens[len(p.tokens)-1] = nil
			p.tokens = p.tokens[:len(p.tokens)-1]
			break
		}
	}
	if set, ok := p.active[t.image]; ok {
		set.Remove(t)
		if set.Size() == 0 {
			delete(p.active, t.image)
		}
	}
	t.layer.detached = true
	if t.fade != nil {
		t.fade.Stop()
		t.fade = nil
	}
}

// finish ends a token's natural lifecycle and reports it.
func (p *PointEffectTracker) finish(t *pointToken) {
	image := t.image
	p.remove(t)
	p.recycle(t)
	if p.onComplete != nil && !p.disposed {
		p.onComplete(image)
	}
}

// VisibleCount returns the number of visible tokens of an image.
func (p *PointEffectTracker) VisibleCount(image string) int {
	set, ok := p.active[image]
	if !ok {
		return 0
	}
	n := 0
	set.Each(func(t *pointToken) {
		if t.visible() {
			n++
		}
	})
	return n
}

// IsActiveSet reports whether every named image has at least one visible
// token. An empty list is never active.
func (p *PointEffectTracker) IsActiveSet(images []string) bool {
	if len(images) == 0 {
		return false
	}
	for _, img := range images {
		if p.VisibleCount(img) < 1 {
			return false
		}
	}
	return true
}

// IsCountReached reports whether, for every target, the number of visible
// tokens is exactly the configured count. More tokens than configured fails
// just like fewer.
func (p *PointEffectTracker) IsCountReached(targets []CountTarget) bool {
	if len(targets) == 0 {
		return false
	}
	for _, c := range targets {
		if p.VisibleCount(c.ImageFileName) != c.Count {
			return false
		}
	}
	return true
}

// Live returns the number of tokens currently on screen.
func (p *PointEffectTracker) Live() int {
	return len(p.tokens)
}

// ClearAll cancels every pending timer and removes all tokens immediately,
// without fading and without completion callbacks.
func (p *PointEffectTracker) ClearAll() {
	tokens := p.tokens
	p.tokens = nil
	for _, t := range tokens {
		t.timers.CancelAll()
		if t.fade != nil {
			t.fade.Stop()
			t.fade = nil
		}
		t.layer.detached = true
		p.recycle(t)
	}
	p.active = make(map[string]mapset.Set[*pointToken])
}

// Dispose clears every token and drops the pool.
func (p *PointEffectTracker) Dispose() {
	p.ClearAll()
	p.disposed = true
	p.pool = nil
}

// Draw renders every live token.
func (p *PointEffectTracker) Draw(dst *ebiten.Image) {
	now := p.sched.Now()
	for _, t := range p.tokens {
		if t.motion == nil {
			t.layer.Draw(dst)
			continue
		}
		scale, rot := t.motion.sample(now - t.created)
		l := *t.layer
		// Motion frames carry the base scale; fading shrinks relative to it.
		base := t.motion.frames[0].scale
		if base != 0 {
			l.Scale = scale * (t.layer.Scale / base)
		}
		l.Rotation = rot
		l.Draw(dst)
	}
}
