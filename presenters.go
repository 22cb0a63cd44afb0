package livewall

import (
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/tanema/gween/ease"
	"github.com/zyedidia/generic/mapset"
)

const (
	// composeAppearFade is the fade-in of each compose image as it appears.
	composeAppearFade = 150 * time.Millisecond
	// cardTextScale enlarges the bitmap font of alarm cards.
	cardTextScale = 3
	// cardDismissFade is the fade-out of a card that waited for a click.
	cardDismissFade = 300 * time.Millisecond
)

// stage is what the presenters draw into and read from. Regions is a func
// because the active skeleton changes on a mesh switch.
type stage struct {
	sched   *Scheduler
	images  *ImageCache
	layers  *LayerStack
	media   MediaBackend
	rng     *rand.Rand
	regions func() *RegionController
	canvas  func() (float64, float64)
	resolve func(string) string
	volume  func() float64
}

// presentation is one running special effect.
type presentation struct {
	effect   SpecialEffect
	audio    Audio
	duration time.Duration
	// audioDelay postpones Play; flicker voices start mid-effect.
	audioDelay time.Duration
	// blocking audio must end before the sequence advances.
	blocking bool
	// untilDismissed presentations wait for Dismiss instead of a timer.
	untilDismissed bool
	// stopAudioAt cuts a looping clip when the presentation ends.
	stopAudioAt time.Duration

	stage   *stage
	timers  *TimerGroup
	layers  []*Layer
	cleanup func()
	dismiss func()
	stopped bool

	finishAudio func()
}

// idle reports whether nothing of p is left running or on screen.
func (p *presentation) idle() bool {
	return p.stopped || (p.timers.Len() == 0 && len(p.layers) == 0)
}

// add creates an attached layer for img. A missing image yields a detached
// layer so the timeline still runs.
func (p *presentation) add(name string) *Layer {
	img := p.stage.images.Get(name)
	l := newLayer(name, img)
	p.layers = append(p.layers, l)
	if img != nil {
		p.stage.layers.Add(l)
	} else {
		l.detached = true
	}
	return l
}

// removeLayers detaches every layer of the presentation.
func (p *presentation) removeLayers() {
	for _, l := range p.layers {
		if l.Attached() {
			p.stage.layers.Remove(l)
		}
	}
	p.layers = nil
}

// stop cancels the timeline and removes everything it drew.
func (p *presentation) stop() {
	if p.stopped {
		return
	}
	p.stopped = true
	p.timers.CancelAll()
	p.removeLayers()
	if p.cleanup != nil {
		p.cleanup()
	}
}

// fadeOutAt schedules a fade to transparent at t and removal at t+d.
func (p *presentation) fadeOutAt(t, d time.Duration) {
	p.timers.After(t, func() {
		for _, l := range p.layers {
			p.stage.sched.Animate(TweenAlpha(l, 0, d, ease.InQuad))
		}
	})
	p.timers.After(t+d, p.removeLayers)
}

// openAudio opens the effect's voice clip, or returns nil.
func (s *stage) openAudio(b EffectBase, loop bool) Audio {
	if b.AudioFileName == "" || s.media == nil {
		return nil
	}
	a, err := s.media.OpenAudio(s.resolve(b.AudioFileName))
	if err != nil {
		log.Printf("livewall: effect audio %q: %v", b.AudioFileName, err)
		return nil
	}
	a.SetVolume(b.volume() * s.volume())
	a.SetLoop(loop)
	return a
}

// present starts the routine for e.
func (s *stage) present(e SpecialEffect) *presentation {
	p := &presentation{effect: e, stage: s, timers: NewTimerGroup(s.sched), blocking: true}
	switch e := e.(type) {
	case *FadeImageEffect:
		s.fadeImage(p, e)
	case *ComposeEffect:
		s.compose(p, e)
	case *SlideInEffect:
		s.slideIn(p, e)
	case *ScaleFadeEffect:
		s.scaleFade(p, e)
	case *FlickerEffect:
		s.flicker(p, e)
	case *AlarmCardEffect:
		s.alarmCard(p, e)
	default:
		return nil
	}
	return p
}

func (s *stage) fadeImage(p *presentation, e *FadeImageEffect) {
	w, h := s.canvas()
	l := p.add(e.ImageFileName)
	l.X, l.Y = w*e.XPercent/100, h*e.YPercent/100
	l.Scale = e.Scale
	s.sched.Animate(TweenAlpha(l, 1, msDuration(e.FadeInDuration), ease.OutQuad))
	p.fadeOutAt(msDuration(e.FadeInDuration+e.Duration), msDuration(e.FadeOutDuration))
	p.audio = s.openAudio(e.EffectBase, false)
	p.duration = e.TotalDuration()
}

func (s *stage) compose(p *presentation, e *ComposeEffect) {
	w, h := s.canvas()
	for i, name := range e.ImageFileNames {
		l := p.add(name)
		l.X, l.Y = w*e.XPercents[i]/100, h*e.YPercent/100
		l.Scale = e.InitialScale
		p.timers.After(msDuration(float64(i)*e.AppearInterval), func() {
			s.sched.Animate(TweenAlpha(l, 1, composeAppearFade, ease.OutQuad))
		})
	}
	reveal := e.revealDuration()
	p.timers.After(reveal, func() {
		for _, l := range p.layers {
			s.sched.Animate(TweenScale(l, e.FinalScale, msDuration(e.ScaleDuration), ease.OutBack))
		}
	})
	p.fadeOutAt(reveal+msDuration(e.ScaleDuration+e.Duration), msDuration(e.FadeOutDuration))
	p.audio = s.openAudio(e.EffectBase, false)
	p.duration = e.TotalDuration()
}

func (s *stage) slideIn(p *presentation, e *SlideInEffect) {
	w, h := s.canvas()
	l := p.add(e.ImageFileName)
	tx, ty := w*e.XPercent/100, h*e.YPercent/100
	iw, ih := l.Size()
	iw, ih = iw*e.InitialScale, ih*e.InitialScale
	l.X, l.Y = tx, ty
	switch e.FromEdge {
	case "right":
		l.X = w + iw/2
	case "top":
		l.Y = -ih / 2
	case "bottom":
		l.Y = h + ih/2
	default:
		l.X = -iw / 2
	}
	l.Scale = e.InitialScale
	l.Alpha = 1
	slide := msDuration(e.SlideDuration)
	s.sched.Animate(TweenPosition(l, tx, ty, slide, ease.OutCubic))
	p.timers.After(slide, func() {
		s.sched.Animate(TweenScale(l, e.FinalScale, msDuration(e.ScaleDuration), ease.OutQuad))
	})
	p.fadeOutAt(slide+msDuration(e.ScaleDuration+e.Duration), msDuration(e.FadeOutDuration))
	p.audio = s.openAudio(e.EffectBase, false)
	p.duration = e.TotalDuration()
}

func (s *stage) scaleFade(p *presentation, e *ScaleFadeEffect) {
	w, h := s.canvas()
	l := p.add(e.ImageFileName)
	off := h * e.VerticalOffsetPercent / 100
	l.X = w * e.XPercent / 100
	switch e.VerticalAlign {
	case "top":
		l.AnchorY = 0
		l.Y = off
	case "bottom":
		l.AnchorY = 1
		l.Y = h - off
	default:
		l.Y = h/2 + off
	}
	l.Scale = e.InitialScale
	s.sched.Animate(TweenFade(l, 1, e.FinalScale, msDuration(e.ScaleDuration), ease.OutQuad))
	p.fadeOutAt(msDuration(e.ScaleDuration+e.Duration), msDuration(e.FadeOutDuration))
	p.audio = s.openAudio(e.EffectBase, false)
	p.duration = e.TotalDuration()
}

// flicker runs one toggle loop per slot group. A loop stops starting new
// hides once the duration has passed, but a group that is hidden at that
// point is still shown again when its hide interval ends.
func (s *stage) flicker(p *presentation, e *FlickerEffect) {
	regions := s.regions()
	dur := e.TotalDuration()
	deadline := s.sched.Now() + dur
	hidden := mapset.New[string]()

	if regions != nil {
		for _, group := range e.SlotGroups {
			// Regions already hidden by something else are left alone.
			var g []string
			for _, name := range group {
				if !regions.IsHidden(name) {
					g = append(g, name)
				}
			}
			if len(g) == 0 {
				continue
			}
			var cycle func()
			cycle = func() {
				if s.sched.Now() >= deadline {
					return
				}
				for _, name := range g {
					if regions.Hide(name) {
						hidden.Put(name)
					}
				}
				p.timers.After(msDuration(e.HideInterval.Random(s.rng)), func() {
					for _, name := range g {
						regions.Show(name)
						hidden.Remove(name)
					}
					p.timers.After(msDuration(e.ShowInterval.Random(s.rng)), cycle)
				})
			}
			p.timers.After(msDuration(e.ShowInterval.Random(s.rng)), cycle)
		}
	}
	p.cleanup = func() {
		if regions == nil || regions != s.regions() {
			return
		}
		hidden.Each(func(name string) {
			regions.Show(name)
		})
		hidden = mapset.New[string]()
	}

	p.audio = s.openAudio(e.EffectBase, false)
	if p.audio != nil && dur > 0 {
		p.audioDelay = time.Duration(s.rng.Int64N(int64(dur)))
	}
	p.blocking = false
	p.duration = dur
}

func (s *stage) alarmCard(p *presentation, e *AlarmCardEffect) {
	w, h := s.canvas()
	l := newLayer("card", nil)
	l.Text = e.Text
	if e.AlignRightPercent > 0 {
		l.AnchorX = 1
		l.X = w * (1 - e.AlignRightPercent)
	} else {
		l.X = w * e.AlignLeftPercent
	}
	l.Y = h * (1 - e.VerticalFromBottomPercent/100)
	l.Scale = e.InitialScale * cardTextScale
	l.Rotation = e.InitialRotation * math.Pi / 180
	p.layers = append(p.layers, l)
	s.layers.Add(l)

	in := msDuration(e.ScaleDuration)
	s.sched.Animate(TweenAlpha(l, 1, in, ease.OutQuad))
	s.sched.Animate(TweenScaleRotate(l, e.FinalScale*cardTextScale, e.FinalRotation*math.Pi/180, in, ease.OutBack))

	p.audio = s.openAudio(e.EffectBase, e.Loop)
	if e.UntilDismissed() {
		p.untilDismissed = true
		p.dismiss = func() {
			p.fadeOutAt(0, cardDismissFade)
		}
		p.duration = in
		return
	}
	p.fadeOutAt(in+msDuration(e.Duration), msDuration(e.FadeOutDuration))
	p.duration = e.TotalDuration()
	// A looping alarm with a fixed length stops with its card.
	if e.Loop {
		p.blocking = false
		p.stopAudioAt = p.duration
	}
}
