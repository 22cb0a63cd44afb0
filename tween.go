package livewall

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields of a Layer simultaneously.
// Create one via the convenience constructors (TweenAlpha, TweenScale,
// TweenPosition, TweenRotation) and hand it to Scheduler.Animate, which calls
// Update every frame. If the target layer is detached, the group stops
// immediately without writing.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	target *Layer
	Done   bool

	// OnDone runs once when every tween has finished. It does not run after
	// Stop.
	OnDone func()
}

// Update advances all tweens by dt seconds and writes values to the target
// fields.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.detached {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	if g.Done && g.OnDone != nil {
		fn := g.OnDone
		g.OnDone = nil
		fn()
	}
}

// Stop ends the group where it is. OnDone is dropped.
func (g *TweenGroup) Stop() {
	g.Done = true
	g.OnDone = nil
}

// seconds converts d for gween, which expects a positive duration.
func seconds(d time.Duration) float32 {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return float32(d.Seconds())
}

// TweenAlpha animates layer.Alpha to the target value.
func TweenAlpha(l *Layer, to float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1, target: l}
	g.tweens[0] = gween.New(float32(l.Alpha), float32(to), seconds(d), fn)
	g.fields[0] = &l.Alpha
	return g
}

// TweenScale animates layer.Scale to the target value.
func TweenScale(l *Layer, to float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1, target: l}
	g.tweens[0] = gween.New(float32(l.Scale), float32(to), seconds(d), fn)
	g.fields[0] = &l.Scale
	return g
}

// TweenFade animates alpha and scale together, which is how tokens and
// effect images leave the screen.
func TweenFade(l *Layer, toAlpha, toScale float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: l}
	g.tweens[0] = gween.New(float32(l.Alpha), float32(toAlpha), seconds(d), fn)
	g.tweens[1] = gween.New(float32(l.Scale), float32(toScale), seconds(d), fn)
	g.fields[0] = &l.Alpha
	g.fields[1] = &l.Scale
	return g
}

// TweenPosition animates layer.X and layer.Y to the given coordinates.
func TweenPosition(l *Layer, toX, toY float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: l}
	g.tweens[0] = gween.New(float32(l.X), float32(toX), seconds(d), fn)
	g.tweens[1] = gween.New(float32(l.Y), float32(toY), seconds(d), fn)
	g.fields[0] = &l.X
	g.fields[1] = &l.Y
	return g
}

// TweenScaleRotate animates scale and rotation (radians) together.
func TweenScaleRotate(l *Layer, toScale, toRotation float64, d time.Duration, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: l}
	g.tweens[0] = gween.New(float32(l.Scale), float32(toScale), seconds(d), fn)
	g.tweens[1] = gween.New(float32(l.Rotation), float32(toRotation), seconds(d), fn)
	g.fields[0] = &l.Scale
	g.fields[1] = &l.Rotation
	return g
}
