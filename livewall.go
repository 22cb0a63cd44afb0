package livewall

import (
	"math"
	"math/rand/v2"
)

// Vec2 is a 2D vector used for positions and offsets throughout the API.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in screen space. The origin is the
// top-left corner of the canvas, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// boundsOf returns the smallest Rect containing every point. An empty slice
// yields a zero Rect.
func boundsOf(points []Vec2) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Range is a min/max pair in milliseconds or pixels depending on the field
// that holds it. The JSON form is {"min": a, "max": b}.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Random returns a value in [Min, Max] drawn from rng.
func (r Range) Random(rng *rand.Rand) float64 {
	if r.Min >= r.Max {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// MotionStyle is the optional extra animation applied to a point-effect token.
type MotionStyle uint8

const (
	MotionNone   MotionStyle = iota // fade only
	MotionWobble                    // rotates back and forth around the anchor
	MotionPulse                     // scales up and down around the base scale
)

// ParseMotionStyle maps the configuration strings "wobble" and "pulse" to
// their MotionStyle. Anything else is MotionNone.
func ParseMotionStyle(s string) MotionStyle {
	switch s {
	case "wobble", "shake":
		return MotionWobble
	case "pulse", "breathe":
		return MotionPulse
	default:
		return MotionNone
	}
}

// String returns the configuration spelling of the style.
func (m MotionStyle) String() string {
	switch m {
	case MotionWobble:
		return "wobble"
	case MotionPulse:
		return "pulse"
	default:
		return "none"
	}
}
