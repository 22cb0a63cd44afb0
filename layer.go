package livewall

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

// Layer is one screen-space visual: an image (or a line of text) with an
// anchor, a uniform scale, a rotation and an opacity. Point-effect tokens
// and special-effect presentations are made of layers; tweens write their
// fields directly.
type Layer struct {
	Name  string
	Image *ebiten.Image
	Text  string

	X, Y     float64 // anchor position in screen pixels
	Scale    float64
	ScaleY   float64 // extra vertical factor; 0 means 1
	Rotation float64 // radians
	Alpha    float64
	AnchorX  float64 // fraction of the width used as pivot (0.5 = center)
	AnchorY  float64

	detached bool
}

// newLayer creates a centered, fully transparent layer at scale 1.
func newLayer(name string, img *ebiten.Image) *Layer {
	return &Layer{Name: name, Image: img, Scale: 1, AnchorX: 0.5, AnchorY: 0.5}
}

// Attached reports whether the layer is still part of a LayerStack.
func (l *Layer) Attached() bool {
	return !l.detached
}

// Size returns the unscaled width and height of the layer content.
func (l *Layer) Size() (float64, float64) {
	if l.Image != nil {
		b := l.Image.Bounds()
		return float64(b.Dx()), float64(b.Dy())
	}
	if l.Text != "" {
		return text.Measure(l.Text, defaultFace(), defaultFaceLineSpacing)
	}
	return 0, 0
}

// geoM builds the layer's transform: pivot, scale, rotate, translate.
func (l *Layer) geoM(w, h float64) ebiten.GeoM {
	var m ebiten.GeoM
	m.Translate(-w*l.AnchorX, -h*l.AnchorY)
	sy := l.Scale
	if l.ScaleY != 0 {
		sy *= l.ScaleY
	}
	m.Scale(l.Scale, sy)
	if l.Rotation != 0 {
		m.Rotate(l.Rotation)
	}
	m.Translate(l.X, l.Y)
	return m
}

// Draw renders the layer onto dst. Invisible or detached layers are skipped.
func (l *Layer) Draw(dst *ebiten.Image) {
	if l.detached || l.Alpha <= 0 || l.Scale == 0 {
		return
	}
	w, h := l.Size()
	if w == 0 || h == 0 {
		return
	}
	if l.Image != nil {
		op := &ebiten.DrawImageOptions{}
		op.GeoM = l.geoM(w, h)
		op.ColorScale.ScaleAlpha(float32(l.Alpha))
		op.Filter = ebiten.FilterLinear
		dst.DrawImage(l.Image, op)
		return
	}
	op := &text.DrawOptions{}
	op.GeoM = l.geoM(w, h)
	op.ColorScale.ScaleAlpha(float32(l.Alpha))
	op.LineSpacing = defaultFaceLineSpacing
	text.Draw(dst, l.Text, defaultFace(), op)
}

const defaultFaceLineSpacing = 16

var faceCache *text.GoXFace

// defaultFace lazily wraps basicfont for text layers.
func defaultFace() *text.GoXFace {
	if faceCache == nil {
		faceCache = text.NewGoXFace(basicfont.Face7x13)
	}
	return faceCache
}

// LayerStack is an ordered list of layers drawn back to front.
type LayerStack struct {
	layers []*Layer
}

// Add appends l on top of the stack.
func (s *LayerStack) Add(l *Layer) {
	l.detached = false
	s.layers = append(s.layers, l)
}

// Remove detaches l. Removing a layer twice is a no-op.
func (s *LayerStack) Remove(l *Layer) {
	for i, c := range s.layers {
		if c == l {
			copy(s.layers[i:], s.layers[i+1:])
			s.layers[len(s.layers)-1] = nil
			s.layers = s.layers[:len(s.layers)-1]
			break
		}
	}
	l.detached = true
}

// Clear detaches every layer.
func (s *LayerStack) Clear() {
	for _, l := range s.layers {
		l.detached = true
	}
	s.layers = s.layers[:0]
}

// Len returns the number of attached layers.
func (s *LayerStack) Len() int {
	return len(s.layers)
}

// Draw renders every layer in order.
func (s *LayerStack) Draw(dst *ebiten.Image) {
	for _, l := range s.layers {
		l.Draw(dst)
	}
}
