package livewall

// Placement positions a skeleton on the canvas. X and Y offset the skeleton
// origin from the canvas center in pixels (Y up, like the skeleton), and
// Scale converts skeleton units to pixels.
type Placement struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"-"`
}

// scale returns the pixels per skeleton unit; zero means one.
func (p Placement) scale() float64 {
	if p.Scale == 0 {
		return 1
	}
	return p.Scale
}

// screenMatrix returns the affine matrix that maps skeleton space to screen
// space for a canvas of the given size. Skeleton Y points up, screen Y points
// down, so the Y axis is flipped.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func (p Placement) screenMatrix(canvasW, canvasH float64) [6]float64 {
	s := p.scale()
	return [6]float64{s, 0, 0, -s, canvasW/2 + p.X, canvasH/2 - p.Y}
}

// skeletonMatrix is the inverse of screenMatrix. A placement only scales,
// flips Y and translates, so the inverse never degenerates.
func (p Placement) skeletonMatrix(canvasW, canvasH float64) [6]float64 {
	s := p.scale()
	ox, oy := canvasW/2+p.X, canvasH/2-p.Y
	return [6]float64{1 / s, 0, 0, -1 / s, -ox / s, oy / s}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// ToScreen maps a skeleton-space point to screen pixels.
func (p Placement) ToScreen(x, y, canvasW, canvasH float64) Vec2 {
	sx, sy := transformPoint(p.screenMatrix(canvasW, canvasH), x, y)
	return Vec2{sx, sy}
}

// ToSkeleton maps screen pixels back to skeleton space.
func (p Placement) ToSkeleton(x, y, canvasW, canvasH float64) Vec2 {
	kx, ky := transformPoint(p.skeletonMatrix(canvasW, canvasH), x, y)
	return Vec2{kx, ky}
}
