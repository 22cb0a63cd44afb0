package livewall

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxPointers is the mouse (slot 0) plus nine touches.
const maxPointers = 10

// defaultDragDeadZone is how far a pointer may travel between press and
// release and still count as a click.
const defaultDragDeadZone = 8.0

// pointerState tracks one pointer between press and release.
type pointerState struct {
	down           bool
	dragging       bool
	startX, startY float64
	lastX, lastY   float64
}

// pointerInput turns raw pointer state into clicks. Mouse and touch share
// one state machine; a press that travels further than the dead zone is a
// drag and produces no click.
type pointerInput struct {
	pointers     [maxPointers]pointerState
	touchMap     [maxPointers]ebiten.TouchID
	touchUsed    [maxPointers]bool
	prevTouchIDs []ebiten.TouchID
	injectQueue  []syntheticPointerEvent
	dragDeadZone float64
	onClick      func(x, y float64)
}

func (in *pointerInput) init(onClick func(x, y float64)) {
	in.onClick = onClick
	in.dragDeadZone = defaultDragDeadZone
}

// SetDragDeadZone sets the click travel tolerance in pixels.
func (in *pointerInput) SetDragDeadZone(pixels float64) {
	in.dragDeadZone = pixels
}

// processInput reads the mouse and every touch.
func (in *pointerInput) processInput() {
	mx, my := ebiten.CursorPosition()
	in.processPointer(0, float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
	in.processTouchPointers()
}

// processTouchPointers handles touch input (pointers 1-9).
func (in *pointerInput) processTouchPointers() {
	touchIDs := ebiten.AppendTouchIDs(in.prevTouchIDs[:0])
	in.prevTouchIDs = touchIDs

	var active [maxPointers]bool
	for _, tid := range touchIDs {
		slot := in.touchSlot(tid)
		if slot < 0 {
			continue
		}
		active[slot] = true
		tx, ty := ebiten.TouchPosition(tid)
		in.processPointer(slot, float64(tx), float64(ty), true)
	}

	// A touch that disappeared was released where it was last seen.
	for i := 1; i < maxPointers; i++ {
		if in.touchUsed[i] && !active[i] {
			ps := &in.pointers[i]
			if ps.down {
				in.processPointer(i, ps.lastX, ps.lastY, false)
			}
			in.touchUsed[i] = false
			in.touchMap[i] = 0
		}
	}
}

// touchSlot maps a touch to a pointer slot (1-9), or -1 when all are taken.
func (in *pointerInput) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxPointers; i++ {
		if in.touchUsed[i] && in.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !in.touchUsed[i] {
			in.touchUsed[i] = true
			in.touchMap[i] = tid
			return i
		}
	}
	return -1
}

// processPointer runs the state machine of one pointer.
func (in *pointerInput) processPointer(id int, x, y float64, pressed bool) {
	ps := &in.pointers[id]
	switch {
	case pressed && !ps.down:
		*ps = pointerState{down: true, startX: x, startY: y, lastX: x, lastY: y}
	case pressed && ps.down:
		if !ps.dragging && math.Hypot(x-ps.startX, y-ps.startY) > in.dragDeadZone {
			ps.dragging = true
		}
		ps.lastX, ps.lastY = x, y
	case !pressed && ps.down:
		click := !ps.dragging && math.Hypot(x-ps.startX, y-ps.startY) <= in.dragDeadZone
		ps.down = false
		ps.dragging = false
		ps.lastX, ps.lastY = x, y
		if click && in.onClick != nil {
			in.onClick(x, y)
		}
	default:
		ps.lastX, ps.lastY = x, y
	}
}
