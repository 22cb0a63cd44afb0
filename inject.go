package livewall

// syntheticPointerEvent is one injected pointer event in canvas coordinates.
type syntheticPointerEvent struct {
	x, y    float64
	pressed bool
}

// InjectPress queues a press at the given canvas coordinates. The event is
// consumed on the next frame.
func (in *pointerInput) InjectPress(x, y float64) {
	in.injectQueue = append(in.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true})
}

// InjectRelease queues a release at the given canvas coordinates.
func (in *pointerInput) InjectRelease(x, y float64) {
	in.injectQueue = append(in.injectQueue, syntheticPointerEvent{x: x, y: y})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (in *pointerInput) InjectClick(x, y float64) {
	in.InjectPress(x, y)
	in.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 interpolated moves
// and a release at (toX, toY). A drag past the dead zone is not a click.
func (in *pointerInput) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	in.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		in.InjectPress(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	in.InjectRelease(toX, toY)
}

func (in *pointerInput) injectPending() bool {
	return len(in.injectQueue) > 0
}

// processInjectedInput pops one event and feeds it through the mouse
// pointer. It reports whether an event was consumed.
func (in *pointerInput) processInjectedInput() bool {
	if len(in.injectQueue) == 0 {
		return false
	}
	evt := in.injectQueue[0]
	copy(in.injectQueue, in.injectQueue[1:])
	in.injectQueue = in.injectQueue[:len(in.injectQueue)-1]
	in.processPointer(0, evt.x, evt.y, evt.pressed)
	return true
}
