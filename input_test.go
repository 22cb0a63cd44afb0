package livewall

import "testing"

type pointerEvent struct {
	x, y    float64
	pressed bool
}

func TestPointerClickDeadZone(t *testing.T) {
	tests := []struct {
		name     string
		deadZone float64
		events   []pointerEvent
		want     int
	}{
		{"press and release", 0, []pointerEvent{{10, 10, true}, {10, 10, false}}, 1},
		{"small wobble", 0, []pointerEvent{{10, 10, true}, {14, 12, true}, {15, 13, false}}, 1},
		{"release past dead zone", 0, []pointerEvent{{0, 0, true}, {20, 0, false}}, 0},
		{"drag back to start", 0, []pointerEvent{{10, 10, true}, {40, 10, true}, {10, 10, false}}, 0},
		{"wide dead zone", 30, []pointerEvent{{0, 0, true}, {20, 0, false}}, 1},
		{"release without press", 0, []pointerEvent{{10, 10, false}}, 0},
		{"hover", 0, []pointerEvent{{10, 10, false}, {12, 10, false}}, 0},
		{"two clicks", 0, []pointerEvent{{1, 1, true}, {1, 1, false}, {5, 5, true}, {5, 5, false}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in pointerInput
			clicks := 0
			in.init(func(x, y float64) { clicks++ })
			if tt.deadZone > 0 {
				in.SetDragDeadZone(tt.deadZone)
			}
			for _, e := range tt.events {
				in.processPointer(0, e.x, e.y, e.pressed)
			}
			if clicks != tt.want {
				t.Errorf("clicks = %d, want %d", clicks, tt.want)
			}
		})
	}
}

func TestPointerClickPosition(t *testing.T) {
	var in pointerInput
	var gotX, gotY float64
	in.init(func(x, y float64) { gotX, gotY = x, y })
	in.processPointer(0, 10, 10, true)
	in.processPointer(0, 13, 14, false)
	if gotX != 13 || gotY != 14 {
		t.Errorf("click at (%v, %v), want (13, 14)", gotX, gotY)
	}
}

func TestPointersAreIndependent(t *testing.T) {
	var in pointerInput
	clicks := 0
	in.init(func(x, y float64) { clicks++ })
	in.processPointer(0, 0, 0, true)
	in.processPointer(1, 100, 100, true)
	in.processPointer(1, 200, 100, true)
	in.processPointer(0, 0, 0, false)
	in.processPointer(1, 200, 100, false)
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
}
