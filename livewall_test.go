package livewall

import (
	"reflect"
	"testing"
)

// --- Range ---

func TestRangeRandom(t *testing.T) {
	rng := testRand(1)
	r := Range{Min: 100, Max: 200}
	for i := 0; i < 100; i++ {
		v := r.Random(rng)
		if v < 100 || v > 200 {
			t.Fatalf("Random = %v, want within [100, 200]", v)
		}
	}
	tests := []struct {
		name string
		r    Range
		want float64
	}{
		{"equal", Range{Min: 5, Max: 5}, 5},
		{"inverted", Range{Min: 9, Max: 3}, 9},
		{"zero", Range{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Random(rng); got != tt.want {
				t.Errorf("Random = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- LayerStack ---

func TestLayerStack(t *testing.T) {
	var s LayerStack
	a, b, c := newLayer("a", nil), newLayer("b", nil), newLayer("c", nil)
	s.Add(a)
	s.Add(b)
	s.Add(c)
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	s.Remove(b)
	s.Remove(b)
	if s.Len() != 2 || !b.detached {
		t.Errorf("Len = %d, detached = %v, want 2, true", s.Len(), b.detached)
	}
	var names []string
	for _, l := range s.layers {
		names = append(names, l.Name)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}

	s.Clear()
	if s.Len() != 0 || !a.detached || !c.detached {
		t.Error("Clear left layers attached")
	}
	s.Add(a)
	if a.detached {
		t.Error("re-added layer still detached")
	}
}

func TestNewLayerDefaults(t *testing.T) {
	l := newLayer("l", nil)
	if l.Alpha != 0 || l.Scale != 1 {
		t.Errorf("Alpha = %v, Scale = %v, want 0, 1", l.Alpha, l.Scale)
	}
	if w, h := l.Size(); w != 0 || h != 0 {
		t.Errorf("Size of an empty layer = %vx%v, want 0x0", w, h)
	}
}

// --- Signals ---

func TestSignals(t *testing.T) {
	bus := NewSignals()
	var got []string
	first := bus.Subscribe(func(s Signal) { got = append(got, "first") })
	bus.Subscribe(func(s Signal) {
		got = append(got, "second")
		bus.Subscribe(func(s Signal) { got = append(got, "late") })
	})

	bus.Emit(SignalOverlayActive)
	if want := []string{"first", "second"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	got = nil
	first.Remove()
	first.Remove()
	bus.Emit(SignalOverlayInactive)
	if want := []string{"second", "late"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after Remove got %v, want %v", got, want)
	}
}

func TestSignalsNil(t *testing.T) {
	var bus *Signals
	bus.Emit(SignalMeshSwitched)
	SignalHandle{}.Remove()
}
