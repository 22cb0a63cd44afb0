package livewall

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestLibraryDecodesEachKind(t *testing.T) {
	var lib SpecialEffectLibrary
	err := json.Unmarshal([]byte(`[
		{"type": 1, "imageFileName": "a.png"},
		{"type": 2, "imageFileNames": ["a.png", "b.png", "c.png"]},
		{"type": 3, "imageFileName": "a.png", "fromEdge": "top"},
		{"type": 4, "imageFileName": "a.png"},
		{"type": 5, "slotGroups": [["hat"]]},
		{"type": 6, "text": "hi"},
		{"type": 99}
	]`), &lib)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []EffectKind{EffectFadeImage, EffectCompose, EffectSlideIn, EffectScaleFade, EffectFlicker, EffectAlarmCard, 99}
	if len(lib) != len(want) {
		t.Fatalf("len = %d, want %d", len(lib), len(want))
	}
	for i, k := range want {
		if got := lib[i].Kind(); got != k {
			t.Errorf("lib[%d].Kind = %d, want %d", i, got, k)
		}
	}
	if _, ok := lib[6].(*unknownEffect); !ok {
		t.Errorf("lib[6] = %T, want *unknownEffect", lib[6])
	}
}

func TestEffectDefaults(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{`{"type": 1}`, 2300 * time.Millisecond},
		{`{"type": 1, "fadeInDuration": 100, "duration": 200, "fadeOutDuration": 300}`, 600 * time.Millisecond},
		{`{"type": 2, "imageFileNames": ["a", "b", "c"]}`, 2800 * time.Millisecond},
		{`{"type": 3}`, 2500 * time.Millisecond},
		{`{"type": 4}`, 2000 * time.Millisecond},
		{`{"type": 5}`, 5000 * time.Millisecond},
		{`{"type": 6}`, 3500 * time.Millisecond},
		{`{"type": 6, "fadeOutDuration": -1}`, 0},
		{`{"type": 1, "fadeInDuration": 0, "fadeOutDuration": 0}`, 1500 * time.Millisecond},
		{`{"type": 4, "scaleDuration": 0, "fadeOutDuration": 0}`, 1000 * time.Millisecond},
		{`{"type": 6, "scaleDuration": 0}`, 3000 * time.Millisecond},
	}
	for _, tt := range tests {
		e, err := decodeEffect(tt.raw)
		if err != nil {
			t.Fatalf("decodeEffect(%s): %v", tt.raw, err)
		}
		if got := e.TotalDuration(); got != tt.want {
			t.Errorf("TotalDuration(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestEffectKeepsExplicitZero(t *testing.T) {
	tests := []struct {
		raw  string
		get  func(e SpecialEffect) float64
		want float64
	}{
		{`{"type": 1, "xPercent": 0}`, func(e SpecialEffect) float64 { return e.(*FadeImageEffect).XPercent }, 0},
		{`{"type": 1}`, func(e SpecialEffect) float64 { return e.(*FadeImageEffect).XPercent }, 50},
		{`{"type": 3, "slideDuration": 0}`, func(e SpecialEffect) float64 { return e.(*SlideInEffect).SlideDuration }, 0},
		{`{"type": 2, "appearInterval": 0}`, func(e SpecialEffect) float64 { return e.(*ComposeEffect).AppearInterval }, 0},
		{`{"type": 6, "alignLeftPercent": 0}`, func(e SpecialEffect) float64 { return e.(*AlarmCardEffect).AlignLeftPercent }, 0},
		{`{"type": 6, "verticalFromBottomPercent": 0}`, func(e SpecialEffect) float64 {
			return e.(*AlarmCardEffect).VerticalFromBottomPercent
		}, 0},
	}
	for _, tt := range tests {
		if got := tt.get(mustEffect(t, tt.raw)); got != tt.want {
			t.Errorf("decodeEffect(%s) field = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestComposeSpreadsImages(t *testing.T) {
	e := mustEffect(t, `{"type": 2, "imageFileNames": ["a", "b", "c"]}`).(*ComposeEffect)
	if want := []float64{25, 50, 75}; !reflect.DeepEqual(e.XPercents, want) {
		t.Errorf("XPercents = %v, want %v", e.XPercents, want)
	}
	e = mustEffect(t, `{"type": 2, "imageFileNames": ["a", "b"], "xPercents": [10, 90]}`).(*ComposeEffect)
	if want := []float64{10, 90}; !reflect.DeepEqual(e.XPercents, want) {
		t.Errorf("XPercents = %v, want %v", e.XPercents, want)
	}
}

func TestAlarmCardDefaults(t *testing.T) {
	e := mustEffect(t, `{"type": 6, "text": "x", "alignRightPercent": 0.1}`).(*AlarmCardEffect)
	if e.AlignLeftPercent != 0 {
		t.Errorf("AlignLeftPercent = %v, want 0 with a right alignment", e.AlignLeftPercent)
	}
	e = mustEffect(t, `{"type": 6, "text": "x"}`).(*AlarmCardEffect)
	if e.AlignLeftPercent != 0.5 {
		t.Errorf("AlignLeftPercent = %v, want 0.5", e.AlignLeftPercent)
	}
	if e.UntilDismissed() {
		t.Error("UntilDismissed = true without a negative fade-out")
	}
}

func TestEffectVolume(t *testing.T) {
	e := mustEffect(t, `{"type": 1, "volume": 0.3}`)
	if got := e.Base().volume(); got != 0.3 {
		t.Errorf("volume = %v, want 0.3", got)
	}
	e = mustEffect(t, `{"type": 1}`)
	if got := e.Base().volume(); got != 1 {
		t.Errorf("volume = %v, want 1", got)
	}
}

func TestLibraryErrors(t *testing.T) {
	var lib SpecialEffectLibrary
	if err := json.Unmarshal([]byte(`{"type": 1}`), &lib); err == nil {
		t.Error("Unmarshal(object) err = nil")
	}
	if err := json.Unmarshal([]byte(`[{"type": 1, "duration": "long"}]`), &lib); err == nil {
		t.Error("Unmarshal(bad field) err = nil")
	}
	if err := json.Unmarshal([]byte(`null`), &lib); err != nil || lib != nil {
		t.Errorf("Unmarshal(null) = %v, %v", lib, err)
	}
}

func TestLibraryEffectOutOfRange(t *testing.T) {
	lib := SpecialEffectLibrary{mustEffect(t, `{"type": 1}`)}
	if lib.Effect(0) == nil {
		t.Error("Effect(0) = nil")
	}
	if lib.Effect(1) != nil || lib.Effect(-1) != nil {
		t.Error("out of range Effect != nil")
	}
}
