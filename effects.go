package livewall

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tidwall/gjson"
)

// EffectKind is the presentation style of a special effect.
type EffectKind int

const (
	EffectFadeImage EffectKind = 1 // single fading image
	EffectCompose   EffectKind = 2 // three images composed, then scaled together
	EffectSlideIn   EffectKind = 3 // slides in from an edge, then scales
	EffectScaleFade EffectKind = 4 // scale-and-fade with vertical alignment
	EffectFlicker   EffectKind = 5 // randomized region flicker
	EffectAlarmCard EffectKind = 6 // text card with optionally looping audio
)

// SpecialEffect is one entry of the special-effect library. Definitions are
// immutable once loaded and referenced by index.
type SpecialEffect interface {
	Kind() EffectKind
	Base() EffectBase
	// TotalDuration is the advertised presentation length. Zero with
	// UntilDismissed means the effect stays until the user dismisses it.
	TotalDuration() time.Duration
}

// EffectBase holds the fields every presentation style shares.
type EffectBase struct {
	Type          EffectKind `json:"type"`
	AudioFileName string     `json:"audioFileName,omitempty"`
	AnimationName string     `json:"animationName,omitempty"`
	Volume        *float64   `json:"volume,omitempty"`
}

// Kind implements SpecialEffect.
func (b EffectBase) Kind() EffectKind { return b.Type }

// Base implements SpecialEffect.
func (b EffectBase) Base() EffectBase { return b }

func (b EffectBase) volume() float64 {
	if b.Volume == nil {
		return 1
	}
	return *b.Volume
}

// FadeImageEffect fades one image in, holds it and fades it out.
type FadeImageEffect struct {
	EffectBase
	ImageFileName   string  `json:"imageFileName"`
	XPercent        float64 `json:"xPercent"`
	YPercent        float64 `json:"yPercent"`
	Scale           float64 `json:"scale"`
	FadeInDuration  float64 `json:"fadeInDuration"`
	Duration        float64 `json:"duration"`
	FadeOutDuration float64 `json:"fadeOutDuration"`
}

func (e *FadeImageEffect) defaults() {
	e.XPercent, e.YPercent, e.Scale = 50, 50, 1
	e.FadeInDuration, e.Duration, e.FadeOutDuration = 300, 1500, 500
}

// TotalDuration implements SpecialEffect.
func (e *FadeImageEffect) TotalDuration() time.Duration {
	return msDuration(e.FadeInDuration + e.Duration + e.FadeOutDuration)
}

// ComposeEffect reveals up to three images one after another at a small
// scale, then grows them together, holds, and fades out.
type ComposeEffect struct {
	EffectBase
	ImageFileNames  []string  `json:"imageFileNames"`
	XPercents       []float64 `json:"xPercents,omitempty"`
	YPercent        float64   `json:"yPercent"`
	AppearInterval  float64   `json:"appearInterval"`
	InitialScale    float64   `json:"initialScale"`
	FinalScale      float64   `json:"finalScale"`
	ScaleDuration   float64   `json:"scaleDuration"`
	Duration        float64   `json:"duration"`
	FadeOutDuration float64   `json:"fadeOutDuration"`
}

func (e *ComposeEffect) defaults() {
	e.YPercent, e.AppearInterval = 50, 200
	e.InitialScale, e.FinalScale = 0.3, 1
	e.ScaleDuration, e.Duration, e.FadeOutDuration = 400, 1500, 500
}

func (e *ComposeEffect) normalize() {
	if len(e.XPercents) != len(e.ImageFileNames) {
		e.XPercents = spread(len(e.ImageFileNames))
	}
}

// revealDuration is the time until the last image has appeared.
func (e *ComposeEffect) revealDuration() time.Duration {
	n := len(e.ImageFileNames)
	if n < 1 {
		n = 1
	}
	return msDuration(float64(n-1) * e.AppearInterval)
}

// TotalDuration implements SpecialEffect.
func (e *ComposeEffect) TotalDuration() time.Duration {
	return e.revealDuration() + msDuration(e.ScaleDuration+e.Duration+e.FadeOutDuration)
}

// SlideInEffect slides an image in from a screen edge, scales it, holds and
// fades out.
type SlideInEffect struct {
	EffectBase
	ImageFileName   string  `json:"imageFileName"`
	FromEdge        string  `json:"fromEdge"`
	XPercent        float64 `json:"xPercent"`
	YPercent        float64 `json:"yPercent"`
	SlideDuration   float64 `json:"slideDuration"`
	InitialScale    float64 `json:"initialScale"`
	FinalScale      float64 `json:"finalScale"`
	ScaleDuration   float64 `json:"scaleDuration"`
	Duration        float64 `json:"duration"`
	FadeOutDuration float64 `json:"fadeOutDuration"`
}

func (e *SlideInEffect) defaults() {
	e.XPercent, e.YPercent = 50, 50
	e.SlideDuration, e.InitialScale, e.FinalScale = 500, 1, 1.3
	e.ScaleDuration, e.Duration, e.FadeOutDuration = 400, 1200, 400
}

func (e *SlideInEffect) normalize() {
	if e.FromEdge == "" {
		e.FromEdge = "left"
	}
}

// TotalDuration implements SpecialEffect.
func (e *SlideInEffect) TotalDuration() time.Duration {
	return msDuration(e.SlideDuration + e.ScaleDuration + e.Duration + e.FadeOutDuration)
}

// ScaleFadeEffect scales one image from InitialScale to FinalScale while it
// fades in, holds and fades out. It is aligned vertically to the top, center
// or bottom of the canvas.
type ScaleFadeEffect struct {
	EffectBase
	ImageFileName         string  `json:"imageFileName"`
	XPercent              float64 `json:"xPercent"`
	VerticalAlign         string  `json:"verticalAlign"`
	VerticalOffsetPercent float64 `json:"verticalOffsetPercent"`
	InitialScale          float64 `json:"initialScale"`
	FinalScale            float64 `json:"finalScale"`
	ScaleDuration         float64 `json:"scaleDuration"`
	Duration              float64 `json:"duration"`
	FadeOutDuration       float64 `json:"fadeOutDuration"`
}

func (e *ScaleFadeEffect) defaults() {
	e.XPercent, e.InitialScale, e.FinalScale = 50, 0.5, 1
	e.ScaleDuration, e.Duration, e.FadeOutDuration = 500, 1000, 500
}

func (e *ScaleFadeEffect) normalize() {
	if e.VerticalAlign == "" {
		e.VerticalAlign = "center"
	}
}

// TotalDuration implements SpecialEffect.
func (e *ScaleFadeEffect) TotalDuration() time.Duration {
	return msDuration(e.ScaleDuration + e.Duration + e.FadeOutDuration)
}

// FlickerEffect toggles groups of skeleton regions on and off at random
// intervals for Duration. The voice, if any, starts at a random moment
// inside the duration.
type FlickerEffect struct {
	EffectBase
	SlotGroups   [][]string `json:"slotGroups"`
	HideInterval Range      `json:"hideInterval"`
	ShowInterval Range      `json:"showInterval"`
	Duration     float64    `json:"duration"`
}

func (e *FlickerEffect) defaults() {
	e.Duration = 5000
}

// normalize replaces an interval without a positive upper bound.
func (e *FlickerEffect) normalize() {
	if e.HideInterval.Max <= 0 {
		e.HideInterval = Range{Min: 200, Max: 800}
	}
	if e.ShowInterval.Max <= 0 {
		e.ShowInterval = Range{Min: 200, Max: 800}
	}
}

// TotalDuration implements SpecialEffect.
func (e *FlickerEffect) TotalDuration() time.Duration {
	return msDuration(e.Duration)
}

// AlarmCardEffect shows a text card that scales and rotates in. With a
// negative FadeOutDuration it stays until dismissed; with Loop its audio
// repeats until then.
type AlarmCardEffect struct {
	EffectBase
	Text                      string  `json:"text"`
	Loop                      bool    `json:"loop"`
	InitialScale              float64 `json:"initialScale"`
	FinalScale                float64 `json:"finalScale"`
	InitialRotation           float64 `json:"initialRotation"` // degrees
	FinalRotation             float64 `json:"finalRotation"`
	AlignLeftPercent          float64 `json:"alignLeftPercent"`
	AlignRightPercent         float64 `json:"alignRightPercent"`
	VerticalFromBottomPercent float64 `json:"verticalFromBottomPercent"`
	ScaleDuration             float64 `json:"scaleDuration"`
	Duration                  float64 `json:"duration"`
	FadeOutDuration           float64 `json:"fadeOutDuration"`
}

func (e *AlarmCardEffect) defaults() {
	e.InitialScale, e.FinalScale = 0.5, 1
	e.ScaleDuration, e.Duration = 500, 3000
	e.AlignLeftPercent, e.VerticalFromBottomPercent = 0.5, 50
}

// normalize drops the left alignment when the card is aligned to the right.
func (e *AlarmCardEffect) normalize() {
	if e.AlignRightPercent > 0 {
		e.AlignLeftPercent = 0
	}
}

// UntilDismissed reports whether the card waits for a click.
func (e *AlarmCardEffect) UntilDismissed() bool {
	return e.FadeOutDuration < 0
}

// TotalDuration implements SpecialEffect.
func (e *AlarmCardEffect) TotalDuration() time.Duration {
	if e.UntilDismissed() {
		return 0
	}
	return msDuration(e.ScaleDuration + e.Duration + e.FadeOutDuration)
}

// unknownEffect keeps the slot of an unsupported library entry so later
// indices still line up.
type unknownEffect struct {
	EffectBase
}

func (e *unknownEffect) TotalDuration() time.Duration { return 0 }

// SpecialEffectLibrary is the shared, index-addressed list of effects.
type SpecialEffectLibrary []SpecialEffect

// UnmarshalJSON decodes each entry into the concrete type named by its
// "type" field.
func (lib *SpecialEffectLibrary) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	if r.Type == gjson.Null {
		*lib = nil
		return nil
	}
	if !r.IsArray() {
		return fmt.Errorf("livewall: specialEffectLibrary must be a list")
	}
	out := SpecialEffectLibrary{}
	var err error
	r.ForEach(func(key, v gjson.Result) bool {
		var e SpecialEffect
		e, err = decodeEffect(v.Raw)
		if err != nil {
			err = fmt.Errorf("livewall: specialEffectLibrary[%d]: %w", key.Int(), err)
			return false
		}
		out = append(out, e)
		return true
	})
	if err != nil {
		return err
	}
	*lib = out
	return nil
}

// decodeEffect decodes one library entry.
func decodeEffect(raw string) (SpecialEffect, error) {
	kind := EffectKind(gjson.Get(raw, "type").Int())
	var target interface {
		SpecialEffect
		defaults()
	}
	switch kind {
	case EffectFadeImage:
		target = &FadeImageEffect{}
	case EffectCompose:
		target = &ComposeEffect{}
	case EffectSlideIn:
		target = &SlideInEffect{}
	case EffectScaleFade:
		target = &ScaleFadeEffect{}
	case EffectFlicker:
		target = &FlickerEffect{}
	case EffectAlarmCard:
		target = &AlarmCardEffect{}
	default:
		log.Printf("livewall: special effect type %d is not supported, entry ignored", kind)
		return &unknownEffect{EffectBase{Type: kind}}, nil
	}
	// Values present in raw, zero included, replace the defaults.
	target.defaults()
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return nil, err
	}
	if n, ok := target.(interface{ normalize() }); ok {
		n.normalize()
	}
	return target, nil
}

// Effect returns library entry i, or nil with a logged reference error.
func (lib SpecialEffectLibrary) Effect(i int) SpecialEffect {
	if i < 0 || i >= len(lib) {
		log.Printf("livewall: special effect index %d out of range (library has %d entries)", i, len(lib))
		return nil
	}
	return lib[i]
}

// spread returns n evenly spaced horizontal percentages.
func spread(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) * 100 / float64(n+1)
	}
	return out
}
