package livewall

import (
	"reflect"
	"testing"
)

func newRegionFixture() (*fakeSkeleton, *RegionController) {
	skel := newFakeSkeleton(nil,
		newFakeSlot("hat", 0, 0, 20, 10),
		newFakeSlot("shirt", 0, -40, 40, 40),
		newFakeSlot("skirt", 0, -80, 40, 20),
	)
	return skel, NewRegionController(skel, Placement{Scale: 1})
}

func TestRegionHideShow(t *testing.T) {
	skel, c := newRegionFixture()
	if c.IsHidden("hat") {
		t.Fatal("hat hidden before Hide")
	}
	if !c.Hide("hat") {
		t.Fatal("Hide = false, want true")
	}
	hat := skel.slot(t, "hat")
	if hat.att != nil || hat.alpha != 0 {
		t.Errorf("slot after Hide = (%v, %v), want (nil, 0)", hat.att, hat.alpha)
	}
	if !c.IsHidden("hat") {
		t.Error("IsHidden = false after Hide")
	}
	if c.Attachment("hat") != nil {
		t.Error("Attachment resolves while hidden")
	}

	if !c.Show("hat") {
		t.Fatal("Show = false, want true")
	}
	if hat.att != fakeAttachment("hat") || hat.alpha != 1 {
		t.Errorf("slot after Show = (%v, %v), want (hat, 1)", hat.att, hat.alpha)
	}
	if c.IsHidden("hat") {
		t.Error("IsHidden = true after Show")
	}
}

func TestRegionApplyOverridesTimeline(t *testing.T) {
	skel, c := newRegionFixture()
	c.Hide("shirt")

	// The animation timeline puts the attachment back.
	shirt := skel.slot(t, "shirt")
	shirt.att = fakeAttachment("shirt")
	shirt.alpha = 1
	if c.Attachment("shirt") != nil {
		t.Error("resolver returned the timeline attachment")
	}

	c.Apply()
	if shirt.att != nil || shirt.alpha != 0 {
		t.Errorf("slot after Apply = (%v, %v), want (nil, 0)", shirt.att, shirt.alpha)
	}
}

func TestRegionUnloadIsPermanent(t *testing.T) {
	skel, c := newRegionFixture()
	if !c.Unload("skirt") {
		t.Fatal("Unload = false")
	}
	if !c.Unload("skirt") {
		t.Fatal("second Unload = false")
	}
	skirt := skel.slot(t, "skirt")
	if skirt.setup != nil {
		t.Error("setup attachment survived Unload")
	}
	if c.Show("skirt") {
		t.Error("Show = true for an unloaded region")
	}
	if !c.IsHidden("skirt") {
		t.Error("unloaded region not hidden")
	}
	if got := c.HiddenRegions(); len(got) != 0 {
		t.Errorf("HiddenRegions = %v, want none", got)
	}
}

func TestRegionShowWithoutSetupAttachment(t *testing.T) {
	skel, c := newRegionFixture()
	hat := skel.slot(t, "hat")
	hat.setup = nil
	c.Hide("hat")
	if c.Show("hat") {
		t.Error("Show = true without a setup attachment")
	}
	if hat.alpha != 1 {
		t.Errorf("alpha = %v, want 1", hat.alpha)
	}
}

func TestRegionUnknownNames(t *testing.T) {
	_, c := newRegionFixture()
	if c.Hide("cape") {
		t.Error("Hide(unknown) = true")
	}
	if c.IsHidden("cape") {
		t.Error("IsHidden(unknown) = true")
	}
	if c.CheckClick(100, 50, 200, 100, "cape") {
		t.Error("CheckClick(unknown) = true")
	}
}

func TestRegionAllHidden(t *testing.T) {
	_, c := newRegionFixture()
	tests := []struct {
		name  string
		hide  []string
		query []string
		want  bool
	}{
		{"empty list", nil, nil, false},
		{"none hidden", nil, []string{"hat"}, false},
		{"partial", []string{"hat"}, []string{"hat", "shirt"}, false},
		{"all", []string{"hat", "shirt"}, []string{"hat", "shirt"}, true},
		{"unknown member", []string{"hat"}, []string{"hat", "cape"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.RestoreAllHidden()
			for _, h := range tt.hide {
				c.Hide(h)
			}
			if got := c.AllHidden(tt.query); got != tt.want {
				t.Errorf("AllHidden(%v) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestRegionRestoreAllHidden(t *testing.T) {
	_, c := newRegionFixture()
	c.Hide("shirt")
	c.Hide("hat")
	c.Unload("skirt")
	if got, want := c.HiddenRegions(), []string{"shirt", "hat"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("HiddenRegions = %v, want %v", got, want)
	}
	c.RestoreAllHidden()
	if c.IsHidden("shirt") || c.IsHidden("hat") {
		t.Error("region still hidden after RestoreAllHidden")
	}
	if !c.IsHidden("skirt") {
		t.Error("unloaded region restored")
	}
}

func TestRegionCheckClick(t *testing.T) {
	_, c := newRegionFixture()
	// hat spans x [90, 110] and y [45, 55] on a 200x100 canvas.
	tests := []struct {
		x, y float64
		want bool
	}{
		{100, 50, true},
		{90, 45, true},
		{110, 55, true},
		{120, 50, false},
		{100, 60, false},
	}
	for _, tt := range tests {
		if got := c.CheckClick(tt.x, tt.y, 200, 100, "hat"); got != tt.want {
			t.Errorf("CheckClick(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}

	c.SetPlacement(Placement{X: 50, Y: 10, Scale: 2})
	placed := []struct {
		x, y float64
		want bool
	}{
		{150, 40, true},
		{130, 30, true},
		{170, 50, true},
		{100, 50, false},
		{150, 51, false},
	}
	for _, tt := range placed {
		if got := c.CheckClick(tt.x, tt.y, 200, 100, "hat"); got != tt.want {
			t.Errorf("placed CheckClick(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	r, ok := c.ScreenBounds("hat", 200, 100)
	if !ok {
		t.Fatal("ScreenBounds ok = false")
	}
	want := Rect{X: 130, Y: 30, Width: 40, Height: 20}
	if r != want {
		t.Errorf("ScreenBounds = %+v, want %+v", r, want)
	}
}

func TestSuggest(t *testing.T) {
	got := suggest("Hat", []string{"hat_front", "shirt", "HAT"})
	want := []string{"hat_front", "HAT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("suggest = %v, want %v", got, want)
	}
	if got := suggest("", []string{"a"}); got != nil {
		t.Errorf("suggest(empty) = %v, want nil", got)
	}
}
