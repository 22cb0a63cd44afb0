package livewall

import (
	"log"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// regionOverride is one row of the override table. An unloaded region is
// always hidden too.
type regionOverride struct {
	hidden   bool
	unloaded bool
}

// RegionController owns the force-hidden table of one skeleton instance.
// It wraps the skeleton's slot data instead of trusting it: Attachment is the
// masking resolver every consumer goes through, and Apply re-asserts the
// overrides after each animation tick because the timeline may restore
// attachments on its own.
type RegionController struct {
	skel      Skeleton
	placement Placement
	overrides map[string]*regionOverride
	order     []string // insertion order of overrides, for stable iteration
	reported  mapset.Set[string]
}

// NewRegionController creates an empty override table for skel.
func NewRegionController(skel Skeleton, placement Placement) *RegionController {
	return &RegionController{
		skel:      skel,
		placement: placement,
		overrides: make(map[string]*regionOverride),
		reported:  mapset.New[string](),
	}
}

// SetPlacement updates the skeleton placement used for hit testing.
func (c *RegionController) SetPlacement(p Placement) {
	c.placement = p
}

// slot resolves a region, logging a suggestion once per unknown name.
func (c *RegionController) slot(name string) Slot {
	if c.skel == nil {
		return nil
	}
	if s := c.skel.FindSlot(name); s != nil {
		return s
	}
	if !c.reported.Has(name) {
		c.reported.Put(name)
		names := c.Names()
		if sug := suggest(name, names); len(sug) > 0 {
			log.Printf("livewall: region %q not found, did you mean %s? (available: %s)",
				name, strings.Join(sug, ", "), strings.Join(names, ", "))
		} else {
			log.Printf("livewall: region %q not found (available: %s)", name, strings.Join(names, ", "))
		}
	}
	return nil
}

// Names returns every region name of the skeleton, sorted.
func (c *RegionController) Names() []string {
	if c.skel == nil {
		return nil
	}
	slots := c.skel.Slots()
	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

func (c *RegionController) override(name string) *regionOverride {
	o, ok := c.overrides[name]
	if !ok {
		o = &regionOverride{}
		c.overrides[name] = o
		c.order = append(c.order, name)
	}
	return o
}

func (c *RegionController) drop(name string) {
	delete(c.overrides, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Hide makes the region fully transparent and clears its attachment until
// Show is called. It reports whether the region exists.
func (c *RegionController) Hide(name string) bool {
	s := c.slot(name)
	if s == nil {
		return false
	}
	c.override(name).hidden = true
	s.SetAlpha(0)
	s.SetAttachment(nil)
	return true
}

// Show removes a temporary hide and restores the setup-pose attachment.
// Unloaded regions stay hidden. It reports whether the region is visible
// afterwards.
func (c *RegionController) Show(name string) bool {
	s := c.slot(name)
	if s == nil {
		return false
	}
	if o, ok := c.overrides[name]; ok {
		if o.unloaded {
			return false
		}
		c.drop(name)
	}
	att := s.DefaultAttachment()
	if att == nil {
		log.Printf("livewall: region %q has no setup-pose attachment to restore", name)
		s.SetAlpha(1)
		return false
	}
	s.SetAttachment(att)
	s.SetAlpha(1)
	return true
}

// Unload permanently removes the region's attachment, including from the
// setup pose. Idempotent.
func (c *RegionController) Unload(name string) bool {
	s := c.slot(name)
	if s == nil {
		return false
	}
	o := c.override(name)
	if !o.unloaded {
		s.ClearDefaultAttachment()
	}
	o.hidden = true
	o.unloaded = true
	s.SetAlpha(0)
	s.SetAttachment(nil)
	return true
}

// IsHidden reports whether the region is force-hidden, unloaded, or simply
// renders nothing right now. Unknown regions are not hidden.
func (c *RegionController) IsHidden(name string) bool {
	if o, ok := c.overrides[name]; ok && (o.hidden || o.unloaded) {
		return true
	}
	s := c.slot(name)
	if s == nil {
		return false
	}
	return s.Attachment() == nil || s.Alpha() <= 0
}

// AllHidden reports whether every named region is hidden. An empty list is
// never satisfied.
func (c *RegionController) AllHidden(names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if c.skel == nil || c.skel.FindSlot(n) == nil {
			c.slot(n)
			return false
		}
		if !c.IsHidden(n) {
			return false
		}
	}
	return true
}

// Attachment is the masking resolver: the attachment the region should
// render, which is nil whenever an override is active.
func (c *RegionController) Attachment(name string) Attachment {
	if o, ok := c.overrides[name]; ok && o.hidden {
		return nil
	}
	s := c.slot(name)
	if s == nil {
		return nil
	}
	return s.Attachment()
}

// Apply re-asserts every override. Call it after each Skeleton.Update.
func (c *RegionController) Apply() {
	if c.skel == nil {
		return
	}
	for _, name := range c.order {
		o := c.overrides[name]
		if o == nil || !o.hidden {
			continue
		}
		s := c.skel.FindSlot(name)
		if s == nil {
			continue
		}
		if s.Attachment() != nil {
			s.SetAttachment(nil)
		}
		s.SetAlpha(0)
	}
}

// HiddenRegions returns the temporarily hidden regions in the order they
// were hidden. Unloaded regions are not included.
func (c *RegionController) HiddenRegions() []string {
	var out []string
	for _, name := range c.order {
		if o := c.overrides[name]; o != nil && o.hidden && !o.unloaded {
			out = append(out, name)
		}
	}
	return out
}

// RestoreAllHidden shows every temporarily hidden region.
func (c *RegionController) RestoreAllHidden() {
	for _, name := range c.HiddenRegions() {
		c.Show(name)
	}
}

// ScreenBounds returns the region's current axis-aligned screen rectangle.
func (c *RegionController) ScreenBounds(name string, canvasW, canvasH float64) (Rect, bool) {
	s := c.slot(name)
	if s == nil {
		return Rect{}, false
	}
	verts := s.WorldVertices()
	if len(verts) < 2 {
		return Rect{}, false
	}
	m := c.placement.screenMatrix(canvasW, canvasH)
	points := make([]Vec2, 0, len(verts)/2)
	for i := 0; i+1 < len(verts); i += 2 {
		x, y := transformPoint(m, verts[i], verts[i+1])
		points = append(points, Vec2{x, y})
	}
	return boundsOf(points), true
}

// CheckClick reports whether the screen point lies inside the region's
// current bounding box. The point is mapped into skeleton space and tested
// against the slot's world vertices there. Unknown regions never match.
func (c *RegionController) CheckClick(x, y, canvasW, canvasH float64, name string) bool {
	s := c.slot(name)
	if s == nil {
		return false
	}
	verts := s.WorldVertices()
	if len(verts) < 2 {
		return false
	}
	points := make([]Vec2, 0, len(verts)/2)
	for i := 0; i+1 < len(verts); i += 2 {
		points = append(points, Vec2{verts[i], verts[i+1]})
	}
	p := c.placement.ToSkeleton(x, y, canvasW, canvasH)
	return boundsOf(points).Contains(p.X, p.Y)
}

// suggest returns the candidates that contain name or are contained in it,
// compared case-insensitively.
func suggest(name string, candidates []string) []string {
	q := strings.ToLower(name)
	if q == "" {
		return nil
	}
	var out []string
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if strings.Contains(lc, q) || strings.Contains(q, lc) {
			out = append(out, c)
		}
	}
	return out
}
