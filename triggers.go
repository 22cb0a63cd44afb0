package livewall

import (
	"fmt"
	"log"
	"math"
	"math/rand/v2"

	"github.com/zyedidia/generic/mapset"
)

const (
	// defaultScanInterval is the frame cadence of the condition scan.
	defaultScanInterval = 10
	// timeOfDayWindow is how close the clock must be to a target second.
	timeOfDayWindow = 1.0
	// timeOfDayMissed marks a target as already fired on load when the clock
	// is further past it than this.
	timeOfDayMissed = 60.0
)

// FirePath names the condition that fired a rule.
type FirePath uint8

const (
	FireClick FirePath = iota
	FireHidden
	FireActive
	FireCount
	FireCumulative
	FireTimeOfDay
)

// String returns the condition name.
func (p FirePath) String() string {
	switch p {
	case FireClick:
		return "click"
	case FireHidden:
		return "hidden"
	case FireActive:
		return "active"
	case FireCount:
		return "count"
	case FireCumulative:
		return "cumulative"
	case FireTimeOfDay:
		return "time-of-day"
	default:
		return "unknown"
	}
}

// rule is one configured trigger with its payload.
type rule struct {
	id      string
	cond    TriggerConditions
	overlay *OverlayMediaItem
	effect  *SpecialEffectTrigger
}

// dayMark records the day a time-of-day rule fired and the target it fired
// for. A mark only blocks the rule while both still match.
type dayMark struct {
	day    civilDay
	target int
}

// target returns the enabled time-of-day target of r.
func (r *rule) target() (int, bool) {
	if r.cond.TriggerAtSecondOfDay == nil {
		return 0, false
	}
	return r.cond.TriggerAtSecondOfDay.Target()
}

// TriggerEngine evaluates every configured rule of the active mesh and
// dispatches the payloads. It owns the de-dup state and the cumulative
// counters.
type TriggerEngine struct {
	sched     *Scheduler
	clock     Clock
	rng       *rand.Rand
	points    *PointEffectTracker
	sequencer *Sequencer
	overlay   *OverlayController
	counters  *CounterTable
	library   SpecialEffectLibrary
	regions   *RegionController
	canvas    func() (float64, float64)

	interval  uint64
	overlays  []*rule
	effects   []*rule
	byCounter map[string][]*rule
	fired     mapset.Set[string]
	firedDay  map[string]dayMark
	disposed  bool

	// OnFire, if set, observes every firing.
	OnFire func(id string, path FirePath)
}

// NewTriggerEngine creates an engine without rules.
func NewTriggerEngine(sched *Scheduler, clock Clock, rng *rand.Rand, points *PointEffectTracker,
	sequencer *Sequencer, overlay *OverlayController) *TriggerEngine {
	e := &TriggerEngine{
		sched:     sched,
		clock:     clock,
		rng:       rng,
		points:    points,
		sequencer: sequencer,
		overlay:   overlay,
		counters:  NewCounterTable(),
		canvas:    func() (float64, float64) { return 0, 0 },
		interval:  defaultScanInterval,
		byCounter: make(map[string][]*rule),
		fired:     mapset.New[string](),
		firedDay:  make(map[string]dayMark),
	}
	if points != nil {
		points.OnComplete(e.Completed)
	}
	return e
}

// SetScanInterval sets the frame cadence of Tick. Values below 1 mean every
// frame.
func (e *TriggerEngine) SetScanInterval(n int) {
	if n < 1 {
		n = 1
	}
	e.interval = uint64(n)
}

// Counters returns the cumulative counter table.
func (e *TriggerEngine) Counters() *CounterTable {
	return e.counters
}

// Load replaces every rule with the ones of mesh and clears the session
// state. Counters start from zero for the new mesh.
func (e *TriggerEngine) Load(mesh MeshConfig, regions *RegionController, library SpecialEffectLibrary) {
	e.regions = regions
	e.library = library
	e.overlays = e.overlays[:0]
	for i := range mesh.Videos {
		item := mesh.Videos[i]
		e.overlays = append(e.overlays, &rule{id: fmt.Sprintf("video:%d", i), cond: item.TriggerConditions, overlay: &item})
	}
	e.fired = mapset.New[string]()
	e.firedDay = make(map[string]dayMark)
	e.counters.Clear()
	e.SetEffectTriggers(mesh.SpecialEffectTriggers, library)
}

// Unload drops every rule and the region table of a torn-down mesh.
func (e *TriggerEngine) Unload() {
	e.regions = nil
	e.overlays = e.overlays[:0]
	e.effects = e.effects[:0]
	e.byCounter = make(map[string][]*rule)
	e.fired = mapset.New[string]()
	e.firedDay = make(map[string]dayMark)
	e.counters.Clear()
}

// SetEffectTriggers swaps the special-effect rules and the library, as a hot
// reload does. Overlay rules and counters are kept, and so is the fired-today
// mark of every rule whose target second is unchanged.
func (e *TriggerEngine) SetEffectTriggers(triggers []SpecialEffectTrigger, library SpecialEffectLibrary) {
	e.library = library
	e.effects = e.effects[:0]
	for i := range triggers {
		t := triggers[i]
		e.effects = append(e.effects, &rule{id: fmt.Sprintf("trigger:%d", i), cond: t.TriggerConditions, effect: &t})
	}
	e.index()
	e.pruneDayMarks()
	e.primeTimeOfDay()
}

// pruneDayMarks drops the marks of rules that are gone or now target a
// different second.
func (e *TriggerEngine) pruneDayMarks() {
	targets := make(map[string]int, len(e.firedDay))
	for _, r := range e.rules() {
		if target, ok := r.target(); ok {
			targets[r.id] = target
		}
	}
	for id, m := range e.firedDay {
		if target, ok := targets[id]; !ok || target != m.target {
			delete(e.firedDay, id)
		}
	}
}

// index rebuilds the counter id → rules lookup.
func (e *TriggerEngine) index() {
	e.byCounter = make(map[string][]*rule)
	for _, r := range e.rules() {
		for _, c := range r.cond.CumulativeCounts {
			e.byCounter[c.ID] = append(e.byCounter[c.ID], r)
		}
	}
}

// rules returns overlay rules followed by special-effect rules.
func (e *TriggerEngine) rules() []*rule {
	out := make([]*rule, 0, len(e.overlays)+len(e.effects))
	out = append(out, e.overlays...)
	return append(out, e.effects...)
}

// primeTimeOfDay marks targets that passed more than a minute ago as fired
// today, so loading late in the day does not fire them all at once.
func (e *TriggerEngine) primeTimeOfDay() {
	now := e.clock.Now()
	sod := secondOfDay(now)
	for _, r := range e.rules() {
		target, ok := r.target()
		if ok && sod-float64(target) > timeOfDayMissed {
			e.firedDay[r.id] = dayMark{dayOf(now), target}
		}
	}
}

// Tick runs the scan on every interval-th frame.
func (e *TriggerEngine) Tick() {
	if e.sched.Frame()%e.interval != 0 {
		return
	}
	e.Scan()
}

// Scan evaluates every rule once. A rule fires at most once per scan.
func (e *TriggerEngine) Scan() {
	if e.disposed {
		return
	}
	for _, r := range e.rules() {
		if e.disposed {
			return
		}
		if e.fired.Has(r.id) {
			continue
		}
		if path, ok := e.evaluate(r); ok {
			e.fire(r, path)
		}
	}
}

// evaluate checks the scanned conditions of r in precedence order.
func (e *TriggerEngine) evaluate(r *rule) (FirePath, bool) {
	c := r.cond
	if len(c.HiddenSlots) > 0 && e.regions != nil && e.regions.AllHidden(c.HiddenSlots) {
		return FireHidden, true
	}
	if len(c.ActivePointEffects) > 0 && e.points != nil && e.points.IsActiveSet(c.ActivePointEffects) {
		return FireActive, true
	}
	if r.effect != nil && len(c.PointEffectCounts) > 0 && e.points != nil && e.points.IsCountReached(c.PointEffectCounts) {
		return FireCount, true
	}
	if e.timeOfDay(r) {
		return FireTimeOfDay, true
	}
	return 0, false
}

// timeOfDay reports whether r's target second is due today.
func (e *TriggerEngine) timeOfDay(r *rule) bool {
	target, ok := r.target()
	if !ok {
		return false
	}
	now := e.clock.Now()
	if m, ok := e.firedDay[r.id]; ok && m == (dayMark{dayOf(now), target}) {
		return false
	}
	return math.Abs(secondOfDay(now)-float64(target)) <= timeOfDayWindow
}

// HandleClick fires the first rule whose click region contains the point
// and is not hidden. It reports whether a rule fired.
func (e *TriggerEngine) HandleClick(x, y float64) bool {
	if e.disposed || e.regions == nil {
		return false
	}
	w, h := e.canvas()
	for _, r := range e.rules() {
		if len(r.cond.ClickSlots) == 0 || e.fired.Has(r.id) {
			continue
		}
		for _, slot := range r.cond.ClickSlots {
			if e.regions.IsHidden(slot) || !e.regions.CheckClick(x, y, w, h, slot) {
				continue
			}
			e.fire(r, FireClick)
			return true
		}
	}
	return false
}

// Completed records one finished point effect or library effect and fires
// every cumulative rule that is now satisfied.
func (e *TriggerEngine) Completed(id string) {
	if e.disposed {
		return
	}
	e.counters.Inc(id)
	for _, r := range e.byCounter[id] {
		if e.fired.Has(r.id) || !e.counters.Met(r.cond.CumulativeCounts) {
			continue
		}
		e.counters.Reset(r.cond.CumulativeCounts)
		e.fire(r, FireCumulative)
	}
}

// fire marks r, applies the side effect of path and dispatches the payload.
func (e *TriggerEngine) fire(r *rule, path FirePath) {
	if path == FireTimeOfDay {
		target, _ := r.target()
		e.firedDay[r.id] = dayMark{dayOf(e.clock.Now()), target}
	} else {
		id := r.id
		fired := e.fired
		fired.Put(id)
		e.sched.NextFrame(func() {
			fired.Remove(id)
		})
	}
	switch path {
	case FireHidden:
		e.regions.RestoreAllHidden()
	case FireActive, FireCount:
		e.points.ClearAll()
	}
	if e.OnFire != nil {
		e.OnFire(r.id, path)
	}
	switch {
	case r.overlay != nil:
		if e.overlay != nil {
			e.overlay.Start(*r.overlay)
		}
	case r.effect != nil:
		e.playEffects(r.effect)
	}
}

// playEffects resolves the trigger's indices and queues them.
func (e *TriggerEngine) playEffects(t *SpecialEffectTrigger) {
	if e.sequencer == nil {
		return
	}
	indices := resolveIndices(t.EffectIndices, t.Random, e.rng)
	if len(indices) == 0 {
		log.Printf("livewall: special effect trigger has no effect indices")
		return
	}
	entries := make([]SequenceEntry, 0, len(indices))
	for _, i := range indices {
		if eff := e.library.Effect(i); eff != nil {
			entries = append(entries, SequenceEntry{Index: i, Effect: eff})
		}
	}
	e.sequencer.Play(entries, func(played []int) {
		for _, i := range played {
			e.Completed(effectCounterID(i))
		}
	})
}

// resolveIndices applies the random flag. A flat list yields one random
// index or every index in order; a nested list yields one whole random group
// or every group flattened in order.
func resolveIndices(l IndexList, random bool, rng *rand.Rand) []int {
	if len(l.Groups) == 0 {
		return nil
	}
	if !random {
		return l.Flatten()
	}
	if l.Nested {
		g := l.Groups[rng.IntN(len(l.Groups))]
		return append([]int(nil), g...)
	}
	flat := l.Flatten()
	return []int{flat[rng.IntN(len(flat))]}
}

// Dispose stops all evaluation.
func (e *TriggerEngine) Dispose() {
	e.disposed = true
	e.regions = nil
}
