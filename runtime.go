package livewall

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// ErrSwitchBusy is returned when a mesh switch is requested while another
// one is tearing down or loading.
var ErrSwitchBusy = errors.New("livewall: mesh switch in progress")

// Options configures a Runtime. Config and Loader are required; every other
// collaborator has a usable default.
type Options struct {
	Config *Config
	Loader SkeletonLoader

	// Renderer draws the background scene. Nil draws nothing behind the
	// skeleton.
	Renderer Renderer
	// Media opens voices, effect audio, overlay media and music. Nil makes
	// the wallpaper silent and overlays show their retry prompt.
	Media MediaBackend
	// Images decodes image files. Nil reads them with ebitenutil.
	Images ImageSource
	Clock  Clock
	Rand   *rand.Rand
	// Scheduler lets the media backend share the runtime's loop; backends
	// post their end events to it. Nil creates one.
	Scheduler *Scheduler
	// Preferences defaults to DefaultPreferences.
	Preferences *Preferences
}

// meshInstance is the live state of the active mesh.
type meshInstance struct {
	index   int
	cfg     MeshConfig
	skel    Skeleton
	regions *RegionController
	voice   *AnimationCoordinator
	restore *TimerGroup
}

// meshLoad is a skeleton being loaded for a switch.
type meshLoad struct {
	index  int
	skel   Skeleton
	err    error
	done   bool
	commit bool
	// fallback is the mesh to reload when this load fails, or -1.
	fallback int
	// restore marks the reload of a fallback; it keeps the failed switch's
	// error.
	restore bool
	cancel  context.CancelFunc
}

// Runtime is the wallpaper: it owns one scheduler and every component and
// implements ebiten.Game. All methods must be called on the loop goroutine.
type Runtime struct {
	cfg      *Config
	prefs    Preferences
	loader   SkeletonLoader
	renderer Renderer
	media    MediaBackend
	clock    Clock
	rng      *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc

	sched     *Scheduler
	signals   *Signals
	images    *ImageCache
	layers    *LayerStack
	stage     *stage
	points    *PointEffectTracker
	sequencer *Sequencer
	overlay   *OverlayController
	triggers  *TriggerEngine
	music     *BackgroundMusic
	reloader  *Reloader

	mesh            *meshInstance
	pending         *meshLoad
	renderingPaused bool
	lastErr         error

	width, height int
	pointerInput
	scenario *Scenario

	shots   []string
	shotDir string

	onNotes func(notes []Note)
	debug   bool
	stats   debugStats
	hud     *debugHUD
	closed  bool
}

// NewRuntime builds every component and loads the configured mesh. A
// skeleton that fails to load aborts construction.
func NewRuntime(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Config == nil {
		return nil, errors.New("livewall: no configuration")
	}
	if opts.Loader == nil {
		return nil, errors.New("livewall: no skeleton loader")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg:      opts.Config,
		prefs:    DefaultPreferences(),
		loader:   opts.Loader,
		renderer: opts.Renderer,
		media:    opts.Media,
		clock:    opts.Clock,
		rng:      opts.Rand,
		sched:    opts.Scheduler,
		signals:  NewSignals(),
		layers:   &LayerStack{},
	}
	if opts.Preferences != nil {
		r.prefs = *opts.Preferences
	}
	if r.sched == nil {
		r.sched = NewScheduler()
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.rng == nil {
		seed := uint64(time.Now().UnixNano())
		r.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.pointerInput.init(r.Click)

	r.images = NewImageCache(r.cfg.Dir, opts.Images)
	r.points = NewPointEffectTracker(r.sched, r.images, r.rng)
	r.stage = &stage{
		sched:   r.sched,
		images:  r.images,
		layers:  r.layers,
		media:   r.media,
		rng:     r.rng,
		regions: r.regions,
		canvas:  r.canvasSize,
		resolve: r.cfg.resolve,
		volume:  func() float64 { return r.prefs.Effect() },
	}
	r.sequencer = newSequencer(r.stage, func(name string) {
		if r.mesh != nil {
			r.mesh.voice.PlayOneShot(name)
		}
	})

	r.overlay = NewOverlayController(r.sched, r.media, r.renderer, r.signals, r.rng)
	r.overlay.resolve = r.cfg.resolve
	r.overlay.volume = func() float64 { return r.prefs.Effect() }
	r.overlay.beforeStart = func() {
		r.points.ClearAll()
		if r.mesh != nil {
			r.mesh.regions.RestoreAllHidden()
		}
	}
	r.overlay.SetHooks(OverlayHooks{
		OnStart: r.overlayStarted,
		OnEnd:   r.overlayEnded,
		OnAbort: r.overlayAborted,
	})

	r.triggers = NewTriggerEngine(r.sched, r.clock, r.rng, r.points, r.sequencer, r.overlay)
	r.triggers.canvas = r.canvasSize
	r.triggers.SetScanInterval(r.prefs.ScanInterval)
	r.triggers.OnFire = func(id string, path FirePath) {
		if r.debug {
			_, _ = fmt.Fprintf(os.Stderr, "[livewall] fired %s (%s)\n", id, path)
		}
	}

	idx := r.cfg.CurrentMeshIndex
	skel, err := loadSkeleton(r.ctx, r.loader, r.cfg.Meshes[idx], idx)
	if err != nil {
		r.cancel()
		return nil, err
	}
	r.installMesh(idx, skel)

	if bg := r.cfg.Canvas.Background; bg != "" && r.renderer != nil {
		r.renderer.SetBackground(r.cfg.resolve(bg), msDuration(float64(r.cfg.Canvas.BackgroundTransition)))
	}
	r.music = NewBackgroundMusic(r.cfg.BackgroundMusic, r.media, r.cfg.resolve, r.prefs.Music())
	if r.music != nil {
		r.overlay.SetMusic(r.music)
		r.music.Start()
	}
	if r.cfg.Path != "" && r.prefs.ReloadInterval > 0 {
		r.reloader = NewReloader(r.sched, r.cfg.Path, r.prefs.ReloadInterval, r.applyReload)
		r.reloader.Start()
	}
	r.debug = r.prefs.Debug
	return r, nil
}

// loadSkeleton validates mesh and loads it through loader. It is safe to
// call off the loop goroutine.
func loadSkeleton(ctx context.Context, loader SkeletonLoader, mesh MeshConfig, index int) (Skeleton, error) {
	if mesh.Skeleton == "" {
		return nil, fmt.Errorf("%w: mesh %d", ErrMissingSkeleton, index)
	}
	skel, err := loader.Load(ctx, mesh)
	if err != nil {
		return nil, fmt.Errorf("livewall: load mesh %d: %w", index, err)
	}
	if skel == nil {
		return nil, fmt.Errorf("livewall: load mesh %d: loader returned no skeleton", index)
	}
	return skel, nil
}

// installMesh makes skel the live mesh i.
func (r *Runtime) installMesh(i int, skel Skeleton) {
	cfg := r.cfg.Meshes[i]
	regions := NewRegionController(skel, cfg.Placement())
	for _, name := range cfg.HiddenSlots {
		regions.Unload(name)
	}
	voice := NewAnimationCoordinator(skel, cfg.Animations, r.media, r.cfg.resolve, r.prefs.Voice(), r.signals, r.rng)
	r.mesh = &meshInstance{
		index:   i,
		cfg:     cfg,
		skel:    skel,
		regions: regions,
		voice:   voice,
		restore: NewTimerGroup(r.sched),
	}
	r.points.Preload(cfg.PointEffects)
	r.triggers.Load(cfg, regions, r.cfg.SpecialEffectLibrary)
	r.cfg.CurrentMeshIndex = i
	r.signals.Emit(SignalMeshSwitched)
}

// teardownMesh releases the live mesh and everything drawn over it.
func (r *Runtime) teardownMesh() {
	m := r.mesh
	if m == nil {
		return
	}
	r.mesh = nil
	m.restore.CancelAll()
	r.sequencer.Cancel()
	r.points.ClearAll()
	r.triggers.Unload()
	m.voice.Dispose()
	m.skel.Dispose()
}

func (r *Runtime) regions() *RegionController {
	if r.mesh == nil {
		return nil
	}
	return r.mesh.regions
}

// PrepareSwitch starts loading mesh i in the background. Preparing the live
// mesh is a no-op.
func (r *Runtime) PrepareSwitch(i int) error {
	if _, err := r.cfg.Mesh(i); err != nil {
		return err
	}
	if r.pending != nil {
		if r.pending.index == i {
			return nil
		}
		if r.pending.commit {
			return ErrSwitchBusy
		}
		r.discardPending()
	}
	if r.mesh != nil && r.mesh.index == i {
		return nil
	}
	ctx, cancel := context.WithCancel(r.ctx)
	ld := &meshLoad{index: i, fallback: -1, cancel: cancel}
	r.pending = ld
	mesh := r.cfg.Meshes[i]
	go func() {
		skel, err := loadSkeleton(ctx, r.loader, mesh, i)
		r.sched.Post(func() { r.loaded(ld, skel, err) })
	}()
	return nil
}

// CompleteSwitch tears the live mesh down and brings up mesh i as soon as it
// has loaded. Rendering stays paused in between.
func (r *Runtime) CompleteSwitch(i int) error {
	if r.pending == nil && r.mesh != nil && r.mesh.index == i {
		return nil
	}
	if r.pending == nil || r.pending.index != i {
		if err := r.PrepareSwitch(i); err != nil {
			return err
		}
	}
	ld := r.pending
	if ld.commit {
		return nil
	}
	ld.commit = true
	if r.mesh != nil {
		ld.fallback = r.mesh.index
	}
	r.renderingPaused = true
	r.teardownMesh()
	if ld.done {
		r.finishSwitch(ld)
	}
	return nil
}

// SwitchMesh prepares and completes a switch to mesh i.
func (r *Runtime) SwitchMesh(i int) error {
	if err := r.PrepareSwitch(i); err != nil {
		return err
	}
	return r.CompleteSwitch(i)
}

func (r *Runtime) loaded(ld *meshLoad, skel Skeleton, err error) {
	if r.pending != ld || r.closed {
		if skel != nil {
			skel.Dispose()
		}
		return
	}
	ld.skel, ld.err, ld.done = skel, err, true
	if ld.commit {
		r.finishSwitch(ld)
	}
}

func (r *Runtime) finishSwitch(ld *meshLoad) {
	r.pending = nil
	ld.cancel()
	if ld.err != nil {
		log.Printf("livewall: switch to mesh %d: %v", ld.index, ld.err)
		r.lastErr = ld.err
		if ld.fallback < 0 || ld.fallback == ld.index {
			return
		}
		// Bring the previous mesh back.
		if err := r.PrepareSwitch(ld.fallback); err != nil {
			log.Printf("livewall: restore mesh %d: %v", ld.fallback, err)
			return
		}
		r.pending.commit = true
		r.pending.restore = true
		return
	}
	if !ld.restore {
		r.lastErr = nil
	}
	r.installMesh(ld.index, ld.skel)
	r.renderingPaused = false
	if err := r.persistMeshIndex(ld.index); err != nil {
		log.Printf("livewall: %v", err)
	}
}

// discardPending drops a load that was never committed.
func (r *Runtime) discardPending() {
	ld := r.pending
	if ld == nil {
		return
	}
	r.pending = nil
	ld.cancel()
	if ld.done && ld.skel != nil {
		ld.skel.Dispose()
	}
}

// persistMeshIndex writes the active index back into the configuration file.
func (r *Runtime) persistMeshIndex(i int) error {
	if r.cfg.Path == "" || len(r.cfg.raw) == 0 {
		return nil
	}
	data, err := SetMeshIndex(r.cfg.raw, i)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.cfg.Path, data, 0o644); err != nil {
		return fmt.Errorf("livewall: write config: %w", err)
	}
	r.cfg.raw = data
	return nil
}

func (r *Runtime) overlayStarted(item OverlayMediaItem) {
	if item.SwitchToMesh == nil {
		return
	}
	if err := r.PrepareSwitch(*item.SwitchToMesh); err != nil {
		log.Printf("livewall: overlay mesh preload: %v", err)
	}
}

func (r *Runtime) overlayEnded(item OverlayMediaItem) {
	if item.SwitchToMesh == nil {
		return
	}
	if err := r.CompleteSwitch(*item.SwitchToMesh); err != nil {
		log.Printf("livewall: overlay mesh switch: %v", err)
	}
}

func (r *Runtime) overlayAborted(item OverlayMediaItem) {
	if item.SwitchToMesh == nil || r.pending == nil {
		return
	}
	if !r.pending.commit && r.pending.index == *item.SwitchToMesh {
		r.discardPending()
	}
}

// applyReload hot-swaps the parts of a re-read document that changed.
func (r *Runtime) applyReload(data []byte) {
	next, err := ParseConfig(data)
	if err != nil {
		log.Printf("livewall: reload: %v", err)
		return
	}
	active := r.cfg.CurrentMeshIndex
	diff := DiffConfig(r.cfg.raw, data, active)
	r.cfg.raw = append([]byte(nil), data...)
	if !diff.Changed() {
		return
	}
	if diff.Notes {
		r.cfg.Notes = next.Notes
		if r.onNotes != nil {
			r.onNotes(r.cfg.Notes)
		}
	}
	if !diff.Library && !diff.Triggers {
		return
	}
	r.cfg.SpecialEffectLibrary = next.SpecialEffectLibrary
	for i := range r.cfg.Meshes {
		if i < len(next.Meshes) {
			r.cfg.Meshes[i].SpecialEffectTriggers = next.Meshes[i].SpecialEffectTriggers
		}
	}
	if r.mesh != nil {
		r.mesh.cfg.SpecialEffectTriggers = r.cfg.Meshes[r.mesh.index].SpecialEffectTriggers
		r.triggers.SetEffectTriggers(r.mesh.cfg.SpecialEffectTriggers, r.cfg.SpecialEffectLibrary)
	}
	if r.debug {
		_, _ = fmt.Fprintf(os.Stderr, "[livewall] reloaded: library=%v triggers=%v\n", diff.Library, diff.Triggers)
	}
}

// Reload re-reads the configuration file now.
func (r *Runtime) Reload() error {
	if r.cfg.Path == "" {
		return errors.New("livewall: configuration has no file")
	}
	data, err := os.ReadFile(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("livewall: reload: %w", err)
	}
	r.applyReload(data)
	return nil
}

// canvasSize is the logical drawing size: the layout size once known,
// otherwise the configured canvas.
func (r *Runtime) canvasSize() (float64, float64) {
	if r.width > 0 && r.height > 0 {
		return float64(r.width), float64(r.height)
	}
	return float64(r.cfg.Canvas.Width), float64(r.cfg.Canvas.Height)
}

// Click handles one pointer click in canvas coordinates. The overlay and a
// card waiting for dismissal consume clicks first; otherwise click triggers,
// slot hide rules and voice slots are checked and a point effect spawns.
func (r *Runtime) Click(x, y float64) {
	if r.closed {
		return
	}
	if r.overlay.HandleClick() {
		return
	}
	if r.sequencer.Dismiss() {
		return
	}
	m := r.mesh
	if m == nil || r.renderingPaused {
		return
	}
	r.triggers.HandleClick(x, y)
	if r.overlay.Active() || r.mesh != m {
		return
	}
	w, h := r.canvasSize()
	for _, rule := range m.cfg.SlotHideRules {
		if m.regions.IsHidden(rule.Slot) || !m.regions.CheckClick(x, y, w, h, rule.Slot) {
			continue
		}
		m.regions.Hide(rule.Slot)
		if rule.RestoreAfter > 0 {
			slot := rule.Slot
			m.restore.After(msDuration(float64(rule.RestoreAfter)), func() {
				m.regions.Show(slot)
			})
		}
	}
	for _, slot := range m.cfg.VoiceSlots {
		if !m.regions.IsHidden(slot) && m.regions.CheckClick(x, y, w, h, slot) {
			m.voice.RequestVoiceAnimation()
			break
		}
	}
	if pe, ok := r.points.SelectByWeight(m.cfg.PointEffects); ok {
		r.points.Show(x, y, pe)
	}
}

// Step runs one frame of dt: the scenario, injected input, the scheduler,
// the skeleton and the throttled trigger scan.
func (r *Runtime) Step(dt time.Duration) {
	if r.closed {
		return
	}
	start := time.Now()
	if r.scenario != nil {
		r.scenario.step(r)
	}
	r.processInjectedInput()
	r.sched.Advance(dt)
	if m := r.mesh; m != nil && !r.renderingPaused {
		m.skel.Update(dt.Seconds())
		m.regions.Apply()
		scan := time.Now()
		r.triggers.Tick()
		r.stats.scanTime = time.Since(scan)
	}
	r.stats.frameTime = time.Since(start)
	r.debugLog()
}

// Update implements ebiten.Game.
func (r *Runtime) Update() error {
	if r.closed {
		return ebiten.Termination
	}
	if !r.injectPending() {
		r.processInput()
	}
	r.Step(time.Second / time.Duration(max(ebiten.TPS(), 1)))
	return nil
}

// Draw implements ebiten.Game. A visible overlay covers the scene.
func (r *Runtime) Draw(screen *ebiten.Image) {
	covered := r.overlay.VideoVisible() || r.overlay.RetryPending()
	if !covered && !r.renderingPaused {
		if r.renderer != nil {
			r.renderer.RenderFrame(screen)
		}
		if m := r.mesh; m != nil {
			m.skel.Draw(screen, m.cfg.Placement())
		}
		r.layers.Draw(screen)
		r.points.Draw(screen)
	}
	r.overlay.Draw(screen)
	if r.debug {
		r.drawDebug(screen)
	}
	r.flushScreenshots(screen)
}

// Layout implements ebiten.Game. The configured canvas size wins over the
// window size.
func (r *Runtime) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := r.cfg.Canvas.Width, r.cfg.Canvas.Height
	if w <= 0 || h <= 0 {
		w, h = outsideWidth, outsideHeight
	}
	if w != r.width || h != r.height {
		r.width, r.height = w, h
		if r.renderer != nil {
			r.renderer.Resize(w, h)
		}
	}
	return w, h
}

// Close releases every component. Update returns ebiten.Termination after.
func (r *Runtime) Close() {
	if r.closed {
		return
	}
	if r.reloader != nil {
		r.reloader.Stop()
	}
	r.discardPending()
	r.overlay.Dispose()
	r.sequencer.Dispose()
	r.teardownMesh()
	r.triggers.Dispose()
	r.points.Dispose()
	r.layers.Clear()
	r.music.Close()
	r.images.Dispose()
	if r.hud != nil {
		r.hud.img.Deallocate()
	}
	r.sched.Reset()
	r.cancel()
	r.closed = true
}

// SetScenario attaches a scripted input sequence.
func (r *Runtime) SetScenario(s *Scenario) { r.scenario = s }

// SetDebugMode toggles stderr statistics and the on-screen HUD.
func (r *Runtime) SetDebugMode(on bool) { r.debug = on }

// OnNotesChanged sets the callback for a reloaded notes list.
func (r *Runtime) OnNotesChanged(fn func(notes []Note)) { r.onNotes = fn }

// Notes returns the sticky notes of the configuration.
func (r *Runtime) Notes() []Note { return r.cfg.Notes }

// IsRenderingPaused reports whether a mesh switch is in progress.
func (r *Runtime) IsRenderingPaused() bool { return r.renderingPaused }

// MeshIndex returns the active mesh index.
func (r *Runtime) MeshIndex() int { return r.cfg.CurrentMeshIndex }

// Err returns the error of the last failed mesh switch, if any.
func (r *Runtime) Err() error { return r.lastErr }

func (r *Runtime) Config() *Config             { return r.cfg }
func (r *Runtime) Scheduler() *Scheduler       { return r.sched }
func (r *Runtime) Signals() *Signals           { return r.signals }
func (r *Runtime) Points() *PointEffectTracker { return r.points }
func (r *Runtime) Sequencer() *Sequencer       { return r.sequencer }
func (r *Runtime) Overlay() *OverlayController { return r.overlay }
func (r *Runtime) Triggers() *TriggerEngine    { return r.triggers }
func (r *Runtime) Music() *BackgroundMusic     { return r.music }
func (r *Runtime) Regions() *RegionController  { return r.regions() }
func (r *Runtime) Voice() *AnimationCoordinator {
	if r.mesh == nil {
		return nil
	}
	return r.mesh.voice
}
