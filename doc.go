// Package livewall is an interactive animated wallpaper runtime for
// [Ebitengine].
//
// A wallpaper is one JSON configuration document describing a canvas, a list
// of skeletal animation meshes and the rules that make them react: clicks on
// named regions, regions being hidden, click-spawned images, counters and
// the time of day. The runtime evaluates those rules every few frames and
// plays full-screen video overlays or sequences of special effects in
// response.
//
// # Quick start
//
// The skeletal animation engine is a collaborator: implement [Skeleton] and
// [SkeletonLoader] for your format, then hand everything to [Run]:
//
//	cfg, err := livewall.LoadConfig("wallpaper.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	sched := livewall.NewScheduler()
//	rt, err := livewall.NewRuntime(ctx, livewall.Options{
//		Config:    cfg,
//		Loader:    myLoader,
//		Media:     livewall.NewBeepBackend(sched, 44100),
//		Scheduler: sched,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	log.Fatal(livewall.Run(rt, livewall.RunConfig{Title: "Wallpaper"}))
//
// [Runtime] implements [ebiten.Game], so it can also be driven by your own
// loop. Tests drive it with [Runtime.Step] and [Runtime.Click] instead.
//
// # Components
//
// [RegionController] masks skeleton slots independently of the animation
// timeline. [PointEffectTracker] spawns, pools and counts click images.
// [AnimationCoordinator] picks weighted animation variants and keeps voice
// clips in sync with the variant that is actually on screen. [Sequencer]
// plays library special effects one at a time. [OverlayController] owns the
// single full-screen video. [TriggerEngine] ties them together.
//
// Everything runs on one goroutine through a [Scheduler]; background work
// (file reads, skeleton loads, audio end events) posts its result back with
// [Scheduler.Post].
//
// # Audio
//
// [BeepBackend] decodes mp3, wav, ogg and flac through [beep]. Video
// decoding is left to the host; combine a video decoder with the beep audio
// backend through [MediaBackendFuncs].
//
// [Ebitengine]: https://ebitengine.org
// [beep]: https://github.com/gopxl/beep
package livewall
