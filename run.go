package livewall

import "github.com/hajimehoshi/ebiten/v2"

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title string
	// Width and Height default to the configured canvas size.
	Width, Height int
	// Decorated keeps the window frame. Wallpapers usually run without it.
	Decorated bool
	// Floating keeps the window above others, for previewing.
	Floating bool
	// ShowDebug starts with the debug HUD on.
	ShowDebug bool
}

// Run opens a window and blocks until it is closed. The runtime is closed
// when Run returns.
func Run(r *Runtime, cfg RunConfig) error {
	defer r.Close()
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = r.cfg.Canvas.Width, r.cfg.Canvas.Height
	}
	if w > 0 && h > 0 {
		ebiten.SetWindowSize(w, h)
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	ebiten.SetWindowDecorated(cfg.Decorated)
	ebiten.SetWindowFloating(cfg.Floating)
	ebiten.SetTPS(r.prefs.TPS)
	if cfg.ShowDebug {
		r.SetDebugMode(true)
	}
	return ebiten.RunGame(r)
}
