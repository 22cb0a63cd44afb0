package livewall

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

const (
	hudWidth    = 260
	hudHeight   = 112
	hudInterval = 500 * time.Millisecond
)

// debugHUD is the on-screen panel of the debug mode. Its image is redrawn
// every half second with ebitenutil.DebugPrint.
type debugHUD struct {
	img        *ebiten.Image
	lastUpdate time.Duration
	drawn      bool
}

// drawDebug refreshes the panel if due and draws it in the top-left corner.
func (r *Runtime) drawDebug(screen *ebiten.Image) {
	if r.hud == nil {
		r.hud = &debugHUD{img: ebiten.NewImage(hudWidth, hudHeight)}
	}
	h := r.hud
	if now := r.sched.Now(); !h.drawn || now-h.lastUpdate >= hudInterval {
		h.lastUpdate = now
		h.drawn = true
		h.img.Clear()
		// Semi-transparent background for readability
		h.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(h.img, fmt.Sprintf("FPS: %.1f TPS: %.1f\n%s",
			ebiten.ActualFPS(), ebiten.ActualTPS(), r.debugSummary()))
	}
	screen.DrawImage(h.img, nil)
}
