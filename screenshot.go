package livewall

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

const defaultScreenshotDir = "screenshots"

// Screenshot queues a labeled capture of the next drawn frame. The PNG is
// written to the screenshot directory as <label>_<frame>.png.
func (r *Runtime) Screenshot(label string) {
	r.shots = append(r.shots, label)
}

// SetScreenshotDir changes where captures are written.
func (r *Runtime) SetScreenshotDir(dir string) { r.shotDir = dir }

// flushScreenshots writes every queued capture of screen. Called at the end
// of Draw.
func (r *Runtime) flushScreenshots(screen *ebiten.Image) {
	if len(r.shots) == 0 {
		return
	}
	defer func() { r.shots = r.shots[:0] }()
	dir := r.shotDir
	if dir == "" {
		dir = defaultScreenshotDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "[livewall] screenshot: %v\n", err)
		return
	}
	b := screen.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	screen.ReadPixels(pixels)
	img := straightAlpha(pixels, b.Dx(), b.Dy())
	for _, label := range r.shots {
		path := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", sanitizeLabel(label), r.sched.Frame()))
		if err := writePNG(path, img); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[livewall] screenshot: %v\n", err)
		}
	}
}

// straightAlpha converts premultiplied RGBA pixels to an NRGBA image.
func straightAlpha(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, pixels)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := int(img.Pix[i+3])
		if a == 0 || a == 255 {
			continue
		}
		for c := 0; c < 3; c++ {
			img.Pix[i+c] = uint8(min(int(img.Pix[i+c])*255/a, 255))
		}
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel keeps letters, digits, '-' and '.'; everything else becomes
// '_'. An empty label is "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, label)
}
