package livewall

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"after-click", "after-click"},
		{"frame.01", "frame.01"},
		{"has spaces", "has_spaces"},
		{"path/to/thing", "path_to_thing"},
		{"special!@#", "special___"},
		{"", "unlabeled"},
		{"   ", "unlabeled"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStraightAlpha(t *testing.T) {
	img := straightAlpha([]byte{
		50, 100, 128, 128,
		10, 20, 30, 255,
		0, 0, 0, 0,
	}, 3, 1)
	want := []byte{
		99, 199, 255, 128,
		10, 20, 30, 255,
		0, 0, 0, 0,
	}
	for i, b := range want {
		if img.Pix[i] != b {
			t.Fatalf("Pix = %v, want %v", img.Pix, want)
		}
	}
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := writePNG(path, straightAlpha(make([]byte, 16), 2, 2)); err != nil {
		t.Fatalf("writePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("size = %dx%d, want 2x2", b.Dx(), b.Dy())
	}
}

func TestScenarioScreenshotQueues(t *testing.T) {
	f := newRuntimeFixture(t, runtimeConfig)
	runScenario(t, f, `{"steps": [{"action": "screenshot", "label": "start"}]}`)
	if len(f.rt.shots) != 1 || f.rt.shots[0] != "start" {
		t.Errorf("queued = %v, want [start]", f.rt.shots)
	}
}
