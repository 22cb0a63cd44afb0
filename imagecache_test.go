package livewall

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestImageCache(t *testing.T) {
	loads := map[string]int{}
	c := NewImageCache("assets", func(path string) (*ebiten.Image, error) {
		loads[path]++
		if path == "assets/missing.png" {
			return nil, errors.New("not found")
		}
		return ebiten.NewImage(4, 4), nil
	})

	a := c.Get("a.png")
	if a == nil || c.Get("a.png") != a {
		t.Fatal("Get did not cache a.png")
	}
	if c.Get("missing.png") != nil || c.Get("missing.png") != nil {
		t.Error("Get(missing.png) returned an image")
	}
	if loads["assets/a.png"] != 1 || loads["assets/missing.png"] != 1 {
		t.Errorf("loads = %v, want one per name", loads)
	}
	if c.Get("") != nil {
		t.Error("Get(\"\") returned an image")
	}

	c.Preload("b.png", "a.png")
	if !c.Cached("b.png") || c.Cached("missing.png") {
		t.Error("Cached does not match the loads")
	}

	c.Dispose()
	if c.Cached("a.png") {
		t.Error("a.png cached after Dispose")
	}
	c.Get("missing.png")
	if loads["assets/missing.png"] != 2 {
		t.Error("failed name not retried after Dispose")
	}
}
