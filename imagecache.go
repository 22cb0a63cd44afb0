package livewall

import (
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"golang.org/x/exp/maps"
)

// ImageSource decodes an image file. The default reads through ebitenutil.
type ImageSource func(path string) (*ebiten.Image, error)

func fileImageSource(path string) (*ebiten.Image, error) {
	img, _, err := ebitenutil.NewImageFromFile(path)
	return img, err
}

// ImageCache holds decoded images keyed by file name. Failed loads are
// remembered so a broken reference is reported once and not retried every
// click.
type ImageCache struct {
	dir    string
	source ImageSource
	images map[string]*ebiten.Image
	failed map[string]error
}

// NewImageCache creates a cache resolving names relative to dir. A nil
// source uses ebitenutil.NewImageFromFile.
func NewImageCache(dir string, source ImageSource) *ImageCache {
	if source == nil {
		source = fileImageSource
	}
	return &ImageCache{
		dir:    dir,
		source: source,
		images: make(map[string]*ebiten.Image),
		failed: make(map[string]error),
	}
}

// Preload loads every name that is not cached yet.
func (c *ImageCache) Preload(names ...string) {
	for _, n := range names {
		c.Get(n)
	}
}

// Get returns the cached image, loading it on first use. A failed load
// returns nil and is logged once.
func (c *ImageCache) Get(name string) *ebiten.Image {
	if name == "" {
		return nil
	}
	if img, ok := c.images[name]; ok {
		return img
	}
	if _, ok := c.failed[name]; ok {
		return nil
	}
	img, err := c.source(filepath.Join(c.dir, name))
	if err != nil || img == nil {
		c.failed[name] = err
		known := maps.Keys(c.images)
		sort.Strings(known)
		if sug := suggest(strings.TrimSuffix(name, filepath.Ext(name)), known); len(sug) > 0 {
			log.Printf("livewall: image %q failed to load: %v (did you mean %s?)", name, err, strings.Join(sug, ", "))
		} else {
			log.Printf("livewall: image %q failed to load: %v", name, err)
		}
		return nil
	}
	c.images[name] = img
	return img
}

// Cached reports whether name has been decoded successfully.
func (c *ImageCache) Cached(name string) bool {
	_, ok := c.images[name]
	return ok
}

// Dispose releases every cached image.
func (c *ImageCache) Dispose() {
	for _, img := range c.images {
		img.Deallocate()
	}
	c.images = make(map[string]*ebiten.Image)
	c.failed = make(map[string]error)
}
