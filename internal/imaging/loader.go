package imaging

import (
	"bytes"
	"fmt"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"log/slog"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Source is an image the cache can decode.
//
// ID must be stable for the lifetime of the image and never reused by another
// image. Generation must change whenever the image's pixels change, so the
// cache can tell a stale entry from a current one.
type Source interface {
	ID() uuid.UUID
	Generation() uint64
	Name() string
	Decode() (*Pixels, error)
}

type cacheEntry struct {
	generation uint64
	pixels     *Pixels
}

// PixelCache keeps decoded pixel buffers keyed by source identity.
//
// Decoding a large image is the expensive step (hundreds of milliseconds for
// big reference photos), so each source is decoded once and the buffer is
// reused for every later crop. The cache is unbounded: entries leave only
// through Evict or Clear.
//
// PixelCache is not safe for concurrent use. Callers run on the host's single
// update thread.
//
// Buffers returned by Get are shared with the cache and must be treated as
// read-only. Crop always copies before anything is written.
type PixelCache struct {
	entries map[uuid.UUID]cacheEntry
	decodes int
	logger  *slog.Logger
}

// NewPixelCache creates an empty cache. A nil logger discards log output.
func NewPixelCache(logger *slog.Logger) *PixelCache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PixelCache{
		entries: make(map[uuid.UUID]cacheEntry),
		logger:  logger,
	}
}

// Get returns the decoded buffer for src, decoding it on first access.
//
// A nil src is the idle state and returns (nil, nil). If src's generation
// moved since the entry was stored, the entry is replaced with a fresh decode.
// Nothing is stored when decoding fails.
func (c *PixelCache) Get(src Source) (*Pixels, error) {
	if src == nil {
		return nil, nil
	}

	id := src.ID()
	gen := src.Generation()
	if e, ok := c.entries[id]; ok && e.generation == gen {
		return e.pixels, nil
	}

	start := time.Now()
	c.decodes++
	px, err := src.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", src.Name(), err)
	}

	c.entries[id] = cacheEntry{generation: gen, pixels: px}
	c.logger.Info("pixel cache created",
		"image", src.Name(),
		"width", px.Width,
		"height", px.Height,
		"elapsed", time.Since(start))
	return px, nil
}

// Contains reports whether an entry for id is cached.
func (c *PixelCache) Contains(id uuid.UUID) bool {
	_, ok := c.entries[id]
	return ok
}

// Evict removes the entry for id, if any.
func (c *PixelCache) Evict(id uuid.UUID) {
	delete(c.entries, id)
}

// Clear drops every entry.
func (c *PixelCache) Clear() {
	c.entries = make(map[uuid.UUID]cacheEntry)
}

// Len returns the number of cached buffers.
func (c *PixelCache) Len() int {
	return len(c.entries)
}

// Decodes returns how many times the cache has called Source.Decode.
func (c *PixelCache) Decodes() int {
	return c.decodes
}

// LoadPixels decodes an image file into host layout.
//
// PNG, JPEG, GIF, BMP, TIFF and WebP are supported.
func LoadPixels(path string) (*Pixels, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return FromImage(img), nil
}

// EncodePNG encodes p as a PNG in picture orientation.
func EncodePNG(p *Pixels) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, ToImage(p), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
