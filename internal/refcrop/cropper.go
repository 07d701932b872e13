package refcrop

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ironsheep/refcrop-mcp/internal/imaging"
	"github.com/ironsheep/refcrop-mcp/internal/scene"
)

// DefaultPrefix marks every image produced by a Cropper.
const DefaultPrefix = "CR_"

// Cropper crops and chroma-keys the images shown by image empties.
//
// It owns the pixel cache for its lifetime and writes its results into the
// scene's image store under names starting with the output prefix. Images
// carrying that prefix are never adopted as new sources, which keeps the
// crop from feeding back into itself when its output is bound to the object.
//
// A Cropper is driven from the host's update loop and is not safe for
// concurrent use.
type Cropper struct {
	cache      *imaging.PixelCache
	images     *scene.ImageStore
	prefix     string
	maxNameLen int
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Cropper.
type Option func(*Cropper)

// WithPrefix sets the reserved output prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cropper) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithMaxNameLength sets the output name limit in bytes.
func WithMaxNameLength(n int) Option {
	return func(c *Cropper) {
		if n > 0 {
			c.maxNameLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cropper) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records crop activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Cropper) {
		c.metrics = m
	}
}

// New creates a Cropper that reads sources through cache and writes outputs
// to images.
func New(cache *imaging.PixelCache, images *scene.ImageStore, opts ...Option) *Cropper {
	c := &Cropper{
		cache:      cache,
		images:     images,
		prefix:     DefaultPrefix,
		maxNameLen: images.MaxNameLength(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefix returns the reserved output prefix.
func (c *Cropper) Prefix() string { return c.prefix }

// Cache returns the pixel cache.
func (c *Cropper) Cache() *imaging.PixelCache { return c.cache }

// IsOutput reports whether img is one of the Cropper's own outputs.
func (c *Cropper) IsOutput(img *scene.Image) bool {
	return img != nil && strings.HasPrefix(img.Name(), c.prefix)
}

// OutputName derives the output image name for owner cropping source.
//
// The name is prefix + owner + "_" + source. If source already starts with
// exactly that prefix+owner+"_" segment, it is stripped once first, so
// re-cropping an output keeps the same name instead of stacking prefixes.
// The result is cut to the host name limit.
func (c *Cropper) OutputName(owner, source string) string {
	head := c.prefix + owner + "_"
	return scene.TruncateName(head+strings.TrimPrefix(source, head), c.maxNameLen)
}

// Result describes one crop run.
type Result struct {
	Image   *scene.Image
	Rect    imaging.Rect
	Masked  int
	Created bool
	Resized bool
}

// ApplyCrop recomputes the crop for obj and binds the output image to it.
//
// Without a remembered source there is nothing to do and ApplyCrop returns
// (nil, nil). The output image is looked up by its derived name and reused;
// it is rescaled only when the crop size changed. Running ApplyCrop twice
// with the same settings writes identical pixels to the same image.
func (c *Cropper) ApplyCrop(obj *scene.Object) (*Result, error) {
	if obj == nil || obj.Crop == nil || obj.Crop.Source == nil {
		return nil, nil
	}
	settings := obj.Crop
	src := settings.Source

	px, err := c.SourcePixels(obj)
	if err != nil {
		return nil, err
	}

	tr, err := imaging.Transform(px, settings.Params, settings.ChromaKey())
	if err != nil {
		return nil, fmt.Errorf("failed to crop %q: %w", src.Name(), err)
	}

	res := &Result{Rect: tr.Rect, Masked: tr.Masked}
	name := c.OutputName(obj.Name, src.Name())
	out, ok := c.images.Get(name)
	if ok {
		if w, h := out.Size(); w != tr.Rect.Width || h != tr.Rect.Height {
			if err := out.Scale(tr.Rect.Width, tr.Rect.Height); err != nil {
				return nil, fmt.Errorf("failed to resize %q: %w", name, err)
			}
			res.Resized = true
		}
	} else {
		out, err = c.images.New(name, tr.Rect.Width, tr.Rect.Height)
		if err != nil {
			return nil, fmt.Errorf("failed to create %q: %w", name, err)
		}
		res.Created = true
	}

	if err := out.SetPixels(tr.Pixels); err != nil {
		return nil, err
	}
	obj.Data = out
	res.Image = out
	c.metrics.cropApplied(res)

	c.logger.Debug("crop applied",
		"object", obj.Name,
		"source", src.Name(),
		"output", out.Name(),
		"x", tr.Rect.X,
		"y", tr.Rect.Y,
		"width", tr.Rect.Width,
		"height", tr.Rect.Height,
		"masked", tr.Masked)
	return res, nil
}

// SourcePixels returns the cached pixels of obj's remembered source, decoding
// them on first use. It returns (nil, nil) when obj has no source.
func (c *Cropper) SourcePixels(obj *scene.Object) (*imaging.Pixels, error) {
	if obj == nil || obj.Crop == nil || obj.Crop.Source == nil {
		return nil, nil
	}
	before := c.cache.Decodes()
	px, err := c.cache.Get(obj.Crop.Source)
	c.metrics.cacheState(c.cache.Decodes()-before, c.cache.Len())
	return px, err
}

// OnPropertyChanged is called after any crop setting of obj was edited. It
// re-applies the crop when auto update is on and the remembered source is
// not itself an output.
func (c *Cropper) OnPropertyChanged(obj *scene.Object) (*Result, error) {
	if obj == nil || obj.Crop == nil {
		return nil, nil
	}
	s := obj.Crop
	if s.Source == nil || c.IsOutput(s.Source) || !s.AutoUpdate {
		return nil, nil
	}
	return c.ApplyCrop(obj)
}

// SetCropParams stores clamped params on obj and reacts like a property edit.
func (c *Cropper) SetCropParams(obj *scene.Object, params imaging.CropParams) (*Result, error) {
	if obj == nil || obj.Crop == nil {
		return nil, nil
	}
	obj.Crop.Params = params.Clamp()
	return c.OnPropertyChanged(obj)
}

// SetChromaKey enables or disables keying on obj, stores the clamped key and
// reacts like a property edit.
func (c *Cropper) SetChromaKey(obj *scene.Object, enabled bool, key imaging.ChromaKey) (*Result, error) {
	if obj == nil || obj.Crop == nil {
		return nil, nil
	}
	obj.Crop.ChromaEnabled = enabled
	obj.Crop.Chroma = key.Clamp()
	return c.OnPropertyChanged(obj)
}

// SetAutoUpdate toggles auto update on obj. Toggling alone does not crop.
func (c *Cropper) SetAutoUpdate(obj *scene.Object, on bool) {
	if obj == nil || obj.Crop == nil {
		return
	}
	obj.Crop.AutoUpdate = on
}

// OnGraphSettled is called after every scene update. If the active object is
// an image empty showing a non-output image other than its remembered source,
// that image becomes the new source and the crop settings are reset. It
// reports whether a new source was adopted.
//
// The previous source's cache entry is evicted unless another object still
// uses it as a source. Other entries are kept.
func (c *Cropper) OnGraphSettled(sc *scene.Scene) bool {
	obj := sc.Active()
	if !obj.IsImageEmpty() || obj.Data == nil || c.IsOutput(obj.Data) {
		return false
	}
	if obj.Crop == nil {
		obj.Crop = scene.NewCropSettings()
	}
	if obj.Crop.Source == obj.Data {
		return false
	}

	prev := obj.Crop.Source
	obj.Crop.Source = obj.Data
	obj.Crop.Reset()

	evicted := false
	if prev != nil && !sourceInUse(sc, prev) && c.cache.Contains(prev.ID()) {
		c.cache.Evict(prev.ID())
		evicted = true
	}
	c.metrics.sourceAdopted(evicted)
	c.metrics.cacheState(0, c.cache.Len())

	c.logger.Info("source updated", "object", obj.Name, "image", obj.Data.Name())
	return true
}

func sourceInUse(sc *scene.Scene, img *scene.Image) bool {
	for _, o := range sc.Objects() {
		if o.Crop != nil && o.Crop.Source == img {
			return true
		}
	}
	return false
}

// Close releases every cached buffer. It is the module teardown hook.
func (c *Cropper) Close() {
	n := c.cache.Len()
	c.cache.Clear()
	c.metrics.cacheState(0, 0)
	c.logger.Info("pixel cache cleared", "entries", n)
}
