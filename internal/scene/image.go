package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ironsheep/refcrop-mcp/internal/imaging"
)

var _ imaging.Source = (*Image)(nil)

// Image is a named image resource in the host data store.
//
// Every image gets a random UUID at creation; that ID is its identity for
// caching and never changes. The generation counter moves on every pixel
// write or resize.
//
// File-backed images hold no pixels until something writes to them; Decode
// reads the file each time it is called.
type Image struct {
	id     uuid.UUID
	name   string
	gen    uint64
	width  int
	height int
	path   string
	pixels *imaging.Pixels
}

func newImage(name string, width, height int) *Image {
	return &Image{
		id:     uuid.New(),
		name:   name,
		width:  width,
		height: height,
		pixels: imaging.NewPixels(width, height),
	}
}

// ID returns the image's stable identity.
func (img *Image) ID() uuid.UUID { return img.id }

// Name returns the image's current name in the store.
func (img *Image) Name() string { return img.name }

// Generation returns a counter that changes whenever the pixels change.
func (img *Image) Generation() uint64 { return img.gen }

// Size returns the width and height in pixels.
func (img *Image) Size() (width, height int) { return img.width, img.height }

// Path returns the file the image was loaded from, or "" for generated images.
func (img *Image) Path() string { return img.path }

// Decode returns a fresh copy of the image's RGBA float buffer.
func (img *Image) Decode() (*imaging.Pixels, error) {
	if img.pixels != nil {
		return img.pixels.Clone(), nil
	}
	px, err := imaging.LoadPixels(img.path)
	if err != nil {
		return nil, err
	}
	if px.Width != img.width || px.Height != img.height {
		return nil, fmt.Errorf("image %q changed on disk: %dx%d, expected %dx%d",
			img.name, px.Width, px.Height, img.width, img.height)
	}
	return px, nil
}

// SetPixels replaces the image content. px must match the image size and is
// copied.
func (img *Image) SetPixels(px *imaging.Pixels) error {
	if px.Width != img.width || px.Height != img.height {
		return fmt.Errorf("pixel buffer %dx%d does not match image %q (%dx%d)",
			px.Width, px.Height, img.name, img.width, img.height)
	}
	img.pixels = px.Clone()
	img.gen++
	return nil
}

// Scale resamples the image to width x height in place.
func (img *Image) Scale(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if width == img.width && height == img.height {
		return nil
	}
	px, err := img.Decode()
	if err != nil {
		return err
	}
	img.pixels = imaging.Resample(px, width, height)
	img.width, img.height = width, height
	img.gen++
	return nil
}
