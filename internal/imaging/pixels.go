package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Channels is the number of float components stored per pixel (R, G, B, A).
const Channels = 4

// Pixels is a decoded RGBA float buffer in host layout.
//
// Data holds Width*Height*4 values in the range [0,1], row by row. Row 0 is
// the first scanline of the host buffer, which for reference images is the
// bottom row of the picture. Use FromImage and ToImage to convert between
// this layout and Go's top-down image.Image.
type Pixels struct {
	Width  int
	Height int
	Data   []float32
}

// NewPixels allocates a zeroed (transparent black) buffer.
func NewPixels(width, height int) *Pixels {
	return &Pixels{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height*Channels),
	}
}

// NewPixelsFrom wraps an existing flat RGBA slice after checking its length.
func NewPixelsFrom(width, height int, data []float32) (*Pixels, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid pixel buffer size %dx%d", width, height)
	}
	if len(data) != width*height*Channels {
		return nil, fmt.Errorf("pixel buffer length %d does not match %dx%d RGBA", len(data), width, height)
	}
	return &Pixels{Width: width, Height: height, Data: data}, nil
}

// offset returns the index of the R component of pixel (x, y).
func (p *Pixels) offset(x, y int) int {
	return (y*p.Width + x) * Channels
}

// At returns the RGBA components at (x, y) in host layout.
func (p *Pixels) At(x, y int) [4]float32 {
	i := p.offset(x, y)
	return [4]float32{p.Data[i], p.Data[i+1], p.Data[i+2], p.Data[i+3]}
}

// Set writes the RGBA components at (x, y).
func (p *Pixels) Set(x, y int, c [4]float32) {
	i := p.offset(x, y)
	copy(p.Data[i:i+Channels], c[:])
}

// Row returns the backing slice for scanline y. Writes go through to p.
func (p *Pixels) Row(y int) []float32 {
	start := y * p.Width * Channels
	return p.Data[start : start+p.Width*Channels]
}

// Fill sets every pixel to c.
func (p *Pixels) Fill(c [4]float32) {
	for i := 0; i < len(p.Data); i += Channels {
		copy(p.Data[i:i+Channels], c[:])
	}
}

// Clone returns a deep copy.
func (p *Pixels) Clone() *Pixels {
	data := make([]float32, len(p.Data))
	copy(data, p.Data)
	return &Pixels{Width: p.Width, Height: p.Height, Data: data}
}

// Equal reports whether both buffers have the same size and identical values.
func (p *Pixels) Equal(o *Pixels) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Width != o.Width || p.Height != o.Height || len(p.Data) != len(o.Data) {
		return false
	}
	for i := range p.Data {
		if p.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// FromImage converts a Go image into host layout.
//
// The image is normalized to non-premultiplied 8-bit RGBA and flipped
// vertically, so the bottom row of the picture becomes row 0.
func FromImage(img image.Image) *Pixels {
	flipped := imaging.FlipV(img)
	w, h := flipped.Bounds().Dx(), flipped.Bounds().Dy()
	p := NewPixels(w, h)
	for i, v := range flipped.Pix[:w*h*Channels] {
		p.Data[i] = float32(v) / 255
	}
	return p
}

// ToImage converts a host buffer back to a top-down *image.NRGBA.
// Components are clamped to [0,1] and rounded to 8 bits.
func ToImage(p *Pixels) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			c := p.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return imaging.FlipV(img)
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Resample scales p to width x height using linear filtering. It is the
// equivalent of the host's in-place image scale and goes through 8-bit
// precision.
func Resample(p *Pixels, width, height int) *Pixels {
	if p.Width == width && p.Height == height {
		return p.Clone()
	}
	resized := imaging.Resize(ToImage(p), width, height, imaging.Linear)
	return FromImage(resized)
}
