package imaging

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSLColor is a colour in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorSample is a sampled colour in the forms a key colour picker needs.
type ColorSample struct {
	Hex   string         `json:"hex"`
	HSL   HSLColor       `json:"hsl"`
	Color colorful.Color `json:"-"`
	Alpha float32        `json:"alpha"`
	// Pixels is how many pixels were averaged.
	Pixels int `json:"pixels"`
}

func newColorSample(c colorful.Color, alpha float32, n int) *ColorSample {
	c = c.Clamped()
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}
	return &ColorSample{
		Hex:    c.Hex(),
		HSL:    HSLColor{H: int(math.Round(h)) % 360, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		Color:  c,
		Alpha:  alpha,
		Pixels: n,
	}
}

// SampleColor returns the colour at (x, y) in host layout.
func SampleColor(p *Pixels, x, y int) (*ColorSample, error) {
	if p == nil {
		return nil, fmt.Errorf("no pixels to sample")
	}
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside %dx%d image", x, y, p.Width, p.Height)
	}
	px := p.At(x, y)
	return newColorSample(colorful.Color{R: float64(px[0]), G: float64(px[1]), B: float64(px[2])}, px[3], 1), nil
}

// SampleAt samples the pixel at a percentage position. 0 is the left or
// bottom edge and 100 the right or top edge.
func SampleAt(p *Pixels, xPct, yPct float64) (*ColorSample, error) {
	if p == nil {
		return nil, fmt.Errorf("no pixels to sample")
	}
	xPct = clampPct(xPct, MinPosPct, MaxPosPct, 50)
	yPct = clampPct(yPct, MinPosPct, MaxPosPct, 50)
	x := int(math.Round(float64(p.Width-1) * xPct / 100))
	y := int(math.Round(float64(p.Height-1) * yPct / 100))
	return SampleColor(p, x, y)
}

// BorderColor averages the outermost ring of pixels. Backdrops shot for
// keying usually fill the frame edges, so this is the default key colour
// suggestion.
func BorderColor(p *Pixels) (*ColorSample, error) {
	if p == nil || p.Width == 0 || p.Height == 0 {
		return nil, fmt.Errorf("no pixels to sample")
	}

	var r, g, b, a float64
	n := 0
	add := func(x, y int) {
		px := p.At(x, y)
		r += float64(px[0])
		g += float64(px[1])
		b += float64(px[2])
		a += float64(px[3])
		n++
	}
	for x := 0; x < p.Width; x++ {
		add(x, 0)
		if p.Height > 1 {
			add(x, p.Height-1)
		}
	}
	for y := 1; y < p.Height-1; y++ {
		add(0, y)
		if p.Width > 1 {
			add(p.Width-1, y)
		}
	}

	f := float64(n)
	return newColorSample(colorful.Color{R: r / f, G: g / f, B: b / f}, float32(a/f), n), nil
}
