package imaging

import (
	"fmt"
	"math"
)

// Percentage bounds for crop parameters.
const (
	MinSizePct = 1.0
	MaxSizePct = 100.0
	MinPosPct  = 0.0
	MaxPosPct  = 100.0
)

// CropParams describes a crop window as percentages of the source image.
//
// WidthPct and HeightPct give the window size (1-100). PosXPct and PosYPct
// give how much of the remaining slack on each axis is consumed before the
// window starts: 0 puts the window at the buffer origin, 100 puts it flush
// against the far edge. They are not center offsets.
type CropParams struct {
	WidthPct  float64 `json:"crop_width_pct"`
	HeightPct float64 `json:"crop_height_pct"`
	PosXPct   float64 `json:"pos_x_pct"`
	PosYPct   float64 `json:"pos_y_pct"`
}

// DefaultCropParams returns the full-image, centered window.
func DefaultCropParams() CropParams {
	return CropParams{WidthPct: 100, HeightPct: 100, PosXPct: 50, PosYPct: 50}
}

// Clamp returns a copy with every field inside its allowed range.
// NaN values fall back to the default for that field.
func (p CropParams) Clamp() CropParams {
	d := DefaultCropParams()
	return CropParams{
		WidthPct:  clampPct(p.WidthPct, MinSizePct, MaxSizePct, d.WidthPct),
		HeightPct: clampPct(p.HeightPct, MinSizePct, MaxSizePct, d.HeightPct),
		PosXPct:   clampPct(p.PosXPct, MinPosPct, MaxPosPct, d.PosXPct),
		PosYPct:   clampPct(p.PosYPct, MinPosPct, MaxPosPct, d.PosYPct),
	}
}

func clampPct(v, lo, hi, fallback float64) float64 {
	switch {
	case math.IsNaN(v):
		return fallback
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Rect is an integer sub-rectangle of a pixel buffer in host layout.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropRect computes the window selected by params on a srcW x srcH buffer.
//
// Parameters are clamped first. The window is never smaller than one pixel
// on either axis and always lies inside the source:
//
//	w = max(1, round(srcW * WidthPct/100))
//	x = round((srcW - w) * PosXPct/100)
//
// and the same for the vertical axis.
func CropRect(srcW, srcH int, params CropParams) Rect {
	params = params.Clamp()

	w := windowSize(srcW, params.WidthPct)
	h := windowSize(srcH, params.HeightPct)

	return Rect{
		X:      int(math.Round(float64(srcW-w) * params.PosXPct / 100)),
		Y:      int(math.Round(float64(srcH-h) * params.PosYPct / 100)),
		Width:  w,
		Height: h,
	}
}

func windowSize(src int, pct float64) int {
	n := int(math.Round(float64(src) * pct / 100))
	if n < 1 {
		n = 1
	}
	if n > src {
		n = src
	}
	return n
}

// Crop copies r out of src. The result never aliases src, so the caller may
// modify it freely.
func Crop(src *Pixels, r Rect) (*Pixels, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid crop region: %dx%d", r.Width, r.Height)
	}
	if r.X < 0 || r.Y < 0 || r.X+r.Width > src.Width || r.Y+r.Height > src.Height {
		return nil, fmt.Errorf("crop region (%d,%d)+%dx%d outside image bounds %dx%d",
			r.X, r.Y, r.Width, r.Height, src.Width, src.Height)
	}

	out := NewPixels(r.Width, r.Height)
	rowLen := r.Width * Channels
	for y := 0; y < r.Height; y++ {
		from := src.offset(r.X, r.Y+y)
		copy(out.Data[y*rowLen:(y+1)*rowLen], src.Data[from:from+rowLen])
	}
	return out, nil
}

// TransformResult is the output of Transform.
type TransformResult struct {
	Pixels *Pixels
	Rect   Rect
	Masked int
}

// Transform crops src according to params and, when key is non-nil, applies
// the chroma key to the cropped copy. src is never modified.
func Transform(src *Pixels, params CropParams, key *ChromaKey) (*TransformResult, error) {
	if src == nil {
		return nil, fmt.Errorf("no source pixels")
	}
	r := CropRect(src.Width, src.Height, params)
	out, err := Crop(src, r)
	if err != nil {
		return nil, err
	}

	masked := 0
	if key != nil {
		masked = ApplyChromaKey(out, *key)
	}
	return &TransformResult{Pixels: out, Rect: r, Masked: masked}, nil
}
