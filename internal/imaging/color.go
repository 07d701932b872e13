package imaging

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ChromaKey makes pixels close to a target colour transparent.
//
// Closeness is the L1 distance over the RGB channels:
//
//	|R - Rt| + |G - Gt| + |B - Bt|
//
// A pixel is keyed out when its distance is strictly below Threshold, so a
// pixel exactly at the threshold stays opaque and a zero threshold keys out
// nothing. Channel values are in [0,1], so useful thresholds lie in [0,3].
type ChromaKey struct {
	Target    colorful.Color `json:"target"`
	Threshold float64        `json:"threshold"`
}

// DefaultChromaKey keys out pure green with a moderate tolerance.
func DefaultChromaKey() ChromaKey {
	return ChromaKey{Target: colorful.Color{R: 0, G: 1, B: 0}, Threshold: 0.1}
}

// ParseChromaKey builds a key from a "#RRGGBB" colour and a threshold.
func ParseChromaKey(hex string, threshold float64) (ChromaKey, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return ChromaKey{}, fmt.Errorf("invalid chroma key colour %q: %w", hex, err)
	}
	return ChromaKey{Target: c, Threshold: threshold}.Clamp(), nil
}

// Clamp returns a copy with the target inside the RGB cube and a
// non-negative threshold.
func (k ChromaKey) Clamp() ChromaKey {
	t := k.Threshold
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	target := k.Target
	if math.IsNaN(target.R) || math.IsNaN(target.G) || math.IsNaN(target.B) {
		target = colorful.Color{}
	}
	return ChromaKey{Target: target.Clamped(), Threshold: t}
}

// Distance returns the L1 RGB distance between (r, g, b) and the target.
func (k ChromaKey) Distance(r, g, b float64) float64 {
	return math.Abs(r-k.Target.R) + math.Abs(g-k.Target.G) + math.Abs(b-k.Target.B)
}

// Matches reports whether a stored pixel (r, g, b) is keyed out. The distance
// and the comparison are done at the pixel buffer's float32 precision.
func (k ChromaKey) Matches(r, g, b float32) bool {
	d := abs32(r-float32(k.Target.R)) + abs32(g-float32(k.Target.G)) + abs32(b-float32(k.Target.B))
	return d < float32(k.Threshold)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// ApplyChromaKey zeroes the alpha of every matching pixel of p in place and
// returns how many pixels were keyed out. RGB values are left untouched.
func ApplyChromaKey(p *Pixels, key ChromaKey) int {
	if key.Threshold <= 0 {
		return 0
	}
	masked := 0
	for i := 0; i+3 < len(p.Data); i += Channels {
		if key.Matches(p.Data[i], p.Data[i+1], p.Data[i+2]) {
			p.Data[i+3] = 0
			masked++
		}
	}
	return masked
}
