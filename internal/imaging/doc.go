// Package imaging provides the pixel-level operations behind reference image
// cropping: decoded float buffers, a decode cache, percentage crop windows and
// an L1 chroma key.
//
// # Buffer Layout
//
// Pixels stores RGBA as float32 in [0,1], four components per pixel, in the
// host's scanline order: row 0 is the bottom row of the picture. A crop
// window's Y coordinate therefore grows upwards. FromImage and ToImage flip
// rows when converting to or from Go's top-down image.Image.
//
// # Crop Windows
//
// A window is given as percentages of the source size and position:
//
//	width  = max(1, round(srcW * WidthPct / 100))
//	startX = round((srcW - width) * PosXPct / 100)
//
// PosXPct is the fraction of the available slack consumed before the window
// starts, so 0 is flush with the origin and 100 is flush with the far edge.
// The same rules apply vertically. Windows computed this way always lie inside
// the source.
//
// # Chroma Key
//
// ApplyChromaKey sets alpha to 0 on every pixel whose L1 RGB distance to the
// target is strictly below the threshold.
//
// # Caching
//
// PixelCache decodes each source once and reuses the buffer for every later
// crop. Cached buffers are read-only; Crop always returns a copy. The cache is
// not synchronized and is meant to be driven from a single update loop.
package imaging
