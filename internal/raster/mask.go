package raster

import "minewatch/pkg/geometry"

// Mask is a boolean grid sharing the georeference of the rasters it was
// derived from. True cells are detections.
type Mask struct {
	Width, Height int
	Bits          []bool
	Transform     geometry.AffineTransform
	SRS           string
}

// NewMask allocates an all-false mask with the given georeference.
func NewMask(width, height int, transform geometry.AffineTransform, srs string) *Mask {
	return &Mask{
		Width:     width,
		Height:    height,
		Bits:      make([]bool, width*height),
		Transform: transform,
		SRS:       srs,
	}
}

// MaskLike allocates an all-false mask co-registered with the given grid.
func MaskLike(g *Grid) *Mask {
	return NewMask(g.Width, g.Height, g.Transform, g.SRS)
}

// Index returns the flat arena index for (col, row).
func (m *Mask) Index(col, row int) int {
	return row*m.Width + col
}

// At returns the value at (col, row).
func (m *Mask) At(col, row int) bool {
	return m.Bits[row*m.Width+col]
}

// Set writes the value at (col, row).
func (m *Mask) Set(col, row int, v bool) {
	m.Bits[row*m.Width+col] = v
}

// InBounds reports whether (col, row) addresses a cell of the mask.
func (m *Mask) InBounds(col, row int) bool {
	return col >= 0 && col < m.Width && row >= 0 && row < m.Height
}

// Count returns the number of true cells.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := *m
	c.Bits = make([]bool, len(m.Bits))
	copy(c.Bits, m.Bits)
	return &c
}
