// Package geometry provides basic geometric types used throughout the pipeline.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect represents an axis-aligned rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
//
// A raster geotransform is the special case mapping (column, row) pixel
// coordinates to world coordinates: a = pixel width, d = pixel height
// (negative for north-up rasters), tx/ty = top-left corner origin.
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Geotransform returns the transform mapping (col, row) to world coordinates
// for a north-up raster with the given top-left origin and pixel size.
// dy is typically negative (rows increase southward).
func Geotransform(originX, originY, dx, dy float64) AffineTransform {
	return AffineTransform{A: dx, D: dy, TX: originX, TY: originY}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// PixelSize returns the absolute cell dimensions of a geotransform.
func (t AffineTransform) PixelSize() (w, h float64) {
	return math.Abs(t.A), math.Abs(t.D)
}

// CellArea returns the ground area covered by one pixel, in squared
// world units.
func (t AffineTransform) CellArea() float64 {
	return math.Abs(t.A*t.D - t.B*t.C)
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
