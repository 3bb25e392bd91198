package geometry

import "math"

// Ring is an ordered, closed sequence of points forming a polygon boundary.
// A valid ring repeats its first point as its last point.
type Ring []Point2D

// Closed returns true if the ring's first point equals its last point.
func (r Ring) Closed() bool {
	if len(r) < 4 {
		return false
	}
	return r[0] == r[len(r)-1]
}

// Close returns the ring with the first point appended, if not already closed.
func (r Ring) Close() Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	return append(r, r[0])
}

// Area returns the signed shoelace area of the ring. The sign depends on
// winding order; callers needing physical area should take the absolute value.
func (r Ring) Area() float64 {
	if len(r) < 4 {
		return 0
	}
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i].X*r[i+1].Y - r[i+1].X*r[i].Y
	}
	return sum / 2
}

// Perimeter returns the total boundary length of the ring.
func (r Ring) Perimeter() float64 {
	var total float64
	for i := 1; i < len(r); i++ {
		total += r[i].Distance(r[i-1])
	}
	return total
}

// Bounds returns the axis-aligned bounding box of the ring.
func (r Ring) Bounds() Rect {
	return BoundingBox(r)
}

// Contains tests if a point is inside the ring using ray casting.
// Points exactly on the boundary are not guaranteed either way.
func (r Ring) Contains(p Point2D) bool {
	if len(r) < 4 {
		return false
	}

	inside := false
	n := len(r) - 1 // last point repeats the first

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := r[i], r[j]

		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// IsSimple returns true if no two non-adjacent edges of the ring intersect.
// Adjacent edges sharing a vertex are allowed; a ring that touches itself
// anywhere else is self-intersecting.
func (r Ring) IsSimple() bool {
	if len(r) < 4 {
		return false
	}

	n := len(r) - 1 // edge count for a closed ring
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Skip adjacent edges (including the wrap-around pair).
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}

// segmentsIntersect reports whether segments a1-a2 and b1-b2 intersect,
// including touching at a shared point.
func segmentsIntersect(a1, a2, b1, b2 Point2D) bool {
	d1 := crossProduct(b1, b2, a1)
	d2 := crossProduct(b1, b2, a2)
	d3 := crossProduct(a1, a2, b1)
	d4 := crossProduct(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear touching cases.
	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	return false
}

// onSegment reports whether point p lies on segment a-b, assuming p is
// collinear with a and b.
func onSegment(a, b, p Point2D) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
