// Package lease loads and validates legal mining concession boundaries.
// Boundaries arrive as GeoJSON features from an external source; the
// pipeline only needs geometry plus minimal metadata.
package lease

import (
	"fmt"
	"time"

	"minewatch/pkg/geometry"
)

// Boundary is one legal lease polygon with its metadata.
type Boundary struct {
	ID           string
	Name         string
	Mineral      string
	State        string
	District     string
	ValidFrom    time.Time
	ValidTo      time.Time
	AreaHectares float64       // permitted area from the record, or computed
	Ring         geometry.Ring // closed, simple, in the working CRS
}

// ValidOn reports whether the lease covers the given date.
func (b Boundary) ValidOn(t time.Time) bool {
	return !t.Before(b.ValidFrom) && !t.After(b.ValidTo)
}

// GeometryError reports a lease feature whose geometry violates the ring
// invariants (closed, simple, non-zero area). Offending features are
// rejected at ingestion, never silently repaired.
type GeometryError struct {
	FeatureID string
	Reason    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("lease %s: invalid geometry: %s", e.FeatureID, e.Reason)
}

// validate enforces the ring invariants for one boundary.
func validate(b Boundary) error {
	if !b.Ring.Closed() {
		return &GeometryError{FeatureID: b.ID, Reason: "ring is not closed"}
	}
	if !b.Ring.IsSimple() {
		return &GeometryError{FeatureID: b.ID, Reason: "ring is self-intersecting"}
	}
	if b.Ring.Area() == 0 {
		return &GeometryError{FeatureID: b.ID, Reason: "ring has zero area"}
	}
	return nil
}
