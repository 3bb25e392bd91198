// Package reconcile overlays detected mining polygons against legal lease
// boundaries, classifying each detection as legal, illegal or mixed with a
// deterministic confidence score and severity grade.
package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"minewatch/internal/classify"
	"minewatch/internal/lease"
	"minewatch/internal/vectorize"
	"minewatch/internal/volume"
	"minewatch/pkg/geometry"
)

// Classification buckets a detection by its overlap with legal leases.
type Classification string

const (
	Legal   Classification = "legal"
	Illegal Classification = "illegal"
	Mixed   Classification = "mixed"
)

// Severity grades illegal and mixed detections for reporting. Legal
// detections carry no severity.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// LeaseOverlap records how much of a detection falls inside one lease.
type LeaseOverlap struct {
	LeaseID      string
	AreaHectares float64
}

// Area is the reconciliation result for one detected polygon. It is
// created once and never mutated afterwards; the volume estimate is the
// only field attached later, by the pipeline, before the batch is sealed.
type Area struct {
	Polygon         vectorize.Polygon
	Classification  Classification
	OverlapFraction float64 // [0, 1]
	Confidence      float64 // [0, 1]
	Severity        Severity
	InsideAreaHa    float64
	OutsideAreaHa   float64
	Leases          []LeaseOverlap

	Volume      *volume.Estimate // nil when absent or not applicable
	VolumeError string           // populated when estimation failed for this area
}

// Options configures classification breakpoints and scoring weights.
type Options struct {
	// LegalOverlap and IllegalOverlap are the overlap-fraction breakpoints:
	// at or above the first is legal, at or below the second is illegal,
	// anything between is mixed.
	LegalOverlap   float64
	IllegalOverlap float64

	// Confidence blends overlap decisiveness with spectral detection
	// strength. Weights should sum to 1 but are normalized regardless.
	OverlapWeight  float64
	StrengthWeight float64
	// StrengthScale is the index margin treated as full strength.
	StrengthScale float64

	// Conditions is the classifier's condition set, reused to measure how
	// far a polygon's mean index values sit beyond their thresholds.
	Conditions []classify.Condition

	// CriticalAreaHa escalates severity from warning to critical once the
	// unlicensed share of a detection reaches this many hectares.
	CriticalAreaHa float64
}

// DefaultOptions returns the default breakpoints and weights.
func DefaultOptions() Options {
	return Options{
		LegalOverlap:   0.9,
		IllegalOverlap: 0.1,
		OverlapWeight:  0.6,
		StrengthWeight: 0.4,
		StrengthScale:  0.2,
		Conditions:     classify.DefaultOptions().Conditions,
		CriticalAreaHa: 5.0,
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.IllegalOverlap < 0 || o.LegalOverlap > 1 || o.IllegalOverlap >= o.LegalOverlap {
		return fmt.Errorf("reconcile: overlap breakpoints [%g, %g] must satisfy 0 <= illegal < legal <= 1",
			o.IllegalOverlap, o.LegalOverlap)
	}
	if o.OverlapWeight < 0 || o.StrengthWeight < 0 || o.OverlapWeight+o.StrengthWeight == 0 {
		return fmt.Errorf("reconcile: confidence weights must be non-negative and not both zero")
	}
	if o.StrengthScale <= 0 {
		return fmt.Errorf("reconcile: strength scale must be positive")
	}
	return nil
}

// leaseShape indexes one lease boundary in the r-tree.
type leaseShape struct {
	idx    int
	id     string
	poly   geom.Polygon
	bounds *geom.Bounds
}

func (s *leaseShape) Bounds() *geom.Bounds { return s.bounds }

func (s *leaseShape) Len() int                { return s.poly.Len() }
func (s *leaseShape) Points() func() geom.Point { return s.poly.Points() }
func (s *leaseShape) Similar(g geom.Geom, tolerance float64) bool {
	return s.poly.Similar(g, tolerance)
}
func (s *leaseShape) Transform(t proj.Transformer) (geom.Geom, error) {
	return s.poly.Transform(t)
}

// Reconcile computes the overlay classification for every detected polygon.
// Input order is preserved; the result is deterministic for identical
// inputs and configuration.
func Reconcile(polys []vectorize.Polygon, leases []lease.Boundary, opts Options) ([]Area, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	tree := rtree.NewTree(25, 50)
	for i, b := range leases {
		s := &leaseShape{idx: i, id: b.ID, poly: ringToGeom(b.Ring)}
		s.bounds = s.poly.Bounds()
		tree.Insert(s)
	}

	areas := make([]Area, 0, len(polys))
	for _, p := range polys {
		areas = append(areas, reconcileOne(p, tree, opts))
	}
	return areas, nil
}

// reconcileOne overlays a single polygon against the lease index.
func reconcileOne(p vectorize.Polygon, tree *rtree.Rtree, opts Options) Area {
	pg := ringToGeom(p.Ring)
	pgArea := math.Abs(pg.Area())

	var candidates []*leaseShape
	for _, s := range tree.SearchIntersect(pg.Bounds()) {
		candidates = append(candidates, s.(*leaseShape))
	}
	// R-tree search order is not defined; restore input order so the
	// incremental union below is deterministic.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].idx < candidates[j].idx })

	var overlaps []LeaseOverlap
	var union geom.Polygonal
	for _, c := range candidates {
		inter := c.poly.Intersection(pg)
		if a := math.Abs(inter.Area()); a > 0 {
			overlaps = append(overlaps, LeaseOverlap{LeaseID: c.id, AreaHectares: a / 10000.0})
		}
		if union == nil {
			union = c.poly
		} else {
			union = union.Union(c.poly)
		}
	}

	var insideArea float64
	if union != nil {
		insideArea = math.Abs(union.Intersection(pg).Area())
	}

	// A polygon that only touches a lease boundary has zero intersection
	// area and must come out as fraction 0, not a division artifact;
	// zero-area polygons never reach this stage (area filter upstream).
	fraction := 0.0
	if pgArea > 0 {
		fraction = clamp01(insideArea / pgArea)
	}

	cls := classifyOverlap(fraction, opts)
	area := Area{
		Polygon:         p,
		Classification:  cls,
		OverlapFraction: fraction,
		Confidence:      confidence(fraction, p, opts),
		InsideAreaHa:    insideArea / 10000.0,
		OutsideAreaHa:   math.Max(0, pgArea-insideArea) / 10000.0,
		Leases:          overlaps,
	}
	area.Severity = severity(cls, p.AreaHectares, fraction, opts)
	return area
}

func classifyOverlap(fraction float64, opts Options) Classification {
	switch {
	case fraction >= opts.LegalOverlap:
		return Legal
	case fraction <= opts.IllegalOverlap:
		return Illegal
	default:
		return Mixed
	}
}

// confidence is a deterministic function of overlap decisiveness and mean
// index strength. An overlap fraction near 0 or 1 is decisive; one near the
// middle is ambiguous. Strength measures how far the polygon's mean index
// values sit beyond their detection thresholds, normalized by StrengthScale.
func confidence(fraction float64, p vectorize.Polygon, opts Options) float64 {
	decisiveness := math.Abs(2*fraction - 1)

	var strength float64
	counted := 0
	for _, c := range opts.Conditions {
		v, ok := p.MeanIndex[c.Index]
		if !ok {
			continue
		}
		strength += clamp01(c.Margin(v) / opts.StrengthScale)
		counted++
	}
	if counted > 0 {
		strength /= float64(counted)
	}

	total := opts.OverlapWeight + opts.StrengthWeight
	return clamp01((opts.OverlapWeight*decisiveness + opts.StrengthWeight*strength) / total)
}

// severity grades non-legal detections by their unlicensed hectares:
// area outside any lease at or above the critical breakpoint is critical,
// anything else is a warning.
func severity(cls Classification, areaHa, fraction float64, opts Options) Severity {
	if cls == Legal {
		return SeverityNone
	}
	illegalHa := areaHa * (1 - fraction)
	if illegalHa >= opts.CriticalAreaHa {
		return SeverityCritical
	}
	return SeverityWarning
}

// ringToGeom converts a closed ring to a geom polygon path. The library
// treats paths as implicitly closed, so the repeated closing point is
// dropped.
func ringToGeom(r geometry.Ring) geom.Polygon {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	path := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		path[i] = geom.Point{X: r[i].X, Y: r[i].Y}
	}
	return geom.Polygon{path}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
