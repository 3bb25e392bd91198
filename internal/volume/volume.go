// Package volume estimates excavation depth and volume for detected mining
// areas by differencing the current DEM against a reference surface and
// integrating depth over the footprint with a composite quadrature scheme.
package volume

import (
	"fmt"
	"math"
	"sort"

	"minewatch/internal/raster"
	"minewatch/internal/vectorize"
)

// Estimate is the excavation estimate for one polygon footprint.
type Estimate struct {
	DepthMeanM    float64
	DepthMaxM     float64
	VolumeM3      float64 // composite Simpson/trapezoid integration
	NaiveVolumeM3 float64 // plain depth x cell-area summation, for comparison
	SampledCells  int     // footprint cells with valid elevation
}

// InsufficientElevationDataError reports a footprint with too little valid
// elevation data to estimate. It fails only the affected polygon; the rest
// of the batch proceeds.
type InsufficientElevationDataError struct {
	PolygonID      string
	NoDataFraction float64
	Limit          float64
}

func (e *InsufficientElevationDataError) Error() string {
	return fmt.Sprintf("volume %s: %.1f%% of footprint elevation is no-data (limit %.1f%%)",
		e.PolygonID, e.NoDataFraction*100, e.Limit*100)
}

// Options configures volume estimation.
type Options struct {
	// ReferenceBufferPx is the width, in pixels, of the ring around the
	// footprint sampled to establish the undisturbed reference elevation
	// when no pre-mining DEM is available.
	ReferenceBufferPx int
	// MaxNoDataFraction is the largest tolerated share of footprint cells
	// without valid elevation.
	MaxNoDataFraction float64
}

// DefaultOptions returns the default buffer width and no-data tolerance.
func DefaultOptions() Options {
	return Options{ReferenceBufferPx: 3, MaxNoDataFraction: 0.3}
}

// ForPolygon estimates excavation depth and volume over the polygon's
// footprint. dem is the current surface; reference is an optional
// pre-mining DEM co-registered with it. When reference is nil, the
// undisturbed surface is taken as the median elevation of a buffer ring
// just outside the footprint. Depth is clamped at zero: apparent uplift is
// never counted as excavation.
func ForPolygon(p vectorize.Polygon, dem, reference *raster.Grid, opts Options) (*Estimate, error) {
	if dem == nil {
		return nil, fmt.Errorf("volume %s: no DEM supplied", p.ID)
	}
	if reference != nil && !reference.SameGeoreference(dem) {
		return nil, fmt.Errorf("volume %s: reference DEM is not co-registered with the current DEM", p.ID)
	}

	// No-data budget over the footprint, counting both surfaces.
	noData := 0
	for _, c := range p.Cells {
		if !dem.IsValid(dem.Data[c]) || (reference != nil && !reference.IsValid(reference.Data[c])) {
			noData++
		}
	}
	fraction := float64(noData) / float64(len(p.Cells))
	if fraction > opts.MaxNoDataFraction {
		return nil, &InsufficientElevationDataError{
			PolygonID:      p.ID,
			NoDataFraction: fraction,
			Limit:          opts.MaxNoDataFraction,
		}
	}

	refAt, err := referenceSurface(p, dem, reference, opts)
	if err != nil {
		return nil, err
	}

	// Depth per footprint cell; invalid cells contribute no depth sample.
	depths := make(map[int]float64, len(p.Cells))
	var sum, maxDepth float64
	for _, c := range p.Cells {
		v := dem.Data[c]
		if !dem.IsValid(v) {
			continue
		}
		d := math.Max(0, refAt(c)-v)
		depths[c] = d
		sum += d
		if d > maxDepth {
			maxDepth = d
		}
	}
	if len(depths) == 0 {
		return nil, &InsufficientElevationDataError{
			PolygonID:      p.ID,
			NoDataFraction: 1,
			Limit:          opts.MaxNoDataFraction,
		}
	}

	est := &Estimate{
		DepthMeanM:    sum / float64(len(depths)),
		DepthMaxM:     maxDepth,
		NaiveVolumeM3: sum * dem.CellArea(),
		SampledCells:  len(depths),
		VolumeM3:      integrateFootprint(p.Cells, depths, dem),
	}
	return est, nil
}

// referenceSurface returns a lookup from cell index to reference elevation.
func referenceSurface(p vectorize.Polygon, dem, reference *raster.Grid, opts Options) (func(int) float64, error) {
	if reference != nil {
		return func(c int) float64 { return reference.Data[c] }, nil
	}

	median, ok := boundaryMedian(p.Cells, dem, opts.ReferenceBufferPx)
	if !ok {
		return nil, &InsufficientElevationDataError{
			PolygonID:      p.ID,
			NoDataFraction: 1,
			Limit:          opts.MaxNoDataFraction,
		}
	}
	return func(int) float64 { return median }, nil
}

// boundaryMedian samples the valid elevations in a ring of bufferPx cells
// around the footprint and returns their median.
func boundaryMedian(cells []int, dem *raster.Grid, bufferPx int) (float64, bool) {
	inFootprint := make(map[int]bool, len(cells))
	for _, c := range cells {
		inFootprint[c] = true
	}

	var elevations []float64
	seen := make(map[int]bool)
	for _, c := range cells {
		col, row := c%dem.Width, c/dem.Width
		for dy := -bufferPx; dy <= bufferPx; dy++ {
			for dx := -bufferPx; dx <= bufferPx; dx++ {
				x, y := col+dx, row+dy
				if !dem.InBounds(x, y) {
					continue
				}
				n := dem.Index(x, y)
				if inFootprint[n] || seen[n] {
					continue
				}
				seen[n] = true
				if v := dem.Data[n]; dem.IsValid(v) {
					elevations = append(elevations, v)
				}
			}
		}
	}

	if len(elevations) == 0 {
		return 0, false
	}
	sort.Float64s(elevations)
	mid := len(elevations) / 2
	if len(elevations)%2 == 1 {
		return elevations[mid], true
	}
	return (elevations[mid-1] + elevations[mid]) / 2, true
}
