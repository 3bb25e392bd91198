// Package vectorize converts a cleaned detection mask into mining-candidate
// polygons with per-polygon statistics, filtered by area bounds and ordered
// deterministically.
package vectorize

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"minewatch/internal/raster"
	"minewatch/internal/spectral"
	"minewatch/pkg/geometry"
)

// Polygon is one detected mining-candidate area. Ring is a closed, simple
// boundary in world coordinates; Cells are the row-major indices of the
// interior pixels in the source mask, kept so later stages (volume
// estimation) can revisit the footprint without re-rasterizing.
type Polygon struct {
	ID           string
	Ring         geometry.Ring
	PixelRing    geometry.Ring // same boundary on the pixel-corner lattice
	AreaHectares float64
	PerimeterM   float64
	Compactness  float64
	MeanIndex    map[spectral.Index]float64
	Cells        []int

	label int // raster-scan component label, tie-breaker for ordering
}

// Options configures polygon extraction.
type Options struct {
	MinAreaHa float64 // polygons strictly below this are dropped
	MaxAreaHa float64 // polygons strictly above this are dropped
}

// DefaultOptions returns the default area bounds: below 0.1 ha is noise,
// above 1000 ha is gross misclassification (for example a bare floodplain).
func DefaultOptions() Options {
	return Options{MinAreaHa: 0.1, MaxAreaHa: 1000}
}

// Extract traces every 8-connected component of the mask into polygons,
// attaches statistics, filters by area and returns the result ordered by
// descending area (ties by raster-scan order). Output is deterministic for
// identical input.
func Extract(mask *raster.Mask, indices *spectral.Set, opts Options) ([]Polygon, error) {
	if opts.MinAreaHa < 0 || opts.MaxAreaHa <= opts.MinAreaHa {
		return nil, fmt.Errorf("vectorize: invalid area bounds [%g, %g]", opts.MinAreaHa, opts.MaxAreaHa)
	}

	cellAreaHa := mask.Transform.CellArea() / 10000.0
	var polys []Polygon

	for _, comp := range labelComponents(mask) {
		rings := traceBoundaries(comp.cells, mask.Width)

		// Keep outer boundaries; holes (negative area in raster
		// coordinates) are interior gaps already shrunk by morphological
		// closing and are not reported as separate features.
		var outers []geometry.Ring
		for _, r := range rings {
			if r.Area() > 0 {
				outers = append(outers, r)
			}
		}

		for _, pixelRing := range outers {
			cells := comp.cells
			if len(outers) > 1 {
				// A diagonally pinched component splits into several
				// simple loops; assign each cell to the loop holding its
				// center.
				cells = cellsInside(comp.cells, pixelRing, mask.Width)
			}
			if len(cells) == 0 {
				continue
			}

			p := Polygon{
				Ring:         worldRing(pixelRing, mask.Transform),
				PixelRing:    pixelRing,
				AreaHectares: float64(len(cells)) * cellAreaHa,
				Cells:        cells,
				label:        comp.label,
			}
			p.PerimeterM = p.Ring.Perimeter()
			if p.PerimeterM > 0 {
				area := p.AreaHectares * 10000.0
				p.Compactness = 4 * math.Pi * area / (p.PerimeterM * p.PerimeterM)
			}
			p.MeanIndex = meanIndices(indices, cells)

			polys = append(polys, p)
		}
	}

	// Area filter: the lower bound is inclusive, so a polygon of exactly
	// MinAreaHa survives.
	filtered := polys[:0]
	for _, p := range polys {
		if p.AreaHectares >= opts.MinAreaHa && p.AreaHectares <= opts.MaxAreaHa {
			filtered = append(filtered, p)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].AreaHectares != filtered[j].AreaHectares {
			return filtered[i].AreaHectares > filtered[j].AreaHectares
		}
		return filtered[i].label < filtered[j].label
	})

	for i := range filtered {
		filtered[i].ID = fmt.Sprintf("mining_%03d", i+1)
	}

	return filtered, nil
}

// cellsInside returns the subset of cells whose centers fall inside the
// ring (pixel-corner coordinates).
func cellsInside(cells []int, ring geometry.Ring, width int) []int {
	var inside []int
	for _, c := range cells {
		center := geometry.Point2D{
			X: float64(c%width) + 0.5,
			Y: float64(c/width) + 0.5,
		}
		if ring.Contains(center) {
			inside = append(inside, c)
		}
	}
	return inside
}

// worldRing maps a pixel-corner ring into world coordinates through the
// mask geotransform.
func worldRing(pixelRing geometry.Ring, t geometry.AffineTransform) geometry.Ring {
	out := make(geometry.Ring, len(pixelRing))
	for i, p := range pixelRing {
		out[i] = t.Apply(p)
	}
	return out
}

// meanIndices computes the mean of each index over the polygon's interior
// cells, skipping no-data values. Indices with no valid samples inside the
// polygon are omitted.
func meanIndices(indices *spectral.Set, cells []int) map[spectral.Index]float64 {
	means := make(map[spectral.Index]float64, len(spectral.All))
	if indices == nil {
		return means
	}
	for _, ix := range spectral.All {
		g := indices.Grid(ix)
		if g == nil {
			continue
		}
		var vals []float64
		for _, c := range cells {
			if v := g.Data[c]; g.IsValid(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) > 0 {
			means[ix] = stat.Mean(vals, nil)
		}
	}
	return means
}

// Rasterize paints the polygon's footprint back onto an empty mask with the
// given georeference by testing cell centers against the pixel ring. Used
// to cross-check vectorization against its source mask.
func Rasterize(p Polygon, like *raster.Mask) *raster.Mask {
	out := raster.NewMask(like.Width, like.Height, like.Transform, like.SRS)
	b := p.PixelRing.Bounds()
	minCol := int(b.X)
	minRow := int(b.Y)
	maxCol := int(b.X + b.Width)
	maxRow := int(b.Y + b.Height)

	for row := minRow; row < maxRow; row++ {
		for col := minCol; col < maxCol; col++ {
			if !out.InBounds(col, row) {
				continue
			}
			center := geometry.Point2D{X: float64(col) + 0.5, Y: float64(row) + 0.5}
			if p.PixelRing.Contains(center) {
				out.Set(col, row, true)
			}
		}
	}
	return out
}
