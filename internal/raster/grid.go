// Package raster provides the grid data model shared by all pipeline stages:
// georeferenced 2D arrays stored as flat row-major arenas.
package raster

import (
	"math"

	"minewatch/pkg/geometry"
)

// DefaultNoData is the sentinel written into cells that hold no measurement.
// NaN is never used as a sentinel; no-data is always explicit.
const DefaultNoData = -9999.0

// Grid is a single-band georeferenced raster. Data is row-major: the cell at
// (col, row) lives at Data[row*Width+col]. Once a stage has produced a Grid
// it is treated as immutable by every later stage.
type Grid struct {
	Width, Height int
	Data          []float64
	NoData        float64
	Transform     geometry.AffineTransform // pixel (col, row) -> world
	SRS           string                   // spatial reference, proj4 format
}

// New allocates a grid with every cell set to the no-data sentinel.
func New(width, height int, transform geometry.AffineTransform, srs string) *Grid {
	g := &Grid{
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		NoData:    DefaultNoData,
		Transform: transform,
		SRS:       srs,
	}
	for i := range g.Data {
		g.Data[i] = g.NoData
	}
	return g
}

// Index returns the flat arena index for (col, row).
func (g *Grid) Index(col, row int) int {
	return row*g.Width + col
}

// At returns the value at (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Width+col]
}

// Set writes the value at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Data[row*g.Width+col] = v
}

// InBounds reports whether (col, row) addresses a cell of the grid.
func (g *Grid) InBounds(col, row int) bool {
	return col >= 0 && col < g.Width && row >= 0 && row < g.Height
}

// IsValid reports whether v is a real measurement rather than the
// no-data sentinel.
func (g *Grid) IsValid(v float64) bool {
	return v != g.NoData && !math.IsNaN(v)
}

// ValidFraction returns the fraction of cells holding real measurements.
func (g *Grid) ValidFraction() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	valid := 0
	for _, v := range g.Data {
		if g.IsValid(v) {
			valid++
		}
	}
	return float64(valid) / float64(len(g.Data))
}

// CellArea returns the ground area of one cell in squared world units.
func (g *Grid) CellArea() float64 {
	return g.Transform.CellArea()
}

// Hectares converts a cell count into hectares using the grid's cell area.
// Assumes the world units of the spatial reference are metres.
func (g *Grid) Hectares(cells int) float64 {
	return float64(cells) * g.CellArea() / 10000.0
}

// SameShape reports whether two grids have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// SameGeoreference reports whether two grids share shape, geotransform and
// spatial reference, i.e. whether their cells are co-registered.
func (g *Grid) SameGeoreference(o *Grid) bool {
	return g.SameShape(o) && g.Transform == o.Transform && g.SRS == o.SRS
}

// WorldBounds returns the grid's extent in world coordinates.
func (g *Grid) WorldBounds() geometry.Rect {
	corners := []geometry.Point2D{
		g.Transform.Apply(geometry.Point2D{X: 0, Y: 0}),
		g.Transform.Apply(geometry.Point2D{X: float64(g.Width), Y: 0}),
		g.Transform.Apply(geometry.Point2D{X: 0, Y: float64(g.Height)}),
		g.Transform.Apply(geometry.Point2D{X: float64(g.Width), Y: float64(g.Height)}),
	}
	return geometry.BoundingBox(corners)
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Data = make([]float64, len(g.Data))
	copy(c.Data, g.Data)
	return &c
}

// BandSet holds the co-registered reflectance bands and elevation grid that
// the index engine and volume estimator consume. All non-nil members share
// one georeference; the normalizer guarantees this before handing the set on.
type BandSet struct {
	Blue  *Grid
	Green *Grid
	Red   *Grid
	NIR   *Grid
	SWIR1 *Grid
	SWIR2 *Grid
	DEM   *Grid
}

// Optical returns the reflectance bands in a fixed order with their names.
// The DEM is not part of the optical set.
func (b *BandSet) Optical() map[string]*Grid {
	m := make(map[string]*Grid, 6)
	if b.Blue != nil {
		m["blue"] = b.Blue
	}
	if b.Green != nil {
		m["green"] = b.Green
	}
	if b.Red != nil {
		m["red"] = b.Red
	}
	if b.NIR != nil {
		m["nir"] = b.NIR
	}
	if b.SWIR1 != nil {
		m["swir1"] = b.SWIR1
	}
	if b.SWIR2 != nil {
		m["swir2"] = b.SWIR2
	}
	return m
}

// Reference returns a grid that defines the set's common georeference.
func (b *BandSet) Reference() *Grid {
	for _, g := range []*Grid{b.Red, b.NIR, b.Green, b.Blue, b.SWIR1, b.SWIR2, b.DEM} {
		if g != nil {
			return g
		}
	}
	return nil
}
