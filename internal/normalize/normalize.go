// Package normalize brings acquired rasters onto a common analysis grid:
// one spatial reference, one resolution, one extent. Every downstream stage
// assumes its inputs are co-registered, so this runs first.
package normalize

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"

	"minewatch/internal/raster"
	"minewatch/pkg/geometry"
)

// Resampling selects how source cells map onto target cells.
type Resampling int

const (
	// Bilinear interpolates from the four nearest source cells. Suited to
	// continuous data such as reflectance and elevation.
	Bilinear Resampling = iota
	// Nearest copies the closest source cell unchanged.
	Nearest
)

// GridSpec describes the target analysis grid.
type GridSpec struct {
	// SRS is the target spatial reference as a PROJ.4 string.
	SRS string
	// ResolutionM is the cell size in meters. Cells are square.
	ResolutionM float64
	// MinX, MinY, MaxX, MaxY bound the target extent in target SRS units.
	MinX, MinY, MaxX, MaxY float64
}

// Validate checks the grid definition is usable.
func (s GridSpec) Validate() error {
	if s.ResolutionM <= 0 {
		return fmt.Errorf("grid spec: resolution must be positive, got %g", s.ResolutionM)
	}
	if s.MaxX <= s.MinX || s.MaxY <= s.MinY {
		return fmt.Errorf("grid spec: empty extent [%g,%g]x[%g,%g]", s.MinX, s.MaxX, s.MinY, s.MaxY)
	}
	return nil
}

// Shape returns the target raster dimensions.
func (s GridSpec) Shape() (width, height int) {
	width = int(math.Ceil((s.MaxX - s.MinX) / s.ResolutionM))
	height = int(math.Ceil((s.MaxY - s.MinY) / s.ResolutionM))
	return width, height
}

// Transform returns the target geotransform. Row zero sits at the top of
// the extent, matching raster convention.
func (s GridSpec) Transform() geometry.AffineTransform {
	return geometry.Geotransform(s.MinX, s.MaxY, s.ResolutionM, -s.ResolutionM)
}

// InputMismatchError reports an input raster that cannot be placed on the
// target grid at all.
type InputMismatchError struct {
	Band   string
	Reason string
}

func (e *InputMismatchError) Error() string {
	return fmt.Sprintf("normalize %s: %s", e.Band, e.Reason)
}

// InsufficientDataError reports a resampled band whose valid-data coverage
// fell below the configured floor.
type InsufficientDataError struct {
	Band          string
	ValidFraction float64
	Required      float64
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("normalize %s: only %.1f%% valid data after resampling (need %.1f%%)",
		e.Band, e.ValidFraction*100, e.Required*100)
}

// Options configures normalization.
type Options struct {
	// Method is the resampling scheme for optical bands and the DEM.
	Method Resampling
	// MinValidFraction is the least share of valid cells a resampled band
	// may have.
	MinValidFraction float64
	// MaxFillRadius bounds DEM void filling, in dilation passes. Zero
	// disables filling.
	MaxFillRadius int
}

// DefaultOptions returns bilinear resampling, a 30% valid-data floor and a
// small DEM fill budget.
func DefaultOptions() Options {
	return Options{Method: Bilinear, MinValidFraction: 0.3, MaxFillRadius: 4}
}

// Normalize resamples every band in the set onto the target grid. All six
// optical bands are required; the DEM is optional and, when present,
// additionally has small voids filled. The input set is not modified.
func Normalize(bands *raster.BandSet, spec GridSpec, opts Options) (*raster.BandSet, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	out := &raster.BandSet{}
	pairs := []struct {
		name string
		src  *raster.Grid
		dst  **raster.Grid
	}{
		{"blue", bands.Blue, &out.Blue},
		{"green", bands.Green, &out.Green},
		{"red", bands.Red, &out.Red},
		{"nir", bands.NIR, &out.NIR},
		{"swir1", bands.SWIR1, &out.SWIR1},
		{"swir2", bands.SWIR2, &out.SWIR2},
		{"dem", bands.DEM, &out.DEM},
	}
	for _, pr := range pairs {
		if pr.src == nil {
			// The DEM is optional; every optical band must be present.
			if pr.name != "dem" {
				return nil, &InputMismatchError{Band: pr.name, Reason: "required band missing"}
			}
			continue
		}
		g, err := Resample(pr.src, spec, opts.Method)
		if err != nil {
			if me, ok := err.(*InputMismatchError); ok && me.Band == "" {
				me.Band = pr.name
			}
			return nil, err
		}
		if pr.name == "dem" && opts.MaxFillRadius > 0 {
			FillVoids(g, opts.MaxFillRadius)
		}
		if f := g.ValidFraction(); f < opts.MinValidFraction {
			return nil, &InsufficientDataError{Band: pr.name, ValidFraction: f, Required: opts.MinValidFraction}
		}
		*pr.dst = g
	}
	return out, nil
}

// Resample projects and resamples one raster onto the target grid. Target
// cells that fall outside the source stay no-data.
func Resample(src *raster.Grid, spec GridSpec, method Resampling) (*raster.Grid, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	toSource, err := sourceMapper(src, spec)
	if err != nil {
		return nil, err
	}
	inv, ok := src.Transform.Inverse()
	if !ok {
		return nil, &InputMismatchError{Reason: "source geotransform is singular"}
	}

	width, height := spec.Shape()
	out := raster.New(width, height, spec.Transform(), spec.SRS)
	out.NoData = src.NoData

	hit := false
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			world := out.Transform.Apply(geometry.Point2D{X: float64(col) + 0.5, Y: float64(row) + 0.5})
			sw, err := toSource(world)
			if err != nil {
				continue
			}
			px := inv.Apply(sw)
			sx, sy := px.X-0.5, px.Y-0.5
			var v float64
			var valid bool
			switch method {
			case Nearest:
				v, valid = sampleNearest(src, sx, sy)
			default:
				v, valid = sampleBilinear(src, sx, sy)
			}
			if valid {
				out.Data[out.Index(col, row)] = v
				hit = true
			}
		}
	}
	if !hit {
		return nil, &InputMismatchError{Reason: "no spatial overlap with the target extent"}
	}
	return out, nil
}

// sourceMapper returns a function mapping target-SRS world coordinates into
// source-SRS world coordinates. When the two SRS strings are equal, or
// either side is blank, no reprojection happens and coordinates pass
// through unchanged; a grid without an SRS is taken to already be in the
// target reference.
func sourceMapper(src *raster.Grid, spec GridSpec) (func(geometry.Point2D) (geometry.Point2D, error), error) {
	if src.SRS == spec.SRS || src.SRS == "" || spec.SRS == "" {
		return func(p geometry.Point2D) (geometry.Point2D, error) { return p, nil }, nil
	}
	targetSR, err := proj.Parse(spec.SRS)
	if err != nil {
		return nil, fmt.Errorf("normalize: parsing target SRS: %w", err)
	}
	sourceSR, err := proj.Parse(src.SRS)
	if err != nil {
		return nil, fmt.Errorf("normalize: parsing source SRS: %w", err)
	}
	trans, err := targetSR.NewTransform(sourceSR)
	if err != nil {
		return nil, fmt.Errorf("normalize: building transform: %w", err)
	}
	return func(p geometry.Point2D) (geometry.Point2D, error) {
		g, err := geom.Point{X: p.X, Y: p.Y}.Transform(trans)
		if err != nil {
			return geometry.Point2D{}, err
		}
		gp := g.(geom.Point)
		return geometry.Point2D{X: gp.X, Y: gp.Y}, nil
	}, nil
}

func sampleNearest(src *raster.Grid, x, y float64) (float64, bool) {
	col, row := int(math.Round(x)), int(math.Round(y))
	if !src.InBounds(col, row) {
		return 0, false
	}
	v := src.Data[src.Index(col, row)]
	return v, src.IsValid(v)
}

// sampleBilinear interpolates from the four surrounding cell centers. If
// any of them is no-data the sample degrades to nearest so that no-data
// never bleeds into valid values.
func sampleBilinear(src *raster.Grid, x, y float64) (float64, bool) {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	var vals [4]float64
	for i, off := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		cx, cy := x0+off[0], y0+off[1]
		if !src.InBounds(cx, cy) {
			return sampleNearest(src, x, y)
		}
		v := src.Data[src.Index(cx, cy)]
		if !src.IsValid(v) {
			return sampleNearest(src, x, y)
		}
		vals[i] = v
	}

	top := vals[0]*(1-fx) + vals[1]*fx
	bottom := vals[2]*(1-fx) + vals[3]*fx
	return top*(1-fy) + bottom*fy, true
}
