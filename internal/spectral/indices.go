// Package spectral computes per-pixel spectral indices from normalized
// reflectance bands. All computations are pure: no I/O, no shared state,
// one output grid per index.
package spectral

import (
	"fmt"
	"sync"

	"minewatch/internal/raster"
)

// Index names a spectral index.
type Index string

const (
	NDVI  Index = "ndvi"  // vegetation
	BSI   Index = "bsi"   // bare soil
	NDBI  Index = "ndbi"  // built-up / bare surfaces
	NDWI  Index = "ndwi"  // surface water
	MNDWI Index = "mndwi" // water, SWIR-based
	SAVI  Index = "savi"  // soil-adjusted vegetation
	EVI   Index = "evi"   // enhanced vegetation
	NBR   Index = "nbr"   // burn / disturbance
)

// All lists every index the engine computes, in a fixed order.
var All = []Index{NDVI, BSI, NDBI, NDWI, MNDWI, SAVI, EVI, NBR}

// Constants holds the soil and gain coefficients that parameterize SAVI
// and EVI. They are configuration, not physics baked into the formulas.
type Constants struct {
	SAVISoilFactor float64 `toml:"savi_soil_factor"`
	EVIGain        float64 `toml:"evi_gain"`
	EVIC1          float64 `toml:"evi_c1"`
	EVIC2          float64 `toml:"evi_c2"`
	EVISoilLine    float64 `toml:"evi_soil_line"`
}

// DefaultConstants returns the standard coefficient values.
func DefaultConstants() Constants {
	return Constants{
		SAVISoilFactor: 0.5,
		EVIGain:        2.5,
		EVIC1:          6.0,
		EVIC2:          7.5,
		EVISoilLine:    1.0,
	}
}

// Options configures index computation.
type Options struct {
	Constants Constants
	Workers   int // concurrent index computations; <=1 means serial
}

// DefaultOptions returns default computation options.
func DefaultOptions() Options {
	return Options{Constants: DefaultConstants(), Workers: len(All)}
}

// Set holds one computed raster per index, all co-registered with the
// input bands.
type Set struct {
	Grids map[Index]*raster.Grid
}

// Grid returns the raster for the named index, or nil if absent.
func (s *Set) Grid(ix Index) *raster.Grid {
	if s == nil {
		return nil
	}
	return s.Grids[ix]
}

// requiredBands maps each index to the bands its formula reads.
var requiredBands = map[Index][]string{
	NDVI:  {"nir", "red"},
	BSI:   {"swir1", "red", "nir", "blue"},
	NDBI:  {"swir1", "nir"},
	NDWI:  {"green", "nir"},
	MNDWI: {"green", "swir1"},
	SAVI:  {"nir", "red"},
	EVI:   {"nir", "red", "blue"},
	NBR:   {"nir", "swir2"},
}

// Compute derives every index raster from the band set. It fails if a band
// required by any index is missing; partial band sets are a normalizer
// contract violation, not something to paper over here.
func Compute(bands *raster.BandSet, opts Options) (*Set, error) {
	optical := bands.Optical()
	for _, ix := range All {
		for _, name := range requiredBands[ix] {
			if optical[name] == nil {
				return nil, fmt.Errorf("spectral: index %s requires band %s which is not present", ix, name)
			}
		}
	}

	set := &Set{Grids: make(map[Index]*raster.Grid, len(All))}
	var mu sync.Mutex

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, ix := range All {
		wg.Add(1)
		sem <- struct{}{}
		go func(ix Index) {
			defer wg.Done()
			defer func() { <-sem }()
			g := computeIndex(ix, bands, opts.Constants)
			mu.Lock()
			set.Grids[ix] = g
			mu.Unlock()
		}(ix)
	}
	wg.Wait()

	return set, nil
}

// computeIndex evaluates one index formula over every pixel. A pixel where
// any input band is no-data, or where the denominator is zero, becomes
// no-data in the output; NaN never leaks out of the engine.
func computeIndex(ix Index, bands *raster.BandSet, c Constants) *raster.Grid {
	ref := bands.Reference()
	out := raster.New(ref.Width, ref.Height, ref.Transform, ref.SRS)

	blue, green, red := bands.Blue, bands.Green, bands.Red
	nir, swir1, swir2 := bands.NIR, bands.SWIR1, bands.SWIR2

	for i := range out.Data {
		var num, den float64
		switch ix {
		case NDVI:
			n, r := nir.Data[i], red.Data[i]
			if !nir.IsValid(n) || !red.IsValid(r) {
				continue
			}
			num, den = n-r, n+r
		case BSI:
			s, r := swir1.Data[i], red.Data[i]
			n, b := nir.Data[i], blue.Data[i]
			if !swir1.IsValid(s) || !red.IsValid(r) || !nir.IsValid(n) || !blue.IsValid(b) {
				continue
			}
			num, den = (s+r)-(n+b), (s+r)+(n+b)
		case NDBI:
			s, n := swir1.Data[i], nir.Data[i]
			if !swir1.IsValid(s) || !nir.IsValid(n) {
				continue
			}
			num, den = s-n, s+n
		case NDWI:
			g, n := green.Data[i], nir.Data[i]
			if !green.IsValid(g) || !nir.IsValid(n) {
				continue
			}
			num, den = g-n, g+n
		case MNDWI:
			g, s := green.Data[i], swir1.Data[i]
			if !green.IsValid(g) || !swir1.IsValid(s) {
				continue
			}
			num, den = g-s, g+s
		case SAVI:
			n, r := nir.Data[i], red.Data[i]
			if !nir.IsValid(n) || !red.IsValid(r) {
				continue
			}
			num = (n - r) * (1 + c.SAVISoilFactor)
			den = n + r + c.SAVISoilFactor
		case EVI:
			n, r, b := nir.Data[i], red.Data[i], blue.Data[i]
			if !nir.IsValid(n) || !red.IsValid(r) || !blue.IsValid(b) {
				continue
			}
			num = c.EVIGain * (n - r)
			den = n + c.EVIC1*r - c.EVIC2*b + c.EVISoilLine
		case NBR:
			n, s := nir.Data[i], swir2.Data[i]
			if !nir.IsValid(n) || !swir2.IsValid(s) {
				continue
			}
			num, den = n-s, n+s
		default:
			continue
		}

		if den == 0 {
			continue // stays no-data
		}
		out.Data[i] = num / den
	}

	return out
}
