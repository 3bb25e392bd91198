package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minewatch/internal/raster"
	"minewatch/pkg/geometry"
)

func uniformBands(w, h int, blue, green, red, nir, swir1, swir2 float64) *raster.BandSet {
	tr := geometry.Geotransform(0, float64(h)*10, 10, -10)
	fill := func(v float64) *raster.Grid {
		g := raster.New(w, h, tr, "")
		for i := range g.Data {
			g.Data[i] = v
		}
		return g
	}
	return &raster.BandSet{
		Blue:  fill(blue),
		Green: fill(green),
		Red:   fill(red),
		NIR:   fill(nir),
		SWIR1: fill(swir1),
		SWIR2: fill(swir2),
	}
}

// TestComputeKnownValues checks the index formulas against hand-computed
// reflectance combinations.
func TestComputeKnownValues(t *testing.T) {
	t.Parallel()

	bands := uniformBands(3, 3, 0.1, 0.1, 0.2, 0.8, 0.3, 0.1)
	set, err := Compute(bands, DefaultOptions())
	require.NoError(t, err)

	at := func(ix Index) float64 { return set.Grid(ix).At(1, 1) }

	// ndvi = (0.8-0.2)/(0.8+0.2)
	assert.InDelta(t, 0.6, at(NDVI), 1e-9)
	// ndbi = (0.3-0.8)/(0.3+0.8)
	assert.InDelta(t, -0.4545454545, at(NDBI), 1e-9)
	// ndwi = (0.1-0.8)/(0.1+0.8)
	assert.InDelta(t, -0.7777777778, at(NDWI), 1e-9)
	// mndwi = (0.1-0.3)/(0.1+0.3)
	assert.InDelta(t, -0.5, at(MNDWI), 1e-9)
	// bsi = ((0.3+0.2)-(0.8+0.1))/((0.3+0.2)+(0.8+0.1))
	assert.InDelta(t, -0.2857142857, at(BSI), 1e-9)
	// savi = 1.5*(0.8-0.2)/(0.8+0.2+0.5)
	assert.InDelta(t, 0.6, at(SAVI), 1e-9)
	// evi = 2.5*(0.8-0.2)/(0.8+6*0.2-7.5*0.1+1)
	assert.InDelta(t, 1.5/2.25, at(EVI), 1e-9)
	// nbr = (0.8-0.1)/(0.8+0.1)
	assert.InDelta(t, 0.7777777778, at(NBR), 1e-9)
}

// TestComputeProducesAllIndices checks that every index in All is present
// and co-registered with the inputs.
func TestComputeProducesAllIndices(t *testing.T) {
	t.Parallel()

	bands := uniformBands(4, 2, 0.1, 0.1, 0.2, 0.5, 0.3, 0.2)
	set, err := Compute(bands, DefaultOptions())
	require.NoError(t, err)

	require.Len(t, set.Grids, len(All))
	for _, ix := range All {
		g := set.Grid(ix)
		require.NotNil(t, g, "index %s missing", ix)
		assert.True(t, g.SameGeoreference(bands.Red))
	}
}

// TestComputeMissingBand checks that a missing required band fails fast.
func TestComputeMissingBand(t *testing.T) {
	t.Parallel()

	bands := uniformBands(2, 2, 0.1, 0.1, 0.2, 0.5, 0.3, 0.2)
	bands.SWIR2 = nil
	_, err := Compute(bands, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swir2")
}

// TestComputeNoDataPropagation checks that invalid inputs and zero
// denominators yield no-data, never NaN.
func TestComputeNoDataPropagation(t *testing.T) {
	t.Parallel()

	t.Run("no-data input pixel stays no-data", func(t *testing.T) {
		t.Parallel()
		bands := uniformBands(3, 3, 0.1, 0.1, 0.2, 0.5, 0.3, 0.2)
		bands.NIR.Set(1, 1, bands.NIR.NoData)

		set, err := Compute(bands, DefaultOptions())
		require.NoError(t, err)

		g := set.Grid(NDVI)
		assert.False(t, g.IsValid(g.At(1, 1)))
		assert.True(t, g.IsValid(g.At(0, 0)))
	})

	t.Run("zero denominator stays no-data", func(t *testing.T) {
		t.Parallel()
		bands := uniformBands(2, 2, 0.1, 0.1, 0.0, 0.0, 0.3, 0.2)

		set, err := Compute(bands, DefaultOptions())
		require.NoError(t, err)

		g := set.Grid(NDVI)
		for _, v := range g.Data {
			assert.False(t, g.IsValid(v))
		}
	})
}

// TestComputeSerialMatchesConcurrent checks that worker count never changes
// the output.
func TestComputeSerialMatchesConcurrent(t *testing.T) {
	t.Parallel()

	bands := uniformBands(6, 5, 0.12, 0.09, 0.21, 0.47, 0.33, 0.19)

	serial, err := Compute(bands, Options{Constants: DefaultConstants(), Workers: 1})
	require.NoError(t, err)
	concurrent, err := Compute(bands, Options{Constants: DefaultConstants(), Workers: 8})
	require.NoError(t, err)

	for _, ix := range All {
		assert.Equal(t, serial.Grid(ix).Data, concurrent.Grid(ix).Data, "index %s", ix)
	}
}
