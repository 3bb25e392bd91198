package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minewatch/pkg/geometry"
)

func testTransform() geometry.AffineTransform {
	return geometry.Geotransform(0, 400, 10, -10)
}

// TestGridNew checks construction and the no-data sentinel fill.
func TestGridNew(t *testing.T) {
	t.Parallel()

	g := New(4, 3, testTransform(), "")
	require.Len(t, g.Data, 12)
	assert.Equal(t, DefaultNoData, g.NoData)
	for _, v := range g.Data {
		assert.False(t, g.IsValid(v))
	}
}

// TestGridIsValid checks validity semantics for sentinel and NaN values.
func TestGridIsValid(t *testing.T) {
	t.Parallel()

	g := New(2, 2, testTransform(), "")
	assert.False(t, g.IsValid(g.NoData))
	assert.False(t, g.IsValid(math.NaN()))
	assert.True(t, g.IsValid(0))
	assert.True(t, g.IsValid(-0.5))
}

// TestGridAccessors checks index math and bounds.
func TestGridAccessors(t *testing.T) {
	t.Parallel()

	g := New(4, 3, testTransform(), "")
	g.Set(2, 1, 7.5)
	assert.Equal(t, 7.5, g.At(2, 1))
	assert.Equal(t, 6, g.Index(2, 1))

	assert.True(t, g.InBounds(3, 2))
	assert.False(t, g.InBounds(4, 2))
	assert.False(t, g.InBounds(-1, 0))
}

// TestGridValidFraction checks coverage accounting.
func TestGridValidFraction(t *testing.T) {
	t.Parallel()

	g := New(2, 2, testTransform(), "")
	assert.Zero(t, g.ValidFraction())

	g.Set(0, 0, 1)
	g.Set(1, 1, 2)
	assert.InDelta(t, 0.5, g.ValidFraction(), 1e-9)
}

// TestGridHectares checks the cell-to-hectare conversion for 10 m cells.
func TestGridHectares(t *testing.T) {
	t.Parallel()

	g := New(4, 3, testTransform(), "")
	assert.InDelta(t, 100.0, g.CellArea(), 1e-9)
	assert.InDelta(t, 1.0, g.Hectares(100), 1e-9)
}

// TestGridGeoreference checks shape and georeference comparison.
func TestGridGeoreference(t *testing.T) {
	t.Parallel()

	a := New(4, 3, testTransform(), "")
	b := New(4, 3, testTransform(), "")
	c := New(4, 3, geometry.Geotransform(100, 400, 10, -10), "")

	assert.True(t, a.SameShape(b))
	assert.True(t, a.SameGeoreference(b))
	assert.False(t, a.SameGeoreference(c))
}

// TestGridClone checks that clones do not share backing storage.
func TestGridClone(t *testing.T) {
	t.Parallel()

	g := New(2, 2, testTransform(), "")
	g.Set(0, 0, 5)
	c := g.Clone()
	c.Set(0, 0, 9)
	assert.Equal(t, 5.0, g.At(0, 0))
	assert.Equal(t, 9.0, c.At(0, 0))
}

// TestMask checks mask construction, counting and cloning.
func TestMask(t *testing.T) {
	t.Parallel()

	m := NewMask(4, 3, testTransform(), "")
	assert.Zero(t, m.Count())

	m.Set(1, 1, true)
	m.Set(2, 2, true)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(1, 1))
	assert.False(t, m.At(0, 0))

	c := m.Clone()
	c.Set(1, 1, false)
	assert.True(t, m.At(1, 1))
	assert.Equal(t, 1, c.Count())
}

// TestMaskLike checks that a derived mask shares the grid's georeference.
func TestMaskLike(t *testing.T) {
	t.Parallel()

	g := New(4, 3, testTransform(), "+proj=utm +zone=43 +datum=WGS84")
	m := MaskLike(g)
	assert.Equal(t, g.Width, m.Width)
	assert.Equal(t, g.Height, m.Height)
	assert.Equal(t, g.Transform, m.Transform)
	assert.Equal(t, g.SRS, m.SRS)
	assert.Zero(t, m.Count())
}

// TestBandSetReference checks the reference grid fallback order.
func TestBandSetReference(t *testing.T) {
	t.Parallel()

	g := New(2, 2, testTransform(), "")
	b := &BandSet{Red: g}
	assert.Same(t, g, b.Reference())

	empty := &BandSet{}
	assert.Nil(t, empty.Reference())
}
