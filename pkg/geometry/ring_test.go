package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSquare() Ring {
	return Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
}

// TestRingArea checks signed area and orientation.
func TestRingArea(t *testing.T) {
	t.Parallel()

	t.Run("counter-clockwise square is positive", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 100.0, unitSquare().Area(), 1e-9)
	})

	t.Run("clockwise square is negative", func(t *testing.T) {
		t.Parallel()
		r := Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
		assert.InDelta(t, -100.0, r.Area(), 1e-9)
	})

	t.Run("degenerate ring has zero area", func(t *testing.T) {
		t.Parallel()
		r := Ring{{0, 0}, {5, 5}, {10, 10}, {0, 0}}
		assert.Zero(t, r.Area())
	})
}

// TestRingClosed checks the closure predicate and Close.
func TestRingClosed(t *testing.T) {
	t.Parallel()

	open := Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.False(t, open.Closed())
	assert.True(t, unitSquare().Closed())

	closed := open.Close()
	require.True(t, closed.Closed())
	assert.Equal(t, closed[0], closed[len(closed)-1])

	// Closing an already-closed ring must not grow it.
	assert.Len(t, unitSquare().Close(), len(unitSquare()))
}

// TestRingContains checks point-in-polygon over the square and its edges.
func TestRingContains(t *testing.T) {
	t.Parallel()
	r := unitSquare()

	assert.True(t, r.Contains(Point2D{5, 5}))
	assert.False(t, r.Contains(Point2D{15, 5}))
	assert.False(t, r.Contains(Point2D{-1, -1}))
}

// TestRingIsSimple checks self-intersection detection.
func TestRingIsSimple(t *testing.T) {
	t.Parallel()

	assert.True(t, unitSquare().IsSimple())

	bowtie := Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}
	assert.False(t, bowtie.IsSimple())
}

// TestRingBounds checks the axis-aligned bounding box.
func TestRingBounds(t *testing.T) {
	t.Parallel()
	b := unitSquare().Bounds()
	assert.InDelta(t, 0.0, b.X, 1e-9)
	assert.InDelta(t, 0.0, b.Y, 1e-9)
	assert.InDelta(t, 10.0, b.Width, 1e-9)
	assert.InDelta(t, 10.0, b.Height, 1e-9)
}

// TestRingPerimeter checks edge-length summation.
func TestRingPerimeter(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 40.0, unitSquare().Perimeter(), 1e-9)
}

// TestAffineTransform checks geotransform round trips and cell area.
func TestAffineTransform(t *testing.T) {
	t.Parallel()

	// 10 m cells, origin at the top-left of a 400 m tall scene.
	tr := Geotransform(0, 400, 10, -10)

	t.Run("apply maps pixel to world", func(t *testing.T) {
		t.Parallel()
		p := tr.Apply(Point2D{X: 2, Y: 3})
		assert.InDelta(t, 20.0, p.X, 1e-9)
		assert.InDelta(t, 370.0, p.Y, 1e-9)
	})

	t.Run("cell area is positive despite negative dy", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 100.0, tr.CellArea(), 1e-9)
	})

	t.Run("inverse round trips", func(t *testing.T) {
		t.Parallel()
		inv, ok := tr.Inverse()
		require.True(t, ok)
		p := inv.Apply(tr.Apply(Point2D{X: 7, Y: 11}))
		assert.InDelta(t, 7.0, p.X, 1e-9)
		assert.InDelta(t, 11.0, p.Y, 1e-9)
	})

	t.Run("singular transform has no inverse", func(t *testing.T) {
		t.Parallel()
		_, ok := AffineTransform{}.Inverse()
		assert.False(t, ok)
	})
}
