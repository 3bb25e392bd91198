package volume

import (
	"sort"

	"gonum.org/v1/gonum/integrate"

	"minewatch/internal/raster"
)

// integrateFootprint integrates depth over the footprint with a composite
// scheme: Simpson's rule along each raster row, trapezoidal across the row
// integrals. Each contiguous run of cells is padded with zero-depth samples
// at its outer cell edges, since depth tapers to zero at the pit wall; this
// also keeps every run long enough for quadrature. Rows without valid depth
// contribute zero.
func integrateFootprint(cells []int, depths map[int]float64, dem *raster.Grid) float64 {
	dx, dy := dem.Transform.PixelSize()

	byRow := make(map[int][]int)
	minRow, maxRow := dem.Height, -1
	for _, c := range cells {
		row := c / dem.Width
		byRow[row] = append(byRow[row], c%dem.Width)
		if row < minRow {
			minRow = row
		}
		if row > maxRow {
			maxRow = row
		}
	}
	if maxRow < minRow {
		return 0
	}

	ys := make([]float64, 0, maxRow-minRow+3)
	fs := make([]float64, 0, maxRow-minRow+3)
	ys = append(ys, float64(minRow)-0.5)
	fs = append(fs, 0)
	for row := minRow; row <= maxRow; row++ {
		ys = append(ys, float64(row))
		fs = append(fs, integrateRow(byRow[row], row, depths, dem, dx))
	}
	ys = append(ys, float64(maxRow)+0.5)
	fs = append(fs, 0)

	for i := range ys {
		ys[i] *= dy
	}
	return integrate.Trapezoidal(ys, fs)
}

// integrateRow integrates the depth profile of one raster row, splitting
// the row's footprint cells into contiguous runs and applying Simpson's
// rule to each.
func integrateRow(cols []int, row int, depths map[int]float64, dem *raster.Grid, dx float64) float64 {
	if len(cols) == 0 {
		return 0
	}
	sort.Ints(cols)

	var total float64
	start := 0
	for i := 1; i <= len(cols); i++ {
		if i < len(cols) && cols[i] == cols[i-1]+1 {
			continue
		}
		total += integrateRun(cols[start:i], row, depths, dem, dx)
		start = i
	}
	return total
}

func integrateRun(cols []int, row int, depths map[int]float64, dem *raster.Grid, dx float64) float64 {
	xs := make([]float64, 0, len(cols)+2)
	fs := make([]float64, 0, len(cols)+2)
	xs = append(xs, (float64(cols[0])-0.5)*dx)
	fs = append(fs, 0)
	for _, col := range cols {
		xs = append(xs, float64(col)*dx)
		fs = append(fs, depths[dem.Index(col, row)])
	}
	xs = append(xs, (float64(cols[len(cols)-1])+0.5)*dx)
	fs = append(fs, 0)

	return integrate.Simpsons(xs, fs)
}
