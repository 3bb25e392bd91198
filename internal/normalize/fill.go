package normalize

import "minewatch/internal/raster"

// FillVoids fills no-data cells in place by iteratively averaging valid
// 8-neighbors. Each pass grows valid data by one cell, so maxRadius bounds
// how far a fill can reach from real measurements. Returns the number of
// cells filled.
//
// Voids wider than the budget stay no-data; the volume estimator accounts
// for them separately.
func FillVoids(g *raster.Grid, maxRadius int) int {
	filled := 0
	for pass := 0; pass < maxRadius; pass++ {
		next := make(map[int]float64)
		for row := 0; row < g.Height; row++ {
			for col := 0; col < g.Width; col++ {
				idx := g.Index(col, row)
				if g.IsValid(g.Data[idx]) {
					continue
				}
				var sum float64
				n := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						x, y := col+dx, row+dy
						if !g.InBounds(x, y) {
							continue
						}
						if v := g.Data[g.Index(x, y)]; g.IsValid(v) {
							sum += v
							n++
						}
					}
				}
				if n > 0 {
					next[idx] = sum / float64(n)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		for idx, v := range next {
			g.Data[idx] = v
		}
		filled += len(next)
	}
	return filled
}
