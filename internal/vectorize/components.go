package vectorize

import (
	"sort"

	"minewatch/internal/raster"
)

// component is one 8-connected region of set mask cells.
type component struct {
	label int   // 1-based, assigned in raster-scan order
	cells []int // row-major cell indices, ascending
}

// labelComponents finds 8-connected components of the mask in deterministic
// raster-scan order using an explicit flood-fill stack.
func labelComponents(m *raster.Mask) []component {
	labels := make([]int, len(m.Bits))
	var comps []component

	var stack []int
	for start, set := range m.Bits {
		if !set || labels[start] != 0 {
			continue
		}

		label := len(comps) + 1
		var cells []int
		stack = append(stack[:0], start)
		labels[start] = label

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cells = append(cells, idx)

			col, row := idx%m.Width, idx/m.Width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					x, y := col+dx, row+dy
					if !m.InBounds(x, y) {
						continue
					}
					n := m.Index(x, y)
					if m.Bits[n] && labels[n] == 0 {
						labels[n] = label
						stack = append(stack, n)
					}
				}
			}
		}

		// Flood-fill order is stack-dependent; normalize for determinism.
		sort.Ints(cells)
		comps = append(comps, component{label: label, cells: cells})
	}

	return comps
}
