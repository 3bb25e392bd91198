package vectorize

import (
	"sort"

	"minewatch/pkg/geometry"
)

// Boundary extraction walks the cell edges separating a component from the
// background and stitches them into closed rings on the pixel-corner
// lattice. Rings from this construction are exact outlines of the covered
// cells: their shoelace area equals the cell count, and re-rasterizing them
// reproduces the component.

// Edge directions on the corner lattice.
const (
	dirRight = iota // +x
	dirDown         // +y
	dirLeft         // -x
	dirUp           // -y
)

var dirStep = [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

type boundaryEdge struct {
	from, to int // corner keys
	dir      int
	used     bool
}

// traceBoundaries returns the closed boundary rings of the component in
// pixel-corner coordinates. Rings with positive signed area (in raster
// coordinates, y down) are outer boundaries; negative rings outline holes.
func traceBoundaries(cells []int, width int) []geometry.Ring {
	inComp := make(map[int]bool, len(cells))
	for _, c := range cells {
		inComp[c] = true
	}

	// Corner lattice is (width+1) wide.
	cw := width + 1
	corner := func(x, y int) int { return y*cw + x }

	// Collect directed edges with the component interior kept on a
	// consistent side, so every boundary stitches into closed loops.
	var edges []boundaryEdge
	outgoing := make(map[int][]int) // corner key -> indices into edges

	addEdge := func(fx, fy, tx, ty, dir int) {
		from, to := corner(fx, fy), corner(tx, ty)
		outgoing[from] = append(outgoing[from], len(edges))
		edges = append(edges, boundaryEdge{from: from, to: to, dir: dir})
	}

	for _, c := range cells {
		x, y := c%width, c/width
		if !inComp[c-width] || y == 0 { // cell above missing
			addEdge(x, y, x+1, y, dirRight)
		}
		if !inComp[c+1] || x == width-1 { // cell right missing
			addEdge(x+1, y, x+1, y+1, dirDown)
		}
		if !inComp[c+width] { // cell below missing
			addEdge(x+1, y+1, x, y+1, dirLeft)
		}
		if !inComp[c-1] || x == 0 { // cell left missing
			addEdge(x, y+1, x, y, dirUp)
		}
	}

	// Deterministic stitch order.
	starts := make([]int, 0, len(outgoing))
	for k := range outgoing {
		starts = append(starts, k)
	}
	sort.Ints(starts)
	for _, k := range starts {
		sort.Slice(outgoing[k], func(i, j int) bool {
			return edges[outgoing[k][i]].dir < edges[outgoing[k][j]].dir
		})
	}

	var rings []geometry.Ring
	for _, startCorner := range starts {
		for _, ei := range outgoing[startCorner] {
			if edges[ei].used {
				continue
			}
			rings = append(rings, walkLoop(edges, outgoing, ei, cw))
		}
	}

	return rings
}

// walkLoop follows edges from the given starting edge until the loop
// closes, compressing collinear runs into single segments. At corners where
// two boundary edges leave (diagonally pinched components), it takes the
// sharpest turn toward the interior, which splits the pinch into separate
// simple loops instead of one self-touching ring.
func walkLoop(edges []boundaryEdge, outgoing map[int][]int, start int, cornerWidth int) geometry.Ring {
	toPoint := func(key int) geometry.Point2D {
		return geometry.Point2D{X: float64(key % cornerWidth), Y: float64(key / cornerWidth)}
	}

	var ring geometry.Ring
	cur := start
	loopStart := edges[start].from
	edges[cur].used = true
	ring = append(ring, toPoint(edges[cur].from))
	runDir := edges[cur].dir

	for {
		at := edges[cur].to
		if at == loopStart {
			// Loop closed. A simple loop visits each corner once, so the
			// first return to the start is always the end.
			break
		}
		next := -1

		// Preference: turn toward the interior first, then straight,
		// then away. Reversing is never valid on a boundary.
		for _, want := range [3]int{(edges[cur].dir + 1) % 4, edges[cur].dir, (edges[cur].dir + 3) % 4} {
			for _, ei := range outgoing[at] {
				if !edges[ei].used && edges[ei].dir == want {
					next = ei
					break
				}
			}
			if next >= 0 {
				break
			}
		}

		if next < 0 {
			// Cannot happen on a well-formed boundary: every corner entered
			// is also left. Bail rather than loop forever.
			break
		}

		if edges[next].dir != runDir {
			ring = append(ring, toPoint(edges[next].from))
			runDir = edges[next].dir
		}
		edges[next].used = true
		cur = next
	}

	return ring.Close()
}
