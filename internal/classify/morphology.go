package classify

import "minewatch/internal/raster"

// Binary morphology on the candidate mask with a square structuring element.
// Cells outside the grid count as false, so detections touching the edge
// erode like any other boundary.

// Erode returns a mask where a cell survives only if every cell under the
// structuring element is set.
func Erode(m *raster.Mask, kernelSize int) *raster.Mask {
	r := kernelSize / 2
	out := raster.NewMask(m.Width, m.Height, m.Transform, m.SRS)

	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			if !m.At(col, row) {
				continue
			}
			keep := true
			for dy := -r; dy <= r && keep; dy++ {
				for dx := -r; dx <= r; dx++ {
					x, y := col+dx, row+dy
					if !m.InBounds(x, y) || !m.At(x, y) {
						keep = false
						break
					}
				}
			}
			out.Set(col, row, keep)
		}
	}
	return out
}

// Dilate returns a mask where a cell is set if any cell under the
// structuring element is set.
func Dilate(m *raster.Mask, kernelSize int) *raster.Mask {
	r := kernelSize / 2
	out := raster.NewMask(m.Width, m.Height, m.Transform, m.SRS)

	for row := 0; row < m.Height; row++ {
		for col := 0; col < m.Width; col++ {
			if !m.At(col, row) {
				continue
			}
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					x, y := col+dx, row+dy
					if m.InBounds(x, y) {
						out.Set(x, y, true)
					}
				}
			}
		}
	}
	return out
}

// Open removes isolated small detections: erosion followed by dilation.
func Open(m *raster.Mask, kernelSize int) *raster.Mask {
	return Dilate(Erode(m, kernelSize), kernelSize)
}

// Close fills small gaps inside detections: dilation followed by erosion.
func Close(m *raster.Mask, kernelSize int) *raster.Mask {
	return Erode(Dilate(m, kernelSize), kernelSize)
}
