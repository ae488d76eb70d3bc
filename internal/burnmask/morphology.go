package burnmask

import (
	"gocv.io/x/gocv"
)

// CleanStats reports what morphological cleanup changed.
type CleanStats struct {
	RegionsRemoved int `json:"regions_removed"`
	PixelsRemoved  int `json:"pixels_removed"`
	HolesFilled    int `json:"holes_filled"`
	PixelsFilled   int `json:"pixels_filled"`
}

// Clean removes small burned regions and fills small enclosed unburned
// holes. Connected components are always labelled over the whole mask.
// Excluded pixels are never changed and never count as burned.
func Clean(m *Mask, p Params) (*Mask, CleanStats) {
	var stats CleanStats
	out := m.Clone()

	if p.MinRegion > 1 {
		stats.RegionsRemoved, stats.PixelsRemoved = removeSmallRegions(out, p.MinRegion)
	}
	if p.MaxHole > 0 {
		stats.HolesFilled, stats.PixelsFilled = fillHoles(out, p.MaxHole)
	}
	return out, stats
}

// labelComponents labels the pixels of class c. Label 0 is background.
func labelComponents(m *Mask, c Class, connectivity int) (labels []int32, n int) {
	src := gocv.NewMatWithSize(m.Height, m.Width, gocv.MatTypeCV8U)
	defer src.Close()
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			var v uint8
			if m.At(x, y) == c {
				v = 255
			}
			src.SetUCharAt(y, x, v)
		}
	}

	lbl := gocv.NewMat()
	defer lbl.Close()
	n = gocv.ConnectedComponentsWithParams(src, &lbl, connectivity, gocv.MatTypeCV32S, gocv.CCL_DEFAULT)

	labels = make([]int32, m.Width*m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			labels[y*m.Width+x] = lbl.GetIntAt(y, x)
		}
	}
	return labels, n
}

// removeSmallRegions relabels burned 8-connected regions with fewer than
// minArea pixels as unburned.
func removeSmallRegions(m *Mask, minArea int) (regions, pixels int) {
	labels, n := labelComponents(m, Burned, 8)
	if n <= 1 {
		return 0, 0
	}

	area := make([]int, n)
	for _, l := range labels {
		area[l]++
	}

	for l := 1; l < n; l++ {
		if area[l] < minArea {
			regions++
		}
	}
	for i, l := range labels {
		if l > 0 && area[l] < minArea {
			m.Classes[i] = Unburned
			pixels++
		}
	}
	return regions, pixels
}

// fillHoles relabels unburned 4-connected regions of at most maxArea
// pixels as burned when the region is enclosed by burned pixels only: it
// must not touch the raster edge or any excluded pixel.
func fillHoles(m *Mask, maxArea int) (holes, pixels int) {
	labels, n := labelComponents(m, Unburned, 4)
	if n <= 1 {
		return 0, 0
	}

	area := make([]int, n)
	open := make([]bool, n)
	open[0] = true

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			l := labels[y*m.Width+x]
			if l == 0 {
				continue
			}
			area[l]++
			if x == 0 || y == 0 || x == m.Width-1 || y == m.Height-1 {
				open[l] = true
				continue
			}
			if m.At(x-1, y) == Excluded || m.At(x+1, y) == Excluded ||
				m.At(x, y-1) == Excluded || m.At(x, y+1) == Excluded {
				open[l] = true
			}
		}
	}

	fill := make([]bool, n)
	for l := 1; l < n; l++ {
		if !open[l] && area[l] <= maxArea {
			fill[l] = true
			holes++
		}
	}
	for i, l := range labels {
		if fill[l] {
			m.Classes[i] = Burned
			pixels++
		}
	}
	return holes, pixels
}
