package geometry

import (
	"fmt"
	"math"
	"strings"
)

// TransformTolerance is the relative tolerance used when comparing
// geotransforms read back from files.
const TransformTolerance = 1e-9

// SameCRS decides whether two CRS definitions are equivalent. The default
// compares trimmed strings; a package with a projection engine may replace
// it at init time.
var SameCRS = func(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// Grid describes the pixel lattice of a raster: its size, its
// pixel-to-map transform and its coordinate reference system (WKT).
type Grid struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Transform AffineTransform `json:"transform"`
	CRS       string          `json:"crs"`
}

// Len returns the number of pixels in the grid.
func (g Grid) Len() int {
	return g.Width * g.Height
}

// SameShape reports whether both grids have identical dimensions.
func (g Grid) SameShape(other Grid) bool {
	return g.Width == other.Width && g.Height == other.Height
}

// Extent is the map-space bounding box of a grid.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// Extent returns the bounding box of the outer pixel corners.
func (g Grid) Extent() Extent {
	e := Extent{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	w, h := float64(g.Width), float64(g.Height)
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		p := g.Transform.ToMap(c[0], c[1])
		e.MinX, e.MaxX = math.Min(e.MinX, p.X), math.Max(e.MaxX, p.X)
		e.MinY, e.MaxY = math.Min(e.MinY, p.Y), math.Max(e.MaxY, p.Y)
	}
	return e
}

// Check compares two grids and returns a description of the first
// difference found, or "" when they are co-registered.
func (g Grid) Check(other Grid) string {
	if !g.SameShape(other) {
		return fmt.Sprintf("shape %dx%d != %dx%d", g.Width, g.Height, other.Width, other.Height)
	}
	if !g.Transform.Equal(other.Transform, TransformTolerance) {
		return fmt.Sprintf("transform %v != %v", g.Transform.GDAL(), other.Transform.GDAL())
	}
	if !SameCRS(g.CRS, other.CRS) {
		return "coordinate reference systems differ"
	}
	return ""
}

// String returns a short human-readable description.
func (g Grid) String() string {
	gt := g.Transform.GDAL()
	return fmt.Sprintf("%dx%d origin=(%.6f, %.6f) pixel=(%.6f, %.6f)",
		g.Width, g.Height, gt[0], gt[3], gt[1], gt[5])
}
