// Package geometry provides the georeferencing types shared by every raster stage.
package geometry

import (
	"math"
)

// Coord is a position in the map coordinates of a grid's CRS.
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AffineTransform represents a 2x3 affine transformation matrix mapping
// pixel/line coordinates to map coordinates.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// FromGDAL converts a GDAL geotransform
// (originX, pixelWidth, rowRotation, originY, columnRotation, pixelHeight).
func FromGDAL(gt [6]float64) AffineTransform {
	return AffineTransform{
		A: gt[1], B: gt[2], TX: gt[0],
		C: gt[4], D: gt[5], TY: gt[3],
	}
}

// GDAL returns the transform in GDAL geotransform order.
func (t AffineTransform) GDAL() [6]float64 {
	return [6]float64{t.TX, t.A, t.B, t.TY, t.C, t.D}
}

// ToMap maps fractional pixel/line coordinates to map coordinates.
// (0, 0) is the outer corner of the first pixel.
func (t AffineTransform) ToMap(col, row float64) Coord {
	return Coord{
		X: t.A*col + t.B*row + t.TX,
		Y: t.C*col + t.D*row + t.TY,
	}
}

// Equal reports whether both transforms agree coefficient by coefficient
// within a relative tolerance.
func (t AffineTransform) Equal(other AffineTransform, tol float64) bool {
	a, b := t.GDAL(), other.GDAL()
	for i := range a {
		scale := math.Max(1, math.Max(math.Abs(a[i]), math.Abs(b[i])))
		if math.Abs(a[i]-b[i]) > tol*scale {
			return false
		}
	}
	return true
}

// Degenerate reports whether the transform collapses the pixel lattice,
// as the all-zero transform of a file without georeferencing does.
func (t AffineTransform) Degenerate() bool {
	return t.A*t.D-t.B*t.C == 0
}
