package rbr

import (
	"burnscar/internal/raster"
)

// Exclusion unions confounder masks (water, layover/shadow, incidence
// bound). A pixel is excluded when any mask marks it; the order masks are
// supplied in has no effect. Nil masks are ignored; with no masks at all
// the result is an empty mask of the given size.
func Exclusion(width, height int, masks ...*raster.Mask) (*raster.Mask, error) {
	return raster.NewMask(width, height).Or(masks...)
}

// IncidenceMask excludes pixels whose local incidence angle (degrees) lies
// outside [minDeg, maxDeg] or is unknown.
func IncidenceMask(angles *raster.Band, minDeg, maxDeg float64) *raster.Mask {
	m := raster.NewMask(angles.Width, angles.Height)
	for i, v := range angles.Data {
		m.Bits[i] = !angles.Valid[i] || v < minDeg || v > maxDeg
	}
	return m
}
