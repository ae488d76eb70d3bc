// Package speckle reduces multiplicative speckle before the burn ratio:
// multi-temporal averaging per epoch and an optional spatial boxcar.
package speckle

import (
	"burnscar/internal/raster"
	"burnscar/pkg/geometry"
)

// Mean returns the pixel-wise arithmetic mean of same-shape linear bands.
// Only valid samples contribute; a pixel valid in no input stays invalid.
// count holds the number of contributing samples per pixel.
func Mean(path string, bands []*raster.Band) (mean *raster.Band, count []int, err error) {
	if len(bands) == 0 {
		return nil, nil, &raster.BandMismatchError{Path: path, Detail: "no bands to average"}
	}
	ref := bands[0]
	for _, b := range bands {
		if err := raster.CheckShape(path, ref, b); err != nil {
			return nil, nil, err
		}
		if b.Domain != raster.DomainLinear {
			return nil, nil, &raster.DomainAmbiguityError{Path: path, Pol: b.Pol,
				Reason: "averaging requires linear power, got " + b.Domain.String()}
		}
	}

	sum := make([]float64, ref.Len())
	count = make([]int, ref.Len())
	for _, b := range bands {
		for i, v := range b.Data {
			if b.Valid[i] {
				sum[i] += v
				count[i]++
			}
		}
	}

	mean = raster.NewBand(ref.Pol, raster.DomainLinear, ref.Width, ref.Height)
	for i, n := range count {
		if n > 0 {
			mean.Data[i] = sum[i] / float64(n)
			mean.Valid[i] = true
		}
	}
	return mean, count, nil
}

// Composite is the per-polarization average of one epoch.
type Composite struct {
	Pol     raster.Polarization
	Grid    geometry.Grid
	Band    *raster.Band
	Sources []string // contributing files, in input order
	Pixels  int      // pixels valid in at least one source
}

// CompositeOf averages pol over every raster of an epoch that carries it.
// All rasters must be co-registered with the first one; rasters lacking
// pol are skipped.
func CompositeOf(epoch string, rasters []*raster.Raster, pol raster.Polarization) (*Composite, error) {
	if len(rasters) == 0 {
		return nil, &raster.BandMismatchError{Path: epoch, Want: pol}
	}
	ref := rasters[0].Grid
	for _, r := range rasters[1:] {
		if err := raster.CheckGrid(ref, r.Path, r.Grid); err != nil {
			return nil, err
		}
	}

	var bands []*raster.Band
	var sources []string
	for _, r := range rasters {
		b, ok := r.Bands[pol]
		if !ok {
			continue
		}
		bands = append(bands, b)
		sources = append(sources, r.Path)
	}
	if len(bands) == 0 {
		return nil, &raster.BandMismatchError{Path: epoch, Want: pol}
	}

	mean, _, err := Mean(epoch, bands)
	if err != nil {
		return nil, err
	}
	return &Composite{
		Pol:     pol,
		Grid:    ref,
		Band:    mean,
		Sources: sources,
		Pixels:  mean.ValidCount(),
	}, nil
}
