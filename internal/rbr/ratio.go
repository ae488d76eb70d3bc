// Package rbr computes the SAR relative burn ratio
//
//	RBR = (after - before) / (after + before)
//
// per polarization in the linear power domain, together with the
// confounder exclusion mask used by the classifier.
package rbr

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"

	"burnscar/internal/raster"
	"burnscar/pkg/geometry"

	"golang.org/x/sync/errgroup"
)

// Ratio is the RBR grid of one polarization. Values lie in [-1, 1] wherever
// Valid is set; invalid pixels hold 0 and are written as no-data.
type Ratio struct {
	Pol    raster.Polarization
	Width  int
	Height int
	Data   []float64
	Valid  []bool
}

// Options tunes the computation.
type Options struct {
	// Workers is the number of row blocks computed concurrently.
	// Zero means runtime.NumCPU().
	Workers int
}

// Compute returns the RBR of a co-registered before/after pair. A pixel is
// invalid when it is invalid in either input, when either sample is
// negative (not linear power), or when after+before == 0.
func Compute(ctx context.Context, path string, before, after *raster.Band, opts Options) (*Ratio, error) {
	if err := raster.CheckShape(path, before, after); err != nil {
		return nil, err
	}
	for _, b := range []*raster.Band{before, after} {
		if b.Domain != raster.DomainLinear {
			return nil, &raster.DomainAmbiguityError{Path: path, Pol: b.Pol,
				Reason: "ratio requires linear power, got " + b.Domain.String()}
		}
	}

	out := &Ratio{
		Pol:    before.Pol,
		Width:  before.Width,
		Height: before.Height,
		Data:   make([]float64, before.Len()),
		Valid:  make([]bool, before.Len()),
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > out.Height {
		workers = out.Height
	}
	if workers < 1 {
		return out, nil
	}
	rowsPer := (out.Height + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for y0 := 0; y0 < out.Height; y0 += rowsPer {
		lo := y0 * out.Width
		hi := min(y0+rowsPer, out.Height) * out.Width
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ratioBlock(out, before, after, lo, hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ratioBlock fills pixels [lo, hi). Blocks never overlap.
func ratioBlock(out *Ratio, before, after *raster.Band, lo, hi int) {
	for i := lo; i < hi; i++ {
		if !before.Valid[i] || !after.Valid[i] {
			continue
		}
		b, a := before.Data[i], after.Data[i]
		if !finite(a) || !finite(b) || a < 0 || b < 0 {
			continue
		}
		den := a + b
		if den == 0 {
			continue
		}
		out.Data[i] = (a - b) / den
		out.Valid[i] = true
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Result holds the ratios of every polarization common to both epochs.
type Result struct {
	Grid        geometry.Grid
	Ratios      map[raster.Polarization]*Ratio
	Stats       map[raster.Polarization]Stats
	Confounders *raster.Mask
	Skipped     []raster.Polarization
}

// Polarizations returns the computed polarizations in canonical order.
func (r *Result) Polarizations() []raster.Polarization {
	var out []raster.Polarization
	for _, p := range raster.Polarizations {
		if _, ok := r.Ratios[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ComputeAll runs Compute for every polarization present in both epochs.
// Polarizations present in only one epoch are listed in Skipped; none in
// common is a BandMismatchError. confounders may be nil.
func ComputeAll(ctx context.Context, grid geometry.Grid, before, after map[raster.Polarization]*raster.Band,
	confounders *raster.Mask, opts Options) (*Result, error) {

	res := &Result{
		Grid:        grid,
		Ratios:      map[raster.Polarization]*Ratio{},
		Stats:       map[raster.Polarization]Stats{},
		Confounders: confounders,
	}
	if confounders == nil {
		res.Confounders = raster.NewMask(grid.Width, grid.Height)
	} else if confounders.Width != grid.Width || confounders.Height != grid.Height {
		return nil, &raster.ShapeMismatchError{Path: "confounders", Want: grid.String(),
			Got: geometry.Grid{Width: confounders.Width, Height: confounders.Height}.String(), Detail: "mask shape"}
	}

	for _, pol := range raster.Polarizations {
		b, okB := before[pol]
		a, okA := after[pol]
		if !okB || !okA {
			if okB || okA {
				res.Skipped = append(res.Skipped, pol)
			}
			continue
		}
		if b.Width != grid.Width || b.Height != grid.Height {
			return nil, &raster.ShapeMismatchError{Path: "before " + string(pol), Want: grid.String(),
				Got: geometry.Grid{Width: b.Width, Height: b.Height}.String(), Detail: "band shape"}
		}
		r, err := Compute(ctx, "RBR_"+string(pol), b, a, opts)
		if err != nil {
			return nil, err
		}
		res.Ratios[pol] = r
		res.Stats[pol] = Summarize(r)
	}

	if len(res.Ratios) == 0 {
		return nil, &raster.BandMismatchError{Path: "before/after",
			Detail: fmt.Sprintf("no polarisation in both epochs: before has [%s], after has [%s]", pols(before), pols(after))}
	}
	return res, nil
}

func pols(bands map[raster.Polarization]*raster.Band) string {
	var s []string
	for _, p := range raster.Polarizations {
		if _, ok := bands[p]; ok {
			s = append(s, string(p))
		}
	}
	return strings.Join(s, ",")
}
