package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"burnscar/internal/acqdate"
	"burnscar/internal/geotiff"
	"burnscar/internal/raster"
	"burnscar/internal/rbr"
	"burnscar/internal/speckle"
	"burnscar/pkg/geometry"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

const (
	beforeEpoch = acqdate.Before
	afterEpoch  = acqdate.After
)

// source is one ingested file as recorded in the manifest.
type source struct {
	Path     string
	Epoch    acqdate.Epoch
	Acquired time.Time
	Bands    []string
}

// inputs holds the per-epoch composites on a single shared grid.
type inputs struct {
	grid       geometry.Grid
	sources    []source
	composites map[acqdate.Epoch]map[raster.Polarization]*speckle.Composite
}

func (in *inputs) epochs() []acqdate.Epoch {
	return []acqdate.Epoch{beforeEpoch, afterEpoch}
}

func (in *inputs) bands(e acqdate.Epoch) map[raster.Polarization]*raster.Band {
	out := make(map[raster.Polarization]*raster.Band, len(in.composites[e]))
	for p, c := range in.composites[e] {
		out[p] = c.Band
	}
	return out
}

func (r *Runner) load(ctx context.Context) (*inputs, error) {
	var groups map[acqdate.Epoch][]*raster.Raster
	var err error
	if r.Folder != "" {
		groups, err = r.loadFolder(ctx)
	} else {
		groups, err = r.loadPair(ctx)
	}
	if err != nil {
		return nil, err
	}

	in := &inputs{composites: map[acqdate.Epoch]map[raster.Polarization]*speckle.Composite{}}
	for _, e := range in.epochs() {
		if len(groups[e]) == 0 {
			return nil, fmt.Errorf("no %s acquisitions", e)
		}
	}

	// Every input, both epochs, must share the first before-file's grid.
	in.grid = groups[beforeEpoch][0].Grid
	for _, e := range in.epochs() {
		for _, rs := range groups[e] {
			if err := raster.CheckGrid(in.grid, rs.Path, rs.Grid); err != nil {
				return nil, err
			}
			var pols []string
			for _, p := range rs.Polarizations() {
				pols = append(pols, string(p))
			}
			in.sources = append(in.sources, source{Path: rs.Path, Epoch: e, Acquired: rs.Acquired, Bands: pols})
		}
	}

	for _, e := range in.epochs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		set := map[raster.Polarization]*speckle.Composite{}
		for _, pol := range raster.Polarizations {
			c, err := speckle.CompositeOf(string(e), groups[e], pol)
			if errors.Is(err, raster.ErrBandMismatch) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if r.Config.Boxcar > 1 {
				if c.Band, err = speckle.Boxcar(c.Band, r.Config.Boxcar); err != nil {
					return nil, err
				}
			}
			r.log.Infow("composite", "epoch", e, "pol", pol, "sources", len(c.Sources), "pixels", c.Pixels)
			set[pol] = c
		}
		if len(set) == 0 {
			return nil, &raster.BandMismatchError{Path: string(e), Detail: "no polarisation present in every " + string(e) + " acquisition"}
		}
		in.composites[e] = set
	}
	return in, nil
}

func (r *Runner) loadPair(ctx context.Context) (map[acqdate.Epoch][]*raster.Raster, error) {
	groups := map[acqdate.Epoch][]*raster.Raster{}
	for _, side := range []struct {
		epoch acqdate.Epoch
		path  string
	}{{beforeEpoch, r.Before}, {afterEpoch, r.After}} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs, err := r.open(side.path, side.epoch)
		if err != nil {
			return nil, err
		}
		groups[side.epoch] = []*raster.Raster{rs}
	}

	b, a := groups[beforeEpoch][0].Acquired, groups[afterEpoch][0].Acquired
	if !b.IsZero() && !a.IsZero() && !b.Before(a) {
		r.log.Warnw("before acquisition is not earlier than after", "before", b.Format(acqdate.DateLayout),
			"after", a.Format(acqdate.DateLayout))
	}
	return groups, nil
}

func (r *Runner) loadFolder(ctx context.Context) (map[acqdate.Epoch][]*raster.Raster, error) {
	cutoff, _, err := r.Config.CutoffDate()
	if err != nil {
		return nil, err
	}
	paths, err := r.discover(r.Folder, r.Config.Recursive)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no GeoTIFF files in %s", r.Folder)
	}

	var acqs []acqdate.Acquisition
	for _, p := range paths {
		d, ok, err := geotiff.ReadDate(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.log.Warnw("no acquisition date, skipped", "path", p)
			continue
		}
		acqs = append(acqs, acqdate.Acquisition{Path: p, Date: d})
	}
	if len(acqs) == 0 {
		return nil, fmt.Errorf("no dated acquisitions in %s", r.Folder)
	}
	before, after := acqdate.Partition(acqs, cutoff)
	r.log.Infow("partitioned", "path", r.Folder, "cutoff", r.Config.Cutoff, "before", len(before), "after", len(after))

	groups := map[acqdate.Epoch][]*raster.Raster{}
	for e, list := range map[acqdate.Epoch][]acqdate.Acquisition{beforeEpoch: before, afterEpoch: after} {
		for _, a := range list {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rs, err := r.open(a.Path, e)
			if err != nil {
				return nil, err
			}
			groups[e] = append(groups[e], rs)
		}
	}
	return groups, nil
}

func (r *Runner) open(path string, e acqdate.Epoch) (*raster.Raster, error) {
	d, err := r.Config.DomainFor(e)
	if err != nil {
		return nil, err
	}
	rs, err := geotiff.Open(path, geotiff.Options{
		Domain:      d,
		Bands:       r.Config.DeclaredBands(),
		CheckDomain: r.Config.DomainCheck,
	})
	if err != nil {
		return nil, err
	}
	r.log.Infow("loaded", "path", path, "epoch", e, "pols", rs.Polarizations(), "grid", rs.Grid.String())
	return rs, nil
}

// discover lists GeoTIFFs under dir, skipping products a previous run may
// have written there and files whose content is not TIFF.
func (r *Runner) discover(dir string, recursive bool) ([]string, error) {
	pattern := "*.{tif,tiff,TIF,TIFF}"
	if recursive {
		pattern = "**/" + pattern
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []string
	for _, m := range matches {
		if isProduct(filepath.Base(m)) {
			continue
		}
		path := filepath.Join(dir, filepath.FromSlash(m))
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("sniff %s: %w", path, err)
		}
		if !mt.Is("image/tiff") {
			r.log.Warnw("not a TIFF, skipped", "path", path, "mime", mt.String())
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// confounders unions the configured exclusion rasters, nil when none is set.
func (r *Runner) confounders(grid geometry.Grid) (*raster.Mask, error) {
	mc := r.Config.Masks
	var masks []*raster.Mask
	for _, p := range []string{mc.Water, mc.Layover} {
		if p == "" {
			continue
		}
		m, err := geotiff.ReadMask(p, grid)
		if err != nil {
			return nil, err
		}
		r.log.Infow("mask", "path", p, "excluded", m.Count())
		masks = append(masks, m)
	}
	if mc.Incidence != "" {
		angles, err := geotiff.ReadAngles(mc.Incidence, grid)
		if err != nil {
			return nil, err
		}
		m := rbr.IncidenceMask(angles, mc.IncidenceMin, mc.IncidenceMax)
		r.log.Infow("incidence mask", "path", mc.Incidence, "min", mc.IncidenceMin, "max", mc.IncidenceMax,
			"excluded", m.Count())
		masks = append(masks, m)
	}
	if len(masks) == 0 {
		return nil, nil
	}
	return rbr.Exclusion(grid.Width, grid.Height, masks...)
}
