package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"burnscar/internal/burnmask"
	"burnscar/internal/geotiff"
	"burnscar/internal/project"
	"burnscar/internal/raster"
	"burnscar/internal/rbr"
	"burnscar/pkg/geometry"
)

// Product file names.
const (
	BurnMaskName = "burn_mask.tif"
	ratioPrefix  = "RBR_"
)

// RatioName returns the file name of the RBR raster of pol.
func RatioName(pol raster.Polarization) string {
	return ratioPrefix + string(pol) + ".tif"
}

func isProduct(name string) bool {
	if name == BurnMaskName || strings.HasPrefix(name, ratioPrefix) {
		return true
	}
	for _, p := range raster.Polarizations {
		for _, e := range []string{string(beforeEpoch), string(afterEpoch)} {
			if name == fmt.Sprintf("%s_%s.tif", p, e) {
				return true
			}
		}
	}
	return false
}

// pending is an output whose pixels are fully computed but not yet on
// disk.
type pending struct {
	path  string
	kind  string
	pol   raster.Polarization
	write func(path string) error
}

func floatOutput(dir, name, kind string, pol raster.Polarization, grid geometry.Grid, b *raster.Band) pending {
	return pending{
		path: filepath.Join(dir, name),
		kind: kind,
		pol:  pol,
		write: func(path string) error {
			return geotiff.WriteFloat(path, grid, string(pol), b.Data, b.Valid)
		},
	}
}

func ratioOutputs(dir string, res *rbr.Result) []pending {
	var outs []pending
	for _, pol := range res.Polarizations() {
		ratio := res.Ratios[pol]
		outs = append(outs, pending{
			path: filepath.Join(dir, RatioName(pol)),
			kind: "rbr",
			pol:  pol,
			write: func(path string) error {
				return geotiff.WriteFloat(path, res.Grid, "RBR "+string(pol), ratio.Data, ratio.Valid)
			},
		})
	}
	return outs
}

func maskOutput(dir string, grid geometry.Grid, m *burnmask.Mask) pending {
	return pending{
		path: filepath.Join(dir, BurnMaskName),
		kind: "burn_mask",
		write: func(path string) error {
			data := make([]uint8, len(m.Classes))
			for i, c := range m.Classes {
				data[i] = uint8(c)
			}
			return geotiff.WriteBytes(path, grid, "burn mask (0 unburned, 1 burned, 255 excluded)", data)
		},
	}
}

// persist writes every pending output and the manifest under temporary
// names in the output directory, then renames them into place. A failed
// write leaves neither temporaries nor new products behind. Nothing is
// written once ctx is done.
func (r *Runner) persist(ctx context.Context, m *project.Manifest, outs []pending) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.outDir(), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var staged, placed []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range append(staged, placed...) {
			os.Remove(p)
		}
	}()

	mp := r.manifestPath()
	for _, o := range outs {
		tmp := r.tempPath(o.path)
		if err := o.write(tmp); err != nil {
			return err
		}
		staged = append(staged, tmp)
		m.AddOutput(mp, o.path, o.kind, string(o.pol))
	}
	tmp := r.tempPath(mp)
	if err := m.Save(tmp); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	staged = append(staged, tmp)
	if err := ctx.Err(); err != nil {
		return err
	}

	finals := make([]string, 0, len(outs)+1)
	for _, o := range outs {
		finals = append(finals, o.path)
	}
	finals = append(finals, mp)
	for i, final := range finals {
		if err := os.Rename(staged[0], final); err != nil {
			return fmt.Errorf("place %s: %w", final, err)
		}
		staged, placed = staged[1:], append(placed, final)
		if i < len(outs) {
			r.log.Infow("wrote", "path", final, "kind", outs[i].kind, "pol", outs[i].pol)
		} else {
			r.log.Infow("wrote", "path", final, "kind", "manifest")
		}
	}
	return nil
}

// tempPath is the hidden sibling a product is staged under before rename.
func (r *Runner) tempPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+r.runID+".tmp")
}
