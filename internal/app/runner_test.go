package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"burnscar/internal/burnmask"
	"burnscar/internal/config"
	"burnscar/internal/geotiff"
	"burnscar/internal/project"
	"burnscar/internal/raster"
	"burnscar/pkg/geometry"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(t *testing.T, w, h int) geometry.Grid {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(32610)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)
	return geometry.Grid{
		Width:     w,
		Height:    h,
		Transform: geometry.FromGDAL([6]float64{600000, 10, 0, 4300000, 0, -10}),
		CRS:       wkt,
	}
}

// writeUniform writes a single-band backscatter file with every pixel v.
func writeUniform(t *testing.T, path string, grid geometry.Grid, pol raster.Polarization, v float64) {
	t.Helper()
	b := raster.Uniform(pol, raster.DomainLinear, grid.Width, grid.Height, v)
	require.NoError(t, geotiff.WriteFloat(path, grid, string(pol), b.Data, b.Valid))
}

func linearConfig(out string) config.Config {
	cfg := config.Default()
	cfg.Domain = "linear"
	cfg.OutDir = out
	return cfg
}

func TestDetectUniformScene(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 10, 10)
	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")
	writeUniform(t, before, grid, raster.VV, 0.1)
	writeUniform(t, after, grid, raster.VV, 0.02)

	out := filepath.Join(dir, "out")
	r := New(linearConfig(out), nil)
	r.Before, r.After = before, after

	m, err := r.Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, r.RunID(), m.RunID)
	assert.Equal(t, string(burnmask.RuleSingle), m.Rule)
	assert.Equal(t, []string{"VV"}, m.RuleBands)
	assert.Equal(t, burnmask.Counts{Burned: 100}, *m.Counts)
	assert.InDelta(t, -2.0/3.0, m.Stats["VV"].Median, 1e-6)

	for _, name := range []string{RatioName(raster.VV), BurnMaskName, project.ManifestName} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, RatioName(raster.VH)))

	back, err := project.Load(filepath.Join(out, project.ManifestName))
	require.NoError(t, err)
	require.Len(t, back.Inputs, 2)
	assert.Equal(t, "before", back.Inputs[0].Epoch)
	assert.Equal(t, filepath.Join("..", "before.tif"), back.Inputs[0].Path)
	require.Len(t, back.Outputs, 2)
	assert.Equal(t, "rbr", back.Outputs[0].Kind)
	assert.Equal(t, "burn_mask", back.Outputs[1].Kind)

	// The written ratio carries the same grid and values.
	rs, err := geotiff.Open(filepath.Join(out, RatioName(raster.VV)), geotiff.Options{
		Domain: raster.DomainLinear,
		Bands:  []raster.Polarization{raster.VV},
	})
	require.NoError(t, err)
	assert.Empty(t, grid.Check(rs.Grid))
	v, ok := rs.Bands[raster.VV].At(5, 5)
	require.True(t, ok)
	assert.InDelta(t, -2.0/3.0, v, 1e-6)
}

func TestDetectIdempotent(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 12, 8)
	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")

	// Burned band on the left half only.
	b := raster.Uniform(raster.VH, raster.DomainLinear, grid.Width, grid.Height, 0.05)
	a := b.Clone()
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width/2; x++ {
			a.Data[y*grid.Width+x] = 0.01
		}
	}
	require.NoError(t, geotiff.WriteFloat(before, grid, "VH", b.Data, b.Valid))
	require.NoError(t, geotiff.WriteFloat(after, grid, "VH", a.Data, a.Valid))

	out := filepath.Join(dir, "out")
	var runs []*project.Manifest
	for i := 0; i < 2; i++ {
		r := New(linearConfig(out), nil)
		r.Before, r.After = before, after
		m, err := r.Detect(context.Background())
		require.NoError(t, err)
		runs = append(runs, m)
	}

	assert.NotEqual(t, runs[0].RunID, runs[1].RunID)
	assert.Equal(t, *runs[0].Counts, *runs[1].Counts)
	assert.Equal(t, runs[0].Stats, runs[1].Stats)
	assert.Equal(t, 48, runs[0].Counts.Burned)
}

func TestDetectCoregistrationMismatchWritesNothing(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 10, 10)
	shifted := grid
	shifted.Transform = geometry.FromGDAL([6]float64{600010, 10, 0, 4300000, 0, -10})

	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")
	writeUniform(t, before, grid, raster.VV, 0.1)
	writeUniform(t, after, shifted, raster.VV, 0.02)

	out := filepath.Join(dir, "out")
	r := New(linearConfig(out), nil)
	r.Before, r.After = before, after

	_, err := r.Detect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrShapeMismatch)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output directory expected")
}

func TestDetectWaterMaskExcludes(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 10, 10)
	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")
	writeUniform(t, before, grid, raster.VV, 0.1)
	writeUniform(t, after, grid, raster.VV, 0.02)

	water := make([]uint8, grid.Len())
	water[0] = 1
	waterPath := filepath.Join(dir, "water.tif")
	require.NoError(t, geotiff.WriteBytes(waterPath, grid, "water", water))

	cfg := linearConfig(filepath.Join(dir, "out"))
	cfg.Masks.Water = waterPath
	cfg.MinRegion = 0
	r := New(cfg, nil)
	r.Before, r.After = before, after

	m, err := r.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, burnmask.Counts{Burned: 99, Excluded: 1}, *m.Counts)
}

func TestRatioWritesOnlyRatios(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 6, 6)
	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")
	writeUniform(t, before, grid, raster.VV, 0.2)
	writeUniform(t, after, grid, raster.VV, 0.2)

	out := filepath.Join(dir, "out")
	r := New(linearConfig(out), nil)
	r.Before, r.After = before, after

	m, err := r.Ratio(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m.Counts)
	assert.InDelta(t, 0, m.Stats["VV"].Max, 1e-9)
	assert.FileExists(t, filepath.Join(out, RatioName(raster.VV)))
	assert.NoFileExists(t, filepath.Join(out, BurnMaskName))
}

func TestAverageFolder(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "late"), 0o755))
	grid := testGrid(t, 4, 4)

	writeUniform(t, filepath.Join(in, "s1_20230701_vv.tif"), grid, raster.VV, 0.1)
	writeUniform(t, filepath.Join(in, "s1_20230713_vv.tif"), grid, raster.VV, 0.3)
	writeUniform(t, filepath.Join(in, "s1_20230718_vv.tif"), grid, raster.VV, 0.04)
	writeUniform(t, filepath.Join(in, "late", "s1_20230730_vv.tif"), grid, raster.VV, 0.5)

	out := filepath.Join(dir, "out")
	cfg := linearConfig(out)
	cfg.Cutoff = "2023-07-18"

	r := New(cfg, nil)
	r.Folder = in
	m, err := r.Average(context.Background())
	require.NoError(t, err)
	// Not recursive: the file under late/ is ignored and the cutoff day
	// itself falls after.
	require.Len(t, m.Inputs, 3)
	assert.Equal(t, "after", m.Inputs[2].Epoch)
	assert.Equal(t, "2023-07-18", m.Inputs[2].Acquired)

	avg, err := geotiff.Open(filepath.Join(out, "VV_before.tif"), geotiff.Options{Domain: raster.DomainLinear})
	require.NoError(t, err)
	v, ok := avg.Bands[raster.VV].At(1, 1)
	require.True(t, ok)
	assert.InDelta(t, 0.2, v, 1e-6)

	cfg.Recursive = true
	r = New(cfg, nil)
	r.Folder = in
	m, err = r.Average(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Inputs, 4)

	avg, err = geotiff.Open(filepath.Join(out, "VV_after.tif"), geotiff.Options{Domain: raster.DomainLinear})
	require.NoError(t, err)
	v, _ = avg.Bands[raster.VV].At(0, 0)
	assert.InDelta(t, 0.27, v, 1e-6)
}

func TestFolderNeedsCutoff(t *testing.T) {
	r := New(linearConfig(t.TempDir()), nil)
	r.Folder = t.TempDir()
	_, err := r.Detect(context.Background())
	assert.ErrorContains(t, err, "cutoff")
}

func TestAverageFolderSkipsUndated(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 4, 4)
	writeUniform(t, filepath.Join(dir, "s1_20230701_vh.tif"), grid, raster.VH, 0.1)
	writeUniform(t, filepath.Join(dir, "s1_20230720_vh.tif"), grid, raster.VH, 0.05)
	writeUniform(t, filepath.Join(dir, "scene_vh.tif"), grid, raster.VH, 0.9)

	cfg := linearConfig(filepath.Join(dir, "out"))
	cfg.Cutoff = "2023-07-18"
	r := New(cfg, nil)
	r.Folder = dir

	m, err := r.Average(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Inputs, 2)
	for _, in := range m.Inputs {
		assert.NotContains(t, in.Path, "scene_vh")
	}

	// Only undated files left.
	only := t.TempDir()
	writeUniform(t, filepath.Join(only, "scene_vh.tif"), grid, raster.VH, 0.9)
	r = New(cfg, nil)
	r.Folder = only
	_, err = r.Average(context.Background())
	assert.ErrorContains(t, err, "no dated acquisitions")
}

func TestCancelledBeforeWrite(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 4, 4)
	before := filepath.Join(dir, "before.tif")
	after := filepath.Join(dir, "after.tif")
	writeUniform(t, before, grid, raster.VV, 0.1)
	writeUniform(t, after, grid, raster.VV, 0.02)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(dir, "out")
	r := New(linearConfig(out), nil)
	r.Before, r.After = before, after
	_, err := r.Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(out, BurnMaskName))
}

func TestPersistFailureLeavesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	grid := testGrid(t, 2, 2)
	b := raster.Uniform(raster.VV, raster.DomainLinear, 2, 2, 0.1)
	r := New(linearConfig(dir), nil)

	outs := []pending{
		floatOutput(dir, "VV_before.tif", "average", raster.VV, grid, b),
		{path: filepath.Join(dir, BurnMaskName), kind: "burn_mask", write: func(string) error {
			return errors.New("disk full")
		}},
	}
	err := r.persist(context.Background(), project.New(r.RunID(), "detect", "test"), outs)
	require.ErrorContains(t, err, "disk full")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, r.persist(context.Background(), project.New(r.RunID(), "average", "test"), outs[:1]))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"VV_before.tif", project.ManifestName}, names)
}

func TestIsProduct(t *testing.T) {
	for name, want := range map[string]bool{
		"burn_mask.tif":            true,
		"RBR_VH.tif":               true,
		"VV_before.tif":            true,
		"VH_after.tif":             true,
		"s1_20230701_vv.tif":       false,
		"S1A_20230701T0000_VH.tif": false,
	} {
		assert.Equal(t, want, isProduct(name), name)
	}
}

func TestDiscoverSkipsProductsAndNonTIFF(t *testing.T) {
	dir := t.TempDir()
	grid := testGrid(t, 2, 2)
	writeUniform(t, filepath.Join(dir, "s1_20230701_vv.tif"), grid, raster.VV, 0.1)
	writeUniform(t, filepath.Join(dir, "RBR_VV.tif"), grid, raster.VV, -0.5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes_20230702.tif"), []byte("not a raster"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	r := New(linearConfig(t.TempDir()), nil)
	paths, err := r.discover(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "s1_20230701_vv.tif")}, paths)
}
