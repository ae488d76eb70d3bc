package geotiff

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"burnscar/internal/raster"
	"burnscar/pkg/geometry"

	"github.com/airbusgeo/godal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utmGrid(t *testing.T, w, h int) geometry.Grid {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(32633)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)
	return geometry.Grid{
		Width:     w,
		Height:    h,
		Transform: geometry.FromGDAL([6]float64{500000, 10, 0, 4200000, 0, -10}),
		CRS:       wkt,
	}
}

// writeStack writes a multi-band Float32 file with the given band
// descriptions, every band filled with its value.
func writeStack(t *testing.T, path string, grid geometry.Grid, descs []string, values []float32, nodata *float64) {
	t.Helper()
	ds, err := godal.Create(godal.GTiff, path, len(descs), godal.Float32, grid.Width, grid.Height)
	require.NoError(t, err)
	require.NoError(t, ds.SetGeoTransform(grid.Transform.GDAL()))
	require.NoError(t, ds.SetProjection(grid.CRS))
	for i, b := range ds.Bands() {
		require.NoError(t, b.SetDescription(descs[i]))
		if nodata != nil {
			require.NoError(t, b.SetNoData(*nodata))
		}
		buf := make([]float32, grid.Len())
		for j := range buf {
			buf[j] = values[i]
		}
		if nodata != nil {
			buf[0] = float32(*nodata)
		}
		require.NoError(t, b.Write(0, 0, buf, grid.Width, grid.Height))
	}
	require.NoError(t, ds.Close())
}

func TestWriteFloatThenOpen(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 4, 3)
	path := filepath.Join(dir, "S1A_IW_GRDH_20230712T052311_VV.tif")

	data := make([]float64, grid.Len())
	valid := make([]bool, grid.Len())
	for i := range data {
		data[i] = 0.05 * float64(i+1)
		valid[i] = i != 5
	}
	require.NoError(t, WriteFloat(path, grid, "VV", data, valid))

	r, err := Open(path, Options{Domain: raster.DomainLinear})
	require.NoError(t, err)

	assert.Empty(t, r.Grid.Check(grid))
	assert.Equal(t, time.Date(2023, 7, 12, 0, 0, 0, 0, time.UTC), r.Acquired)
	require.Equal(t, []raster.Polarization{raster.VV}, r.Polarizations())

	vv := r.Bands[raster.VV]
	assert.Equal(t, raster.DomainLinear, vv.Domain)
	assert.False(t, vv.Valid[5])
	assert.InDelta(t, 0.05, vv.Data[0], 1e-6)
	assert.InDelta(t, 0.6, vv.Data[11], 1e-6)
}

func TestOpenMultiBandDB(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 3, 3)
	path := filepath.Join(dir, "after.tif")
	nd := -9999.0
	writeStack(t, path, grid, []string{"VH", "VV"}, []float32{-20, -10}, &nd)

	r, err := Open(path, Options{Domain: raster.DomainDB})
	require.NoError(t, err)

	vv, err := r.Band(raster.VV)
	require.NoError(t, err)
	vh, err := r.Band(raster.VH)
	require.NoError(t, err)

	assert.Equal(t, raster.DomainLinear, vv.Domain)
	assert.InDelta(t, 0.1, vv.Data[1], 1e-6)
	assert.InDelta(t, 0.01, vh.Data[1], 1e-7)
	assert.False(t, vv.Valid[0], "no-data honoured before conversion")
	assert.True(t, r.Acquired.IsZero())
}

func TestOpenDomainCheck(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 2, 2)
	path := filepath.Join(dir, "linear_mislabelled.tif")
	writeStack(t, path, grid, []string{"VV"}, []float32{0.2}, nil)

	_, err := Open(path, Options{Domain: raster.DomainDB, CheckDomain: true})
	assert.ErrorIs(t, err, raster.ErrDomainAmbiguity)

	_, err = Open(path, Options{Domain: raster.DomainDB})
	assert.NoError(t, err, "check is opt-in")

	_, err = Open(path, Options{})
	assert.ErrorIs(t, err, raster.ErrDomainAmbiguity)
}

func TestOpenDeclaredBands(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 2, 2)
	path := filepath.Join(dir, "stack.tif")
	writeStack(t, path, grid, []string{"", ""}, []float32{0.3, 0.03}, nil)

	r, err := Open(path, Options{Domain: raster.DomainLinear, Bands: []raster.Polarization{raster.VH, raster.VV}})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, r.Bands[raster.VH].Data[0], 1e-6)
	assert.InDelta(t, 0.03, r.Bands[raster.VV].Data[0], 1e-6)
}

func TestOpenFormatErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.tif"), Options{Domain: raster.DomainLinear})
	assert.ErrorIs(t, err, raster.ErrFormat)

	junk := filepath.Join(dir, "junk.tif")
	require.NoError(t, os.WriteFile(junk, []byte("not a tiff"), 0o644))
	_, err = Open(junk, Options{Domain: raster.DomainLinear})
	assert.ErrorIs(t, err, raster.ErrFormat)

	bare := filepath.Join(dir, "bare_VV.tif")
	ds, err := godal.Create(godal.GTiff, bare, 1, godal.Float32, 2, 2)
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	_, err = Open(bare, Options{Domain: raster.DomainLinear})
	assert.ErrorIs(t, err, raster.ErrFormat)
}

func TestReadMask(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 3, 1)
	path := filepath.Join(dir, "water.tif")
	require.NoError(t, WriteBytes(path, grid, "water", []uint8{0, 1, ClassNoData}))

	m, err := ReadMask(path, grid)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, m.Bits)

	other := utmGrid(t, 3, 2)
	_, err = ReadMask(path, other)
	assert.ErrorIs(t, err, raster.ErrShapeMismatch)
}

func TestWriteRejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 2, 2)
	path := filepath.Join(dir, "out", "RBR_VV.tif")

	err := WriteFloat(path, grid, "RBR_VV", []float64{1}, []bool{true})
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadGrid(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 5, 4)
	path := filepath.Join(dir, "mask.tif")
	require.NoError(t, WriteBytes(path, grid, "", make([]uint8, grid.Len())))

	got, err := ReadGrid(path)
	require.NoError(t, err)
	assert.Empty(t, grid.Check(got))
}

func TestReadGridDegenerateTransform(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.vrt")
	vrt := `<VRTDataset rasterXSize="2" rasterYSize="2">
  <SRS>EPSG:4326</SRS>
  <GeoTransform>0, 0, 0, 0, 0, 0</GeoTransform>
  <VRTRasterBand dataType="Float32" band="1"/>
</VRTDataset>`
	require.NoError(t, os.WriteFile(path, []byte(vrt), 0o644))

	_, err := ReadGrid(path)
	assert.ErrorIs(t, err, raster.ErrFormat)
	assert.ErrorContains(t, err, "degenerate geotransform")
}

func TestReadDate(t *testing.T) {
	dir := t.TempDir()
	grid := utmGrid(t, 2, 2)

	dated := filepath.Join(dir, "S1A_IW_GRDH_20230720T052311_VH.tif")
	undated := filepath.Join(dir, "scene_vh.tif")
	for _, p := range []string{dated, undated} {
		writeStack(t, p, grid, []string{"VH"}, []float32{0.1}, nil)
	}

	d, ok, err := ReadDate(dated)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 7, 20, 0, 0, 0, 0, time.UTC), d)

	_, ok, err = ReadDate(undated)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ReadDate(filepath.Join(dir, "missing.tif"))
	assert.ErrorIs(t, err, raster.ErrFormat)
}
