package geotiff

import (
	"fmt"
	"os"
	"path/filepath"

	"burnscar/pkg/geometry"

	"github.com/airbusgeo/godal"
)

// Output no-data values.
const (
	FloatNoData = -9999.0
	ClassNoData = 255
)

var creationOptions = []string{
	"TILED=YES",
	"BLOCKXSIZE=256",
	"BLOCKYSIZE=256",
	"COMPRESS=DEFLATE",
}

// WriteFloat writes a single-band Float32 GeoTIFF. Pixels where valid is
// false are written as FloatNoData.
func WriteFloat(path string, grid geometry.Grid, description string, data []float64, valid []bool) error {
	if len(data) != grid.Len() || len(valid) != grid.Len() {
		return fmt.Errorf("write %s: %d samples for a %dx%d grid", path, len(data), grid.Width, grid.Height)
	}
	buf := make([]float32, len(data))
	for i, v := range data {
		if valid[i] {
			buf[i] = float32(v)
		} else {
			buf[i] = FloatNoData
		}
	}
	return create(path, grid, godal.Float32, description, FloatNoData, func(b godal.Band) error {
		return b.Write(0, 0, buf, grid.Width, grid.Height)
	})
}

// WriteBytes writes a single-band Byte GeoTIFF whose no-data value is
// ClassNoData.
func WriteBytes(path string, grid geometry.Grid, description string, data []uint8) error {
	if len(data) != grid.Len() {
		return fmt.Errorf("write %s: %d samples for a %dx%d grid", path, len(data), grid.Width, grid.Height)
	}
	return create(path, grid, godal.Byte, description, ClassNoData, func(b godal.Band) error {
		return b.Write(0, 0, data, grid.Width, grid.Height)
	})
}

// create makes the dataset, georeferences it, runs write and closes it.
// The file is removed again if any step fails.
func create(path string, grid geometry.Grid, dtype godal.DataType, description string, nodata float64,
	write func(godal.Band) error) (err error) {

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ds, err := godal.Create(godal.GTiff, path, 1, dtype, grid.Width, grid.Height,
		godal.CreationOption(creationOptions...))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err = ds.SetGeoTransform(grid.Transform.GDAL()); err != nil {
		return fmt.Errorf("set geotransform on %s: %w", path, err)
	}
	if err = ds.SetProjection(grid.CRS); err != nil {
		return fmt.Errorf("set projection on %s: %w", path, err)
	}

	band := ds.Bands()[0]
	if err = band.SetNoData(nodata); err != nil {
		return fmt.Errorf("set nodata on %s: %w", path, err)
	}
	if description != "" {
		if err = band.SetDescription(description); err != nil {
			return fmt.Errorf("set description on %s: %w", path, err)
		}
	}
	if err = write(band); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
