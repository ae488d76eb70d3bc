// Package geotiff reads and writes georeferenced rasters through GDAL.
package geotiff

import (
	"math"
	"strings"
	"time"

	"burnscar/internal/acqdate"
	"burnscar/internal/raster"
	"burnscar/pkg/geometry"

	"github.com/airbusgeo/godal"
)

func init() {
	godal.RegisterAll()
	geometry.SameCRS = sameCRS
}

// sameCRS compares two WKT definitions semantically, so that WKT flavours
// GDAL writes and reads back for the same CRS are not reported as a
// mismatch.
func sameCRS(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	sa, err := godal.NewSpatialRefFromWKT(a)
	if err != nil {
		return false
	}
	defer sa.Close()
	sb, err := godal.NewSpatialRefFromWKT(b)
	if err != nil {
		return false
	}
	defer sb.Close()
	return sa.IsSame(sb)
}

// AcquisitionKey is the dataset metadata item consulted when the file name
// carries no date.
const AcquisitionKey = "ACQUISITION_DATE"

// Options controls how a backscatter file is ingested.
type Options struct {
	// Domain is the declared unit system of the samples. Required.
	Domain raster.Domain
	// Bands optionally declares the polarization of each band in file
	// order, bypassing metadata lookup.
	Bands []raster.Polarization
	// CheckDomain verifies the declared domain against the samples.
	CheckDomain bool
}

// Open reads every VV/VH band of a backscatter GeoTIFF and returns them in
// the linear domain, with validity taken from the band no-data value and
// from non-finite samples.
func Open(path string, opts Options) (*raster.Raster, error) {
	if opts.Domain == raster.DomainUnknown {
		return nil, &raster.DomainAmbiguityError{Path: path, Reason: "domain flag missing (want linear or db)"}
	}

	ds, grid, err := openGrid(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	bands := ds.Bands()
	infos := make([]raster.BandInfo, len(bands))
	for i, b := range bands {
		md := map[string]string{}
		for _, k := range []string{"BAND_NAME", "name", "band_name", "long_name"} {
			if v := b.Metadata(k); v != "" {
				md[k] = v
			}
		}
		infos[i] = raster.BandInfo{Index: i + 1, Description: b.Description(), Metadata: md}
	}

	reg, err := raster.ResolveRegistry(path, infos, opts.Bands)
	if err != nil {
		return nil, err
	}

	r := &raster.Raster{
		Path:  path,
		Grid:  grid,
		Bands: make(map[raster.Polarization]*raster.Band, len(reg)),
	}
	if d, ok := acqdate.Parse(path); ok {
		r.Acquired = d
	} else if d, ok := acqdate.ParseMetadata(ds.Metadata(AcquisitionKey)); ok {
		r.Acquired = d
	}

	for _, pol := range raster.Polarizations {
		idx, ok := reg[pol]
		if !ok {
			continue
		}
		b, err := readBand(path, bands[idx-1], grid)
		if err != nil {
			return nil, err
		}
		b.Pol = pol
		b.Domain = opts.Domain
		if opts.CheckDomain {
			if err := raster.CheckDomain(path, b); err != nil {
				return nil, err
			}
		}
		if r.Bands[pol], err = raster.Linearize(path, b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ReadMask reads band 1 of a confounder raster: valid non-zero samples
// are excluded. The mask must be co-registered with ref.
func ReadMask(path string, ref geometry.Grid) (*raster.Mask, error) {
	b, err := readAux(path, ref)
	if err != nil {
		return nil, err
	}
	m := raster.NewMask(b.Width, b.Height)
	for i, v := range b.Data {
		m.Bits[i] = b.Valid[i] && v != 0
	}
	return m, nil
}

// ReadAngles reads band 1 of an incidence-angle raster in degrees. The
// raster must be co-registered with ref.
func ReadAngles(path string, ref geometry.Grid) (*raster.Band, error) {
	return readAux(path, ref)
}

// ReadDate returns the acquisition date of a file without reading pixels:
// the file name first, then the ACQUISITION_DATE metadata item.
func ReadDate(path string) (time.Time, bool, error) {
	if d, ok := acqdate.Parse(path); ok {
		return d, true, nil
	}
	ds, _, err := openGrid(path)
	if err != nil {
		return time.Time{}, false, err
	}
	defer ds.Close()
	d, ok := acqdate.ParseMetadata(ds.Metadata(AcquisitionKey))
	return d, ok, nil
}

// ReadGrid returns only the georeferencing of a file.
func ReadGrid(path string) (geometry.Grid, error) {
	ds, grid, err := openGrid(path)
	if err != nil {
		return geometry.Grid{}, err
	}
	ds.Close()
	return grid, nil
}

// ReadFloat reads band 1 of any single-band product, such as an RBR
// raster, with its own grid.
func ReadFloat(path string) (*raster.Band, geometry.Grid, error) {
	grid, err := ReadGrid(path)
	if err != nil {
		return nil, geometry.Grid{}, err
	}
	b, err := readAux(path, grid)
	return b, grid, err
}

func readAux(path string, ref geometry.Grid) (*raster.Band, error) {
	ds, grid, err := openGrid(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	if err := raster.CheckGrid(ref, path, grid); err != nil {
		return nil, err
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, &raster.FormatError{Path: path, Reason: "no raster bands"}
	}
	return readBand(path, bands[0], grid)
}

func openGrid(path string) (*godal.Dataset, geometry.Grid, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, geometry.Grid{}, &raster.FormatError{Path: path, Reason: "cannot open raster", Err: err}
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		return nil, geometry.Grid{}, &raster.FormatError{Path: path, Reason: "missing geotransform", Err: err}
	}
	wkt := ds.Projection()
	if wkt == "" {
		ds.Close()
		return nil, geometry.Grid{}, &raster.FormatError{Path: path, Reason: "missing coordinate reference system"}
	}

	st := ds.Structure()
	grid := geometry.Grid{
		Width:     st.SizeX,
		Height:    st.SizeY,
		Transform: geometry.FromGDAL(gt),
		CRS:       wkt,
	}
	if grid.Transform.Degenerate() {
		ds.Close()
		return nil, geometry.Grid{}, &raster.FormatError{Path: path, Reason: "degenerate geotransform"}
	}
	if grid.Len() == 0 || st.NBands == 0 {
		ds.Close()
		return nil, geometry.Grid{}, &raster.FormatError{Path: path, Reason: "empty raster"}
	}
	return ds, grid, nil
}

func readBand(path string, band godal.Band, grid geometry.Grid) (*raster.Band, error) {
	out := raster.NewBand("", raster.DomainUnknown, grid.Width, grid.Height)
	if err := band.Read(0, 0, out.Data, grid.Width, grid.Height); err != nil {
		return nil, &raster.FormatError{Path: path, Reason: "cannot read band", Err: err}
	}

	nd, hasND := band.NoData()
	hasND = hasND && !math.IsNaN(nd)
	for i, v := range out.Data {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
		case hasND && v == nd:
		default:
			out.Valid[i] = true
			continue
		}
		out.Data[i] = 0
	}
	return out, nil
}
