// Package raster provides the typed backscatter raster model: polarization
// bands with an explicit domain tag, validity masks and grid checks.
package raster

import (
	"fmt"
	"strings"
	"time"

	"burnscar/pkg/geometry"
)

// Polarization identifies a Sentinel-1 polarization channel.
type Polarization string

const (
	VV Polarization = "VV"
	VH Polarization = "VH"
)

// Polarizations lists the supported channels in output order.
var Polarizations = []Polarization{VV, VH}

// ParsePolarization accepts "vv"/"VV"/"vh"/"VH" with surrounding whitespace.
func ParsePolarization(s string) (Polarization, bool) {
	switch Polarization(strings.ToUpper(strings.TrimSpace(s))) {
	case VV:
		return VV, true
	case VH:
		return VH, true
	}
	return "", false
}

// Band is one polarization channel. Samples are row major; Valid marks the
// samples that carry data. Bands are treated as immutable: every transform
// returns a new Band.
type Band struct {
	Pol    Polarization
	Domain Domain
	Width  int
	Height int
	Data   []float64
	Valid  []bool
}

// NewBand allocates an all-invalid band.
func NewBand(pol Polarization, domain Domain, width, height int) *Band {
	return &Band{
		Pol:    pol,
		Domain: domain,
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
		Valid:  make([]bool, width*height),
	}
}

// Uniform returns a band where every pixel is valid and equal to v.
func Uniform(pol Polarization, domain Domain, width, height int, v float64) *Band {
	b := NewBand(pol, domain, width, height)
	for i := range b.Data {
		b.Data[i] = v
		b.Valid[i] = true
	}
	return b
}

// Clone returns a deep copy.
func (b *Band) Clone() *Band {
	c := *b
	c.Data = append([]float64(nil), b.Data...)
	c.Valid = append([]bool(nil), b.Valid...)
	return &c
}

// Len returns the number of pixels.
func (b *Band) Len() int { return b.Width * b.Height }

// At returns the sample at (x, y) and whether it is valid.
func (b *Band) At(x, y int) (float64, bool) {
	i := y*b.Width + x
	return b.Data[i], b.Valid[i]
}

// ValidCount returns the number of valid pixels.
func (b *Band) ValidCount() int {
	n := 0
	for _, ok := range b.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Raster is a georeferenced set of polarization bands read from one file.
type Raster struct {
	Path     string
	Grid     geometry.Grid
	Acquired time.Time // zero when unknown
	Bands    map[Polarization]*Band
}

// Band returns the requested polarization or a BandMismatchError.
func (r *Raster) Band(pol Polarization) (*Band, error) {
	if b, ok := r.Bands[pol]; ok {
		return b, nil
	}
	return nil, &BandMismatchError{Path: r.Path, Want: pol, Have: r.Polarizations()}
}

// Polarizations returns the carried polarizations in canonical order.
func (r *Raster) Polarizations() []Polarization {
	out := make([]Polarization, 0, len(r.Bands))
	for _, p := range Polarizations {
		if _, ok := r.Bands[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// CheckGrid returns a ShapeMismatchError when other is not co-registered
// with ref.
func CheckGrid(ref geometry.Grid, path string, other geometry.Grid) error {
	if diff := ref.Check(other); diff != "" {
		return &ShapeMismatchError{
			Path:   path,
			Want:   ref.String(),
			Got:    other.String(),
			Detail: diff,
		}
	}
	return nil
}

// CheckShape verifies two bands have identical dimensions.
func CheckShape(path string, a, b *Band) error {
	if a.Width != b.Width || a.Height != b.Height {
		return &ShapeMismatchError{
			Path:   path,
			Want:   dims(a.Width, a.Height),
			Got:    dims(b.Width, b.Height),
			Detail: "band shape",
		}
	}
	return nil
}

func dims(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
