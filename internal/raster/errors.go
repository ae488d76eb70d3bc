package raster

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrFormat          = errors.New("unreadable raster")
	ErrBandMismatch    = errors.New("polarization band missing")
	ErrShapeMismatch   = errors.New("rasters are not co-registered")
	ErrDomainAmbiguity = errors.New("ambiguous backscatter domain")
)

// FormatError reports a raster that cannot be decoded or lacks
// georeferencing.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// BandMismatchError reports a requested polarization that the raster does
// not carry. Want is empty when no single band was asked for; Detail then
// says what was missing.
type BandMismatchError struct {
	Path   string
	Want   Polarization
	Have   []Polarization
	Detail string
}

func (e *BandMismatchError) Error() string {
	var what string
	switch {
	case e.Want != "":
		what = fmt.Sprintf("band %s not found", e.Want)
	case e.Detail != "":
		what = e.Detail
	default:
		what = "no usable band"
	}
	if e.Want != "" && e.Detail != "" {
		what += ": " + e.Detail
	}
	if e.Have == nil {
		return fmt.Sprintf("%s: %s", e.Path, what)
	}
	return fmt.Sprintf("%s: %s (have [%s])", e.Path, what, joinPols(e.Have))
}

func joinPols(pols []Polarization) string {
	s := make([]string, len(pols))
	for i, p := range pols {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}

func (e *BandMismatchError) Is(target error) bool { return target == ErrBandMismatch }

// ShapeMismatchError reports two rasters that do not share grid shape,
// transform or CRS.
type ShapeMismatchError struct {
	Path   string
	Want   string
	Got    string
	Detail string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: not co-registered (%s): expected %s, got %s", e.Path, e.Detail, e.Want, e.Got)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// DomainAmbiguityError reports a missing domain flag or one contradicted
// by the sample values.
type DomainAmbiguityError struct {
	Path   string
	Pol    Polarization
	Reason string
}

func (e *DomainAmbiguityError) Error() string {
	var prefix string
	switch {
	case e.Path != "" && e.Pol != "":
		prefix = fmt.Sprintf("%s [%s]: ", e.Path, e.Pol)
	case e.Path != "":
		prefix = e.Path + ": "
	}
	return prefix + e.Reason
}

func (e *DomainAmbiguityError) Is(target error) bool { return target == ErrDomainAmbiguity }
