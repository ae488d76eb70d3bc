package raster

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

// BandInfo is the metadata of one source band as reported by the file.
type BandInfo struct {
	Index       int // 1-based
	Description string
	Metadata    map[string]string
}

// metadataKeys are the per-band metadata items that may name a
// polarization, in lookup order.
var metadataKeys = []string{"BAND_NAME", "name", "band_name", "long_name"}

// Registry maps each polarization found in a file to its 1-based band
// index. It is resolved once at ingestion; downstream stages only ever ask
// it for a polarization.
type Registry map[Polarization]int

// ResolveRegistry identifies the VV/VH bands of a file. When declared is
// non-empty it is the band order given by the caller and wins outright.
// Otherwise band descriptions, then band metadata, then a filename hint for
// single-band files, then the conventional [VV, VH] order for multi-band
// files are consulted.
func ResolveRegistry(path string, bands []BandInfo, declared []Polarization) (Registry, error) {
	reg := Registry{}

	if len(declared) > 0 {
		if len(declared) > len(bands) {
			return nil, &FormatError{Path: path,
				Reason: fmt.Sprintf("declared %d bands but file has %d", len(declared), len(bands))}
		}
		for i, p := range declared {
			if _, dup := reg[p]; dup {
				return nil, &FormatError{Path: path, Reason: fmt.Sprintf("polarization %s declared twice", p)}
			}
			reg[p] = i + 1
		}
		return reg, reg.Validate(path, len(bands))
	}

	claim := func(label string, index int) {
		if p, ok := ParsePolarization(label); ok {
			if _, taken := reg[p]; !taken {
				reg[p] = index
			}
		}
	}

	for _, b := range bands {
		claim(b.Description, b.Index)
	}
	for _, b := range bands {
		for _, k := range metadataKeys {
			claim(b.Metadata[k], b.Index)
		}
	}

	if len(bands) == 1 && len(reg) == 0 {
		if p, ok := polarizationFromFilename(path); ok {
			reg[p] = 1
		}
	}

	if len(bands) >= 2 && len(reg) == 0 {
		reg[VV] = 1
		reg[VH] = 2
	}

	if len(reg) == 0 {
		return nil, &FormatError{Path: path, Reason: "no VV or VH band could be identified"}
	}
	return reg, reg.Validate(path, len(bands))
}

// Validate rejects out-of-range indices and two polarizations sharing a
// band.
func (r Registry) Validate(path string, count int) error {
	seen := map[int]Polarization{}
	for _, p := range Polarizations {
		idx, ok := r[p]
		if !ok {
			continue
		}
		if idx < 1 || idx > count {
			return &FormatError{Path: path, Reason: fmt.Sprintf("band %d for %s out of range 1..%d", idx, p, count)}
		}
		if other, dup := seen[idx]; dup {
			return &FormatError{Path: path, Reason: fmt.Sprintf("band %d claimed by both %s and %s", idx, other, p)}
		}
		seen[idx] = p
	}
	return nil
}

// polarizationFromFilename looks for a standalone VV or VH token in the
// file name, or a VV/VH suffix on the last token as in "Sigma0VV". A name
// carrying both (e.g. "VV-VH") is ambiguous.
func polarizationFromFilename(path string) (Polarization, bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tokens := strings.FieldsFunc(strings.ToUpper(base), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var found []Polarization
	for i, tok := range tokens {
		if p, ok := ParsePolarization(tok); ok {
			found = append(found, p)
			continue
		}
		if i == len(tokens)-1 && len(tok) > 2 {
			if p, ok := ParsePolarization(tok[len(tok)-2:]); ok {
				found = append(found, p)
			}
		}
	}
	if len(found) == 0 {
		return "", false
	}
	for _, p := range found[1:] {
		if p != found[0] {
			return "", false
		}
	}
	return found[0], true
}
