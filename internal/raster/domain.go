package raster

import (
	"math"
	"strings"
)

// Domain tags the unit system of backscatter samples. It is set once at
// ingestion from an explicit flag and travels with every band.
type Domain int

const (
	DomainUnknown Domain = iota
	DomainLinear         // linear power (sigma0 / gamma0)
	DomainDB             // 10*log10 of linear power
)

func (d Domain) String() string {
	switch d {
	case DomainLinear:
		return "linear"
	case DomainDB:
		return "db"
	default:
		return "unknown"
	}
}

// ParseDomain converts a configuration flag into a Domain. An empty or
// unrecognised flag is a DomainAmbiguityError: the domain is never guessed.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "lin":
		return DomainLinear, nil
	case "db", "already-db":
		return DomainDB, nil
	case "":
		return DomainUnknown, &DomainAmbiguityError{Reason: "domain flag missing (want linear or db)"}
	default:
		return DomainUnknown, &DomainAmbiguityError{Reason: "unrecognised domain flag " + s}
	}
}

// ToLinear converts a dB band to linear power: 10^(dB/10).
// A linear band is returned as a copy.
func ToLinear(b *Band) *Band {
	out := b.Clone()
	if b.Domain != DomainDB {
		return out
	}
	out.Domain = DomainLinear
	for i, v := range b.Data {
		if !b.Valid[i] {
			continue
		}
		out.Data[i] = math.Pow(10, v/10)
		if math.IsInf(out.Data[i], 0) {
			out.Valid[i] = false
			out.Data[i] = 0
		}
	}
	return out
}

// ToDB converts a linear band to dB. Non-positive samples have no
// logarithm and become invalid.
func ToDB(b *Band) *Band {
	out := b.Clone()
	if b.Domain != DomainLinear {
		return out
	}
	out.Domain = DomainDB
	for i, v := range b.Data {
		if !b.Valid[i] {
			continue
		}
		if v <= 0 {
			out.Valid[i] = false
			out.Data[i] = 0
			continue
		}
		out.Data[i] = 10 * math.Log10(v)
	}
	return out
}

// Linearize returns b in the linear domain, failing when its domain was
// never declared.
func Linearize(path string, b *Band) (*Band, error) {
	switch b.Domain {
	case DomainLinear, DomainDB:
		return ToLinear(b), nil
	default:
		return nil, &DomainAmbiguityError{Path: path, Pol: b.Pol, Reason: "band has no declared domain"}
	}
}

// CheckDomain verifies the declared domain against the samples. Linear
// power cannot be negative; dB backscatter confined entirely to [0, 1] is
// almost certainly linear data mislabelled as dB.
func CheckDomain(path string, b *Band) error {
	var n, negative, unit int
	for i, v := range b.Data {
		if !b.Valid[i] {
			continue
		}
		n++
		if v < 0 {
			negative++
		}
		if v >= 0 && v <= 1 {
			unit++
		}
	}
	if n == 0 {
		return nil
	}

	switch b.Domain {
	case DomainLinear:
		if negative > 0 {
			return &DomainAmbiguityError{Path: path, Pol: b.Pol,
				Reason: "declared linear but contains negative samples"}
		}
	case DomainDB:
		if unit == n {
			return &DomainAmbiguityError{Path: path, Pol: b.Pol,
				Reason: "declared dB but every sample lies in [0, 1]"}
		}
	default:
		return &DomainAmbiguityError{Path: path, Pol: b.Pol, Reason: "band has no declared domain"}
	}
	return nil
}
