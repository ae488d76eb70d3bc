package burnmask

import (
	"fmt"

	"burnscar/internal/raster"
)

// Rule combines the per-polarization decisions when both VV and VH ratios
// are available.
type Rule string

const (
	// RuleAuto picks RuleSingle when Params.Band is set, else RuleOr when
	// both bands exist and RuleSingle otherwise.
	RuleAuto Rule = ""
	// RuleSingle classifies from one band only (Params.Band).
	RuleSingle Rule = "single"
	// RuleAnd requires both bands to cross their thresholds (conservative).
	RuleAnd Rule = "and"
	// RuleOr accepts either band crossing its threshold.
	RuleOr Rule = "or"
)

// ParseRule accepts single, and, or, or the empty string for auto.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(s); r {
	case RuleAuto, RuleSingle, RuleAnd, RuleOr:
		return r, nil
	}
	return "", fmt.Errorf("unknown band-combination rule %q (want single, and or or)", s)
}

// DefaultThreshold is the RBR at or below which a pixel counts as burned.
// Burning lowers backscatter so the threshold is negative.
const DefaultThreshold = -0.2

// Params configures classification and morphological cleanup.
type Params struct {
	Threshold float64 // applies to every band without an override

	// Per-band overrides of Threshold.
	Thresholds map[raster.Polarization]float64

	Rule Rule
	Band raster.Polarization // band for RuleSingle or RuleAuto; empty picks VH, then VV

	// MinRegion removes burned 8-connected regions smaller than this many
	// pixels. Values <= 1 disable the filter.
	MinRegion int

	// MaxHole fills enclosed unburned 4-connected regions of at most this
	// many pixels. Zero disables filling.
	MaxHole int
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Threshold: DefaultThreshold,
		Rule:      RuleAuto,
		MinRegion: 4,
		MaxHole:   0,
	}
}

// WithThreshold returns a copy of params with a new global threshold.
func (p Params) WithThreshold(t float64) Params {
	p.Threshold = t
	return p
}

// WithBandThreshold returns a copy of params overriding the threshold of
// one polarization.
func (p Params) WithBandThreshold(pol raster.Polarization, t float64) Params {
	m := make(map[raster.Polarization]float64, len(p.Thresholds)+1)
	for k, v := range p.Thresholds {
		m[k] = v
	}
	m[pol] = t
	p.Thresholds = m
	return p
}

// WithRule returns a copy of params using rule; band is only consulted for
// RuleSingle and RuleAuto.
func (p Params) WithRule(rule Rule, band raster.Polarization) Params {
	p.Rule = rule
	p.Band = band
	return p
}

// WithMorphology returns a copy of params with new cleanup sizes.
func (p Params) WithMorphology(minRegion, maxHole int) Params {
	p.MinRegion = minRegion
	p.MaxHole = maxHole
	return p
}

// ThresholdFor returns the effective threshold for pol.
func (p Params) ThresholdFor(pol raster.Polarization) float64 {
	if t, ok := p.Thresholds[pol]; ok {
		return t
	}
	return p.Threshold
}

// Validate rejects thresholds outside the RBR range and negative sizes.
func (p Params) Validate() error {
	check := func(name string, t float64) error {
		if t < -1 || t > 1 {
			return fmt.Errorf("%s %.3f outside [-1, 1]", name, t)
		}
		return nil
	}
	if err := check("threshold", p.Threshold); err != nil {
		return err
	}
	for pol, t := range p.Thresholds {
		if err := check("threshold "+string(pol), t); err != nil {
			return err
		}
	}
	if _, err := ParseRule(string(p.Rule)); err != nil {
		return err
	}
	if p.MinRegion < 0 || p.MaxHole < 0 {
		return fmt.Errorf("morphology sizes must be non-negative (min region %d, max hole %d)", p.MinRegion, p.MaxHole)
	}
	return nil
}
