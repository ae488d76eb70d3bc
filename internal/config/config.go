// Package config holds the run configuration: named parameters with
// documented defaults, loadable from YAML and overridable by flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"burnscar/internal/acqdate"
	"burnscar/internal/burnmask"
	"burnscar/internal/raster"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete set of pipeline parameters.
type Config struct {
	// Cutoff splits a folder of acquisitions: strictly before → before
	// epoch, on/after → after epoch. Format YYYY-MM-DD.
	Cutoff string `yaml:"cutoff" json:"cutoff,omitempty" validate:"omitempty,datetime=2006-01-02"`

	// Domain of the input samples, "linear" or "db". There is no default.
	Domain string `yaml:"domain" json:"domain,omitempty" validate:"required,oneof=linear db"`
	// Per-epoch domain overrides for pairs mixing units.
	DomainBefore string `yaml:"domain_before" json:"domain_before,omitempty" validate:"omitempty,oneof=linear db"`
	DomainAfter  string `yaml:"domain_after" json:"domain_after,omitempty" validate:"omitempty,oneof=linear db"`
	// DomainCheck verifies the declared domain against sample values.
	DomainCheck bool `yaml:"domain_check" json:"domain_check,omitempty"`

	// Bands optionally declares the polarization of each input band in
	// file order (e.g. [VV, VH]).
	Bands []string `yaml:"bands" json:"bands,omitempty" validate:"omitempty,max=2,dive,oneof=VV VH"`

	// Boxcar is the odd window size of the spatial speckle filter applied
	// to each epoch average. 0 disables it.
	Boxcar int `yaml:"boxcar" json:"boxcar,omitempty" validate:"gte=0"`

	Threshold   float64  `yaml:"threshold" json:"threshold" validate:"gte=-1,lte=1"`
	ThresholdVV *float64 `yaml:"threshold_vv" json:"threshold_vv,omitempty" validate:"omitempty,gte=-1,lte=1"`
	ThresholdVH *float64 `yaml:"threshold_vh" json:"threshold_vh,omitempty" validate:"omitempty,gte=-1,lte=1"`
	Rule        string   `yaml:"rule" json:"rule,omitempty" validate:"omitempty,oneof=single and or"`
	Band        string   `yaml:"band" json:"band,omitempty" validate:"omitempty,oneof=VV VH"`
	MinRegion   int      `yaml:"min_region" json:"min_region,omitempty" validate:"gte=0"`
	MaxHole     int      `yaml:"max_hole" json:"max_hole,omitempty" validate:"gte=0"`

	Masks Masks `yaml:"masks" json:"masks,omitempty"`

	// Workers bounds the row blocks computed concurrently; 0 uses every CPU.
	Workers int `yaml:"workers" json:"workers,omitempty" validate:"gte=0"`

	OutDir    string `yaml:"outdir" json:"outdir,omitempty"`
	Recursive bool   `yaml:"recursive" json:"recursive,omitempty"`
}

// Masks names optional confounder rasters. All must be co-registered with
// the inputs.
type Masks struct {
	Water     string `yaml:"water" json:"water,omitempty"`
	Layover   string `yaml:"layover" json:"layover,omitempty"`     // layover and/or radar shadow
	Incidence string `yaml:"incidence" json:"incidence,omitempty"` // local incidence angle, degrees

	IncidenceMin float64 `yaml:"incidence_min" json:"incidence_min,omitempty" validate:"gte=0,lte=90"`
	IncidenceMax float64 `yaml:"incidence_max" json:"incidence_max,omitempty" validate:"gte=0,lte=90,gtefield=IncidenceMin"`
}

// Default returns the documented defaults. Domain is deliberately empty.
func Default() Config {
	p := burnmask.DefaultParams()
	return Config{
		Threshold: p.Threshold,
		MinRegion: p.MinRegion,
		MaxHole:   p.MaxHole,
		Masks: Masks{
			IncidenceMin: 0,
			IncidenceMax: 90,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Boxcar > 1 && c.Boxcar%2 == 0 {
		return fmt.Errorf("invalid config: boxcar must be odd, got %d", c.Boxcar)
	}
	seen := map[string]bool{}
	for _, b := range c.Bands {
		if seen[b] {
			return fmt.Errorf("invalid config: band %s declared twice", b)
		}
		seen[b] = true
	}
	return nil
}

// CutoffDate parses Cutoff; ok is false when unset.
func (c Config) CutoffDate() (t time.Time, ok bool, err error) {
	if c.Cutoff == "" {
		return time.Time{}, false, nil
	}
	t, err = acqdate.ParseCutoff(c.Cutoff)
	return t, err == nil, err
}

// DomainFor returns the declared domain of one epoch.
func (c Config) DomainFor(epoch acqdate.Epoch) (raster.Domain, error) {
	flag := c.Domain
	switch epoch {
	case acqdate.Before:
		if c.DomainBefore != "" {
			flag = c.DomainBefore
		}
	case acqdate.After:
		if c.DomainAfter != "" {
			flag = c.DomainAfter
		}
	}
	return raster.ParseDomain(flag)
}

// DeclaredBands converts Bands to polarizations.
func (c Config) DeclaredBands() []raster.Polarization {
	var out []raster.Polarization
	for _, b := range c.Bands {
		if p, ok := raster.ParsePolarization(b); ok {
			out = append(out, p)
		}
	}
	return out
}

// BurnParams builds classifier parameters.
func (c Config) BurnParams() burnmask.Params {
	p := burnmask.DefaultParams().
		WithThreshold(c.Threshold).
		WithMorphology(c.MinRegion, c.MaxHole)
	if c.ThresholdVV != nil {
		p = p.WithBandThreshold(raster.VV, *c.ThresholdVV)
	}
	if c.ThresholdVH != nil {
		p = p.WithBandThreshold(raster.VH, *c.ThresholdVH)
	}
	band, _ := raster.ParsePolarization(c.Band)
	return p.WithRule(burnmask.Rule(c.Rule), band)
}
