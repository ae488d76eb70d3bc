package config

import (
	"os"
	"path/filepath"
	"testing"

	"burnscar/internal/acqdate"
	"burnscar/internal/burnmask"
	"burnscar/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "burnscar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, -0.2, c.Threshold)
	assert.Equal(t, 4, c.MinRegion)
	assert.Equal(t, "", c.Domain)

	err := c.Validate()
	require.Error(t, err, "domain has no default")
	assert.Contains(t, err.Error(), "Domain")

	c.Domain = "linear"
	assert.NoError(t, c.Validate())
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
domain: db
cutoff: 2023-07-18
threshold: -0.25
threshold_vh: -0.3
rule: and
min_region: 9
max_hole: 2
boxcar: 5
masks:
  water: water.tif
  incidence: lia.tif
  incidence_min: 25
  incidence_max: 48
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "water.tif", c.Masks.Water)
	assert.Equal(t, 48.0, c.Masks.IncidenceMax)

	cut, ok, err := c.CutoffDate()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 18, cut.Day())

	p := c.BurnParams()
	assert.Equal(t, -0.25, p.ThresholdFor(raster.VV))
	assert.Equal(t, -0.3, p.ThresholdFor(raster.VH))
	assert.Equal(t, burnmask.RuleAnd, p.Rule)
	assert.Equal(t, 9, p.MinRegion)
	assert.Equal(t, 2, p.MaxHole)
}

func TestLoadKeepsDefaultsAndRejectsUnknownKeys(t *testing.T) {
	c, err := Load(writeFile(t, "domain: linear\n"))
	require.NoError(t, err)
	assert.Equal(t, -0.2, c.Threshold)
	assert.Equal(t, 90.0, c.Masks.IncidenceMax)

	_, err = Load(writeFile(t, "domain: linear\nthreshhold: -0.3\n"))
	assert.Error(t, err)

	c, err = Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 4, c.MinRegion)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Domain = "linear"

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad domain", func(c *Config) { c.Domain = "natural" }},
		{"threshold range", func(c *Config) { c.Threshold = -1.2 }},
		{"band threshold range", func(c *Config) { v := 1.5; c.ThresholdVV = &v }},
		{"rule", func(c *Config) { c.Rule = "xor" }},
		{"cutoff format", func(c *Config) { c.Cutoff = "18.07.2023" }},
		{"even boxcar", func(c *Config) { c.Boxcar = 4 }},
		{"incidence order", func(c *Config) { c.Masks.IncidenceMin, c.Masks.IncidenceMax = 50, 20 }},
		{"duplicate band", func(c *Config) { c.Bands = []string{"VV", "VV"} }},
		{"unknown band", func(c *Config) { c.Bands = []string{"HH"} }},
		{"negative min region", func(c *Config) { c.MinRegion = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDomainFor(t *testing.T) {
	c := Default()
	c.Domain = "linear"
	c.DomainAfter = "db"

	d, err := c.DomainFor(acqdate.Before)
	require.NoError(t, err)
	assert.Equal(t, raster.DomainLinear, d)

	d, err = c.DomainFor(acqdate.After)
	require.NoError(t, err)
	assert.Equal(t, raster.DomainDB, d)

	c.Domain = ""
	c.DomainAfter = ""
	_, err = c.DomainFor(acqdate.Before)
	assert.ErrorIs(t, err, raster.ErrDomainAmbiguity)
}

func TestDeclaredBands(t *testing.T) {
	c, err := Load(writeFile(t, "domain: db\nbands: [VH, VV]\n"))
	require.NoError(t, err)
	assert.Equal(t, []raster.Polarization{raster.VH, raster.VV}, c.DeclaredBands())
	assert.Equal(t, Default().Threshold, c.Threshold)
}
