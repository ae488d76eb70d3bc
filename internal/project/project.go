// Package project provides the run manifest written next to the outputs.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"burnscar/internal/burnmask"
	"burnscar/internal/config"
	"burnscar/internal/rbr"
)

// ManifestName is the file name of the manifest inside the output directory.
const ManifestName = "manifest.json"

// Manifest records what a run read, how it was configured and what it
// produced.
type Manifest struct {
	Version int       `json:"version"`
	RunID   string    `json:"run_id"`
	Command string    `json:"command"`
	Tool    string    `json:"tool_version"`
	Created time.Time `json:"created"`

	Inputs  []Input              `json:"inputs"`
	Config  config.Config        `json:"config"`
	Outputs []Output             `json:"outputs"`
	Stats   map[string]rbr.Stats `json:"rbr_stats,omitempty"`

	Rule       string               `json:"rule,omitempty"`
	RuleBands  []string             `json:"rule_bands,omitempty"`
	RawCounts  *burnmask.Counts     `json:"raw_counts,omitempty"`
	Counts     *burnmask.Counts     `json:"counts,omitempty"`
	Morphology *burnmask.CleanStats `json:"morphology,omitempty"`
	Skipped    []string             `json:"skipped_bands,omitempty"`
}

// Input is one source raster. Paths are relative to the manifest.
type Input struct {
	Path     string   `json:"path"`
	Epoch    string   `json:"epoch"`
	Acquired string   `json:"acquired,omitempty"`
	Bands    []string `json:"bands"`
}

// Output is one written raster.
type Output struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // average, rbr, burn_mask
	Pol  string `json:"pol,omitempty"`
}

// New creates a manifest for one run.
func New(runID, command, tool string) *Manifest {
	return &Manifest{
		Version: 1,
		RunID:   runID,
		Command: command,
		Tool:    tool,
		Created: time.Now().UTC(),
		Stats:   map[string]rbr.Stats{},
	}
}

// AddInput records a source file relative to the manifest directory.
func (m *Manifest) AddInput(manifestPath, path, epoch string, acquired time.Time, bands []string) {
	in := Input{Path: relative(manifestPath, path), Epoch: epoch, Bands: bands}
	if !acquired.IsZero() {
		in.Acquired = acquired.Format("2006-01-02")
	}
	m.Inputs = append(m.Inputs, in)
}

// AddOutput records a written file relative to the manifest directory.
func (m *Manifest) AddOutput(manifestPath, path, kind, pol string) {
	m.Outputs = append(m.Outputs, Output{Path: relative(manifestPath, path), Kind: kind, Pol: pol})
}

// Load loads a manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save saves the manifest.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func relative(manifestPath, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	dir, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(dir, abs)
	if err != nil {
		return path
	}
	return rel
}
