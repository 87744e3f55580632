// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package config loads and validates the JSON simulation input described
// in the configuration contract: time stepping, domain geometry, material
// properties, the moving heat source, and the optional solidification
// sampler. Parsing itself is a thin collaborator — the hard validation and the
// derived-quantity computation (time step, step counts, output/monitor
// intervals) live here and are exercised by the rest of the repository.
package config

import (
	"encoding/json"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"

	"github.com/ORNL-MDF/finch/boundary"
)

// Time holds the time-stepping schema of the "time" config block.
type Time struct {
	Co                float64 `json:"Co"`
	StartTime         float64 `json:"start_time"`
	EndTime           float64 `json:"end_time"`
	TotalOutputSteps  int     `json:"total_output_steps"`
	TotalMonitorSteps int     `json:"total_monitor_steps"`

	// derived
	TimeStep        float64
	NumSteps        int
	OutputInterval  int
	MonitorInterval int
}

// Space holds the geometry and decomposition schema of the "space" block.
type Space struct {
	InitialTemperature float64    `json:"initial_temperature"`
	CellSize           float64    `json:"cell_size"`
	GlobalLowCorner    [3]float64 `json:"global_low_corner"`
	GlobalHighCorner   [3]float64 `json:"global_high_corner"`
	RanksPerDim        [3]int     `json:"ranks_per_dim"`
}

// Properties holds the material properties schema of the "properties"
// block.
type Properties struct {
	Density             float64 `json:"density"`
	SpecificHeat        float64 `json:"specific_heat"`
	ThermalConductivity float64 `json:"thermal_conductivity"`
	LatentHeat          float64 `json:"latent_heat"`
	Solidus             float64 `json:"solidus"`
	Liquidus            float64 `json:"liquidus"`

	// derived
	ThermalDiffusivity float64
}

// Source holds the moving heat source schema of the "source" block.
type Source struct {
	Absorption   float64    `json:"absorption"`
	TwoSigma     [3]float64 `json:"two_sigma"`
	ScanPathFile string     `json:"scan_path_file"`
}

// BoundaryFace is one entry of the "boundary" array, in the fixed
// {-x,+x,-y,+y,-z,+z} order. Value is a pointer because "absent" and
// "explicitly zero" are different inputs for Dirichlet/Neumann, and only
// the raw JSON can tell them apart.
type BoundaryFace struct {
	Kind  string   `json:"kind"`
	Value *float64 `json:"value,omitempty"`
}

// Sampling holds the optional "sampling" block that enables the
// solidification event recorder.
type Sampling struct {
	Type          string `json:"type"`
	Format        string `json:"format"`
	DirectoryName string `json:"directory_name"`

	// derived
	Enabled bool
}

// Config is the decoded and validated simulation input.
type Config struct {
	Time       Time            `json:"time"`
	Space      Space           `json:"space"`
	Properties Properties      `json:"properties"`
	Source     Source          `json:"source"`
	Boundary   [6]BoundaryFace `json:"boundary"`
	Sampling   *Sampling       `json:"sampling"`
}

// Faces converts the decoded boundary block into boundary.Face
// descriptors, rejecting any Dirichlet or Neumann face with no Value.
// The check lives here because boundary.Face carries a plain float64, in
// which an absent value and an explicit zero look the same.
func (c *Config) Faces() [6]boundary.Face {
	var faces [6]boundary.Face
	for i, bf := range c.Boundary {
		kind := parseKind(i, bf.Kind)
		if (kind == boundary.Dirichlet || kind == boundary.Neumann) && bf.Value == nil {
			chk.Panic("config: boundary face %d (%s) requires a value", i, bf.Kind)
		}
		var v float64
		if bf.Value != nil {
			v = *bf.Value
		}
		faces[i] = boundary.Face{Kind: kind, Value: v}
	}
	return faces
}

func parseKind(face int, s string) boundary.Kind {
	switch s {
	case "dirichlet":
		return boundary.Dirichlet
	case "neumann":
		return boundary.Neumann
	case "adiabatic":
		return boundary.Adiabatic
	default:
		chk.Panic("config: boundary face %d has unknown kind %q", face, s)
		return 0
	}
}

// Load reads filename, unmarshals it into a Config, validates it, and
// computes every derived field that the rest of the repository relies on
// (dt, step count, output/monitor intervals, thermal diffusivity). It
// panics via chk.Panic on any fatal configuration error, matching
// inp.ReadSim's propagation policy.
func Load(filename string) *Config {
	b, err := os.ReadFile(filename)
	if err != nil {
		chk.Panic("config: cannot read input file %q: %v", filename, err)
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		chk.Panic("config: cannot unmarshal input file %q: %v", filename, err)
	}

	c.validate()
	c.derive()
	return &c
}

// validate enforces every "Configuration invalid" case from the error
// handling design: non-positive cell size, a degenerate mushy interval,
// an empty scan path file, and a non-positive Courant number.
func (c *Config) validate() {
	if c.Space.CellSize <= 0 {
		chk.Panic("config: space.cell_size must be positive, got %v", c.Space.CellSize)
	}
	if c.Time.Co <= 0 {
		chk.Panic("config: time.Co must be positive, got %v", c.Time.Co)
	}
	if c.Time.EndTime <= c.Time.StartTime {
		chk.Panic("config: time.end_time (%v) must exceed time.start_time (%v)", c.Time.EndTime, c.Time.StartTime)
	}
	if c.Properties.Liquidus == c.Properties.Solidus {
		chk.Panic("config: properties.liquidus must differ from properties.solidus")
	}
	if c.Properties.Liquidus < c.Properties.Solidus {
		chk.Panic("config: properties.liquidus (%v) must exceed properties.solidus (%v)", c.Properties.Liquidus, c.Properties.Solidus)
	}
	if c.Properties.Density <= 0 || c.Properties.SpecificHeat <= 0 || c.Properties.ThermalConductivity <= 0 {
		chk.Panic("config: properties.{density,specific_heat,thermal_conductivity} must be positive")
	}
	if c.Source.ScanPathFile == "" {
		chk.Panic("config: source.scan_path_file must not be empty")
	}
	for d := 0; d < 3; d++ {
		if c.Space.GlobalHighCorner[d] <= c.Space.GlobalLowCorner[d] {
			chk.Panic("config: space.global_high_corner must exceed space.global_low_corner on axis %d", d)
		}
	}
	if c.Sampling != nil {
		if c.Sampling.Type != "solidification_data" {
			chk.Panic("config: sampling.type %q is not supported", c.Sampling.Type)
		}
	}
}

// derive computes the quantities that parseInputFile computes in
// Finch_Inputs.hpp: thermal diffusivity, the stable time step, the
// total step count, and the output/monitor interval bounding performed
// by inp.Output.setInterval.
func (c *Config) derive() {
	c.Properties.ThermalDiffusivity = c.Properties.ThermalConductivity /
		(c.Properties.Density * c.Properties.SpecificHeat)

	c.Time.TimeStep = (c.Time.Co * c.Space.CellSize * c.Space.CellSize) / c.Properties.ThermalDiffusivity
	c.Time.NumSteps = int((c.Time.EndTime - c.Time.StartTime) / c.Time.TimeStep)

	c.Time.OutputInterval = setInterval(c.Time.TotalOutputSteps, c.Time.NumSteps)
	c.Time.MonitorInterval = setInterval(c.Time.TotalMonitorSteps, c.Time.NumSteps)

	c.Source.TwoSigma[0] = abs(c.Source.TwoSigma[0])
	c.Source.TwoSigma[1] = abs(c.Source.TwoSigma[1])
	c.Source.TwoSigma[2] = abs(c.Source.TwoSigma[2])

	if c.Sampling != nil {
		c.Sampling.Enabled = true
		if c.Sampling.Format != "exaca" {
			c.Sampling.Format = "default"
		}
		if c.Sampling.DirectoryName == "" {
			c.Sampling.DirectoryName = "solidification"
		}
	}
}

// setInterval mirrors inp.Output.setInterval: a zero total_steps
// suppresses periodic emission by setting the interval past the run's
// last step; otherwise the interval is clamped to [1, numSteps].
func setInterval(totalSteps, numSteps int) int {
	if totalSteps == 0 {
		return numSteps + 1
	}
	interval := numSteps / totalSteps
	return int(utl.Max(utl.Min(float64(interval), float64(numSteps)), 1))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
