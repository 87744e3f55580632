// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package solver implements the explicit FTCS time-integration kernel:
// a centered-space Laplacian, an apparent-heat-capacity correction for
// latent heat release through the mushy interval, and an anisotropic
// Gaussian volumetric heat source tracking the moving beam.
package solver

import (
	"math"

	"github.com/exascience/pargo/parallel"

	"github.com/ORNL-MDF/finch/grid"
)

// Solver holds the precomputed constants of the FTCS update, derived
// once from the config at construction time. The per-cell kernel still
// divides dt by the cell's effective heat capacity on every call.
type Solver struct {
	dt         float64
	solidus    float64
	liquidus   float64
	rhoCp      float64
	rhoLfByDT  float64
	kByDx2     float64
	r          [3]float64
	aInv       [3]float64
	i0         float64
	wMax       float64
}

// New derives a Solver's constants from the cell size, density, specific
// heat, latent heat, solidus/liquidus bounds, thermal conductivity, the
// Gaussian source's two-sigma radii, and its absorption efficiency,
// mirroring Solver's constructor member-initializer list exactly.
func New(dt, cellSize, density, specificHeat, thermalConductivity, latentHeat, solidus, liquidus, absorption float64, twoSigma [3]float64) *Solver {
	s := &Solver{
		dt:       dt,
		solidus:  solidus,
		liquidus: liquidus,
		rhoCp:    density * specificHeat,
	}
	s.rhoLfByDT = density * latentHeat / (liquidus - solidus)
	s.kByDx2 = thermalConductivity / (cellSize * cellSize)

	for d := 0; d < 3; d++ {
		s.r[d] = twoSigma[d] / math.Sqrt2
		s.aInv[d] = 1.0 / (s.r[d] * s.r[d])
	}
	s.i0 = (2.0 * absorption) / (math.Pi * math.Sqrt(math.Pi) * s.r[0] * s.r[1] * s.r[2])

	// 3-sigma cutoff on the normalized Gaussian exponent.
	s.wMax = math.Log(3) + 2*math.Log(10)
	return s
}

// Step advances T from T0 over one time step on the owned index space,
// evaluating the apparent-heat-capacity FTCS update and the moving
// Gaussian source at beamPos with instantaneous power beamPower. coords
// maps a local owned index to the cell-center physical location (the
// grid's LocalCoordinates).
func (s *Solver) Step(owned grid.IndexSpace, t, t0 *grid.Field, beamPower float64, beamPos [3]float64, coords func(i, j, k int) [3]float64) {
	nx := owned.Hi[0] - owned.Lo[0]
	parallel.Range(0, nx, 0, func(a, b int) {
		for ii := a; ii < b; ii++ {
			i := owned.Lo[0] + ii
			for j := owned.Lo[1]; j < owned.Hi[1]; j++ {
				for k := owned.Lo[2]; k < owned.Hi[2]; k++ {
					s.stepCell(t, t0, i, j, k, beamPower, beamPos, coords)
				}
			}
		}
	})
}

func (s *Solver) stepCell(t, t0 *grid.Field, i, j, k int, beamPower float64, beamPos [3]float64, coords func(i, j, k int) [3]float64) {
	x := t0.At(i, j, k)

	dtByRhoCp := s.dt / s.rhoCp
	if x >= s.solidus && x <= s.liquidus {
		dtByRhoCp = s.dt / (s.rhoCp + s.rhoLfByDT)
	}

	rhs := s.laplacian(t0, i, j, k) + s.source(coords(i, j, k), beamPower, beamPos)
	t.Set(i, j, k, x+rhs*dtByRhoCp)
}

// laplacian is the standard 6-neighbor centered-space stencil, scaled by
// k/h^2.
func (s *Solver) laplacian(t0 *grid.Field, i, j, k int) float64 {
	return (t0.At(i-1, j, k) + t0.At(i+1, j, k) +
		t0.At(i, j-1, k) + t0.At(i, j+1, k) +
		t0.At(i, j, k-1) + t0.At(i, j, k+1) -
		6.0*t0.At(i, j, k)) * s.kByDx2
}

// weight returns the normalized Gaussian exponent x in exp(-x) for the
// given cell-center location relative to the beam position.
func (s *Solver) weight(loc, beamPos [3]float64) float64 {
	dx := loc[0] - beamPos[0]
	dy := loc[1] - beamPos[1]
	dz := loc[2] - beamPos[2]
	return dx*dx*s.aInv[0] + dy*dy*s.aInv[1] + dz*dz*s.aInv[2]
}

// source evaluates the anisotropic Gaussian volumetric source at the
// given cell, applying the zero-power short-circuit and 3-sigma cutoff
// that the host-tagged kernel uses to skip the exponential where it
// would underflow to zero anyway.
func (s *Solver) source(loc [3]float64, beamPower float64, beamPos [3]float64) float64 {
	if beamPower == 0 {
		return 0
	}
	w := s.weight(loc, beamPos)
	if w >= s.wMax {
		return 0
	}
	return s.i0 * beamPower * math.Exp(-w)
}
