// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package layer drives the time-stepped simulation loop: it advances
// the beam, steps the solver, refreshes boundaries and halos, and
// updates the solidification recorder once per step, emitting periodic
// wall-clock and snapshot reporting.
package layer

import (
	"context"
	"time"

	"github.com/ORNL-MDF/finch/grid"
	"github.com/ORNL-MDF/finch/logx"
	"github.com/ORNL-MDF/finch/scanpath"
	"github.com/ORNL-MDF/finch/solidify"
	"github.com/ORNL-MDF/finch/solver"
)

// Monitor tracks wall-clock time between reporting intervals, following
// Finch_Inputs.hpp's TimeMonitor.
type Monitor struct {
	log          *logx.Logger
	numSteps     int
	lastUpdate   time.Time
	elapsed      time.Duration
	totalElapsed time.Duration
}

// NewMonitor starts a Monitor's clock.
func NewMonitor(log *logx.Logger, numSteps int) *Monitor {
	return &Monitor{log: log, numSteps: numSteps, lastUpdate: time.Now()}
}

// Update records the wall-clock time elapsed since the previous Update
// (or since construction, for the first call) and accumulates it into
// the running total.
func (m *Monitor) Update() {
	now := time.Now()
	m.elapsed = now.Sub(m.lastUpdate)
	m.totalElapsed += m.elapsed
	m.lastUpdate = now
}

// Write reports the most recent interval and the running total for the
// given step, rank-0 only.
func (m *Monitor) Write(step int) {
	m.log.Info("time step: %d/%d, elapsed: %.6f seconds, total: %.6f seconds\n",
		step, m.numSteps, m.elapsed.Seconds(), m.totalElapsed.Seconds())
}

// Layer owns every per-run component and drives the step loop of spec
// §4.6: advance time, move the beam, step the solver, refresh
// boundaries and halos, and update the solidification recorder, in that
// fixed order every step.
type Layer struct {
	grid    *grid.Grid
	beam    *scanpath.Path
	solver  *solver.Solver
	sampler *solidify.Data
	monitor *Monitor
	log     *logx.Logger

	time            float64
	dt              float64
	numSteps        int
	outputInterval  int
	monitorInterval int
}

// New assembles a Layer from its already-constructed components.
func New(g *grid.Grid, beam *scanpath.Path, s *solver.Solver, sampler *solidify.Data, log *logx.Logger, startTime, dt float64, numSteps, outputInterval, monitorInterval int) *Layer {
	return &Layer{
		grid:            g,
		beam:            beam,
		solver:          s,
		sampler:         sampler,
		monitor:         NewMonitor(log, numSteps),
		log:             log,
		time:            startTime,
		dt:              dt,
		numSteps:        numSteps,
		outputInterval:  outputInterval,
		monitorInterval: monitorInterval,
	}
}

// Run executes the full time-stepped loop. Monitor and output emission
// use the "(n+1) % interval == 0" rule of spec §4.6, plus an explicit
// terminal exception: the last step (n == numSteps-1) always fires both,
// regardless of interval, so a run whose interval does not evenly divide
// numSteps still gets a final snapshot and monitor line.
func (l *Layer) Run(ctx context.Context) error {
	for n := 0; n < l.numSteps; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.monitor.Update()

		if err := l.step(ctx); err != nil {
			return err
		}

		last := n == l.numSteps-1
		if (n+1)%l.monitorInterval == 0 || last {
			l.monitor.Write(n + 1)
		}
		if (n+1)%l.outputInterval == 0 || last {
			if err := l.grid.Output(n+1, float64(n+1)*l.dt); err != nil {
				return err
			}
		}
	}
	return nil
}

// step performs exactly one explicit update: advance time, move the
// beam, snapshot T into T0, apply the FTCS kernel, refresh ghost cells,
// exchange halos, and update the solidification recorder, matching
// Layer::step's fixed ordering exactly.
func (l *Layer) step(ctx context.Context) error {
	l.time += l.dt

	pos, power := l.beam.Query(l.time)

	t := l.grid.Temperature()
	t0 := l.grid.PreviousTemperature()
	t0.CopyFrom(t)

	l.solver.Step(l.grid.OwnedIndexSpace(), t, t0, power, pos, l.grid.LocalCoordinates)

	l.grid.UpdateBoundaries()
	if err := l.grid.Gather(ctx); err != nil {
		return err
	}

	l.sampler.Update(t, t0, l.time, l.dt, l.grid.LocalCoordinates)
	return nil
}

// Time returns the current simulated time.
func (l *Layer) Time() float64 { return l.time }
