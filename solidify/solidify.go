// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package solidify records per-cell solidification events concurrently
// during the simulation: each cell that crosses the liquidus on cooling
// contributes one event (position, melt time, solidification time,
// cooling rate, temperature gradient), appended through a single atomic
// counter so the bulk-synchronous per-cell scan needs no locking.
package solidify

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"
	"github.com/exascience/pargo/parallel"
	"gonum.org/v1/gonum/floats"

	"github.com/ORNL-MDF/finch/grid"
	"github.com/ORNL-MDF/finch/logx"
)

// nCmpts is the fixed event record width: x, y, z, melt time,
// solidification time, cooling rate, and the three temperature-gradient
// components.
const nCmpts = 9

// Data owns the per-partition melt-time field and the growable event
// buffer, following Finch_SolidificationData.hpp's capacity policy.
type Data struct {
	rank      int
	directory string
	format    string
	enabled   bool
	liquidus  float64
	cellSize  float64
	log       *logx.Logger

	owned grid.IndexSpace

	// tm holds, per owned cell, the simulated time at which that cell
	// last crossed the liquidus while heating. It starts at NaN: a cell
	// that solidifies without ever having been observed to melt (it
	// started the run already molten, or melted before recording began)
	// reports its melt time as NaN rather than a silently wrong zero.
	// Callers of Get/Write must treat NaN as "unknown", not "time zero";
	// see the decision recorded in DESIGN.md.
	tm []float64

	count    atomic.Int64
	capacity int
	events   []float64 // flat capacity*nCmpts buffer, row-major per event
}

// New allocates a Data recorder sized to the owned index space: the
// initial event capacity equals the owned cell count, matching
// SolidificationData's constructor. log may be nil; when non-nil it
// receives a warning each time Update grows the event buffer.
func New(rank int, owned grid.IndexSpace, liquidus, cellSize float64, directory, format string, enabled bool, log *logx.Logger) *Data {
	d := &Data{
		rank:      rank,
		directory: directory,
		format:    format,
		enabled:   enabled,
		liquidus:  liquidus,
		cellSize:  cellSize,
		log:       log,
		owned:     owned,
		capacity:  owned.Size(),
	}
	d.tm = make([]float64, owned.Size())
	for i := range d.tm {
		d.tm[i] = math.NaN()
	}
	d.events = make([]float64, d.capacity*nCmpts)
	return d
}

func (d *Data) tmIndex(i, j, k int) int {
	ny := d.owned.Hi[1] - d.owned.Lo[1]
	nz := d.owned.Hi[2] - d.owned.Lo[2]
	li, lj, lk := i-d.owned.Lo[0], j-d.owned.Lo[1], k-d.owned.Lo[2]
	return li*ny*nz + lj*nz + lk
}

// Update scans the owned index space once, detecting liquidus crossings
// against the temperature fields before and after the step, and grows
// the event buffer to absorb any overflow. coords maps an owned cell
// index to its physical cell-center location. No-op when sampling is
// disabled.
func (d *Data) Update(t, t0 *grid.Field, simTime, dt float64, coords func(i, j, k int) [3]float64) {
	if !d.enabled {
		return
	}

	countOld := d.count.Load()
	d.scan(t, t0, simTime, dt, coords)
	newCount := d.count.Load()

	switch {
	case newCount >= int64(d.capacity):
		// More events were appended than the buffer could hold; grow
		// and redo the scan from the pre-scan count. Re-running is
		// idempotent because T, T0, and simTime are unchanged between
		// attempts, so events beyond the old capacity are simply
		// recomputed and recorded this time. Event ordering after a
		// retry is not guaranteed to match a non-overflowing run.
		if d.log != nil {
			d.log.Warn("solidify: rank %d event buffer overflowed (capacity %d); growing to %d and retrying\n",
				d.rank, d.capacity, 2*int(newCount))
		}
		d.resize(2 * int(newCount))
		d.count.Store(countOld)
		d.scan(t, t0, simTime, dt, coords)
	case float64(newCount)/float64(d.capacity) > 0.9:
		if d.log != nil {
			d.log.Warn("solidify: rank %d event buffer at %d/%d capacity; growing to %d\n",
				d.rank, newCount, d.capacity, 2*int(newCount))
		}
		d.resize(2 * int(newCount))
	}
}

func (d *Data) resize(newCapacity int) {
	grown := make([]float64, newCapacity*nCmpts)
	copy(grown, d.events[:d.capacity*nCmpts])
	d.events = grown
	d.capacity = newCapacity
}

// scan runs the per-cell liquidus-crossing test over the owned index
// space with one parallel.Range pass, atomically appending an event for
// each cooling crossing and recording the melt time for each heating
// crossing. Events beyond the current capacity are dropped by this pass;
// Update retries once capacity has grown.
func (d *Data) scan(t, t0 *grid.Field, simTime, dt float64, coords func(i, j, k int) [3]float64) {
	nx := d.owned.Hi[0] - d.owned.Lo[0]
	parallel.Range(0, nx, 0, func(a, b int) {
		for ii := a; ii < b; ii++ {
			i := d.owned.Lo[0] + ii
			for j := d.owned.Lo[1]; j < d.owned.Hi[1]; j++ {
				for k := d.owned.Lo[2]; k < d.owned.Hi[2]; k++ {
					d.scanCell(t, t0, i, j, k, simTime, dt, coords)
				}
			}
		}
	})
}

func (d *Data) scanCell(t, t0 *grid.Field, i, j, k int, simTime, dt float64, coords func(i, j, k int) [3]float64) {
	temp := t.At(i, j, k)
	temp0 := t0.At(i, j, k)
	tmIdx := d.tmIndex(i, j, k)

	switch {
	case temp <= d.liquidus && temp0 > d.liquidus:
		n := d.count.Add(1) - 1
		if n >= int64(d.capacity) {
			return
		}
		m := clamp01((temp - d.liquidus) / (temp - temp0))
		loc := coords(i, j, k)
		base := n * nCmpts
		d.events[base+0] = loc[0]
		d.events[base+1] = loc[1]
		d.events[base+2] = loc[2]
		d.events[base+3] = d.tm[tmIdx]
		d.events[base+4] = simTime - m*dt
		d.events[base+5] = (temp0 - temp) / dt
		d.events[base+6] = (t.At(i+1, j, k) - t.At(i-1, j, k)) / (2 * d.cellSize)
		d.events[base+7] = (t.At(i, j+1, k) - t.At(i, j-1, k)) / (2 * d.cellSize)
		d.events[base+8] = (t.At(i, j, k+1) - t.At(i, j, k-1)) / (2 * d.cellSize)

	case temp > d.liquidus && temp0 <= d.liquidus:
		m := clamp01((temp - d.liquidus) / (temp - temp0))
		d.tm[tmIdx] = simTime - m*dt
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Get returns a copy of the recorded events, each a 9-component row in
// (x, y, z, melt time, solidification time, cooling rate, gradient x,
// gradient y, gradient z) order. The returned count is clamped to the
// buffer's current capacity even if the atomic counter overshot it
// between an overflow and its retry.
func (d *Data) Get() [][9]float64 {
	n := int(d.count.Load())
	if n > d.capacity {
		n = d.capacity
	}
	out := make([][9]float64, n)
	for r := 0; r < n; r++ {
		base := r * nCmpts
		copy(out[r][:], d.events[base:base+nCmpts])
	}
	return out
}

// LowerBounds and UpperBounds reduce this rank's recorded event
// positions with every other rank's, returning the global bounding box
// of all recorded events across the communicator. A rank that recorded
// no events contributes the identity element (+Inf for the lower bound,
// -Inf for the upper) so it cannot skew the reduction.
func (d *Data) LowerBounds() [3]float64 { return d.reduceBounds(true) }
func (d *Data) UpperBounds() [3]float64 { return d.reduceBounds(false) }

func (d *Data) reduceBounds(lower bool) [3]float64 {
	events := d.Get()
	local := [3]float64{}
	for axis := 0; axis < 3; axis++ {
		if len(events) == 0 {
			if lower {
				local[axis] = math.Inf(1)
			} else {
				local[axis] = math.Inf(-1)
			}
			continue
		}
		coords := make([]float64, len(events))
		for r, e := range events {
			coords[r] = e[axis]
		}
		if lower {
			local[axis] = floats.Min(coords)
		} else {
			local[axis] = floats.Max(coords)
		}
	}

	if !mpi.IsOn() {
		return local
	}
	global := [3]float64{}
	if lower {
		mpi.AllReduceMin(global[:], local[:])
	} else {
		mpi.AllReduceMax(global[:], local[:])
	}
	return global
}

// Write emits this rank's recorded events to <directory>/data_<rank>.csv
// as ten-decimal fixed-point rows. The default format writes all nine
// columns; the exaca format omits the three gradient columns. No-op
// when sampling is disabled.
func (d *Data) Write() error {
	if !d.enabled {
		return nil
	}
	if err := os.MkdirAll(d.directory, 0o777); err != nil {
		return fmt.Errorf("solidify: cannot create directory %q: %w", d.directory, err)
	}

	filename := fmt.Sprintf("%s/data_%d.csv", d.directory, d.rank)
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("solidify: cannot create %q: %w", filename, err)
	}
	defer f.Close()

	events := d.Get()
	for _, e := range events {
		if d.format == "default" {
			fmt.Fprintf(f, "%.10f,%.10f,%.10f,%.10f,%.10f,%.10f,%.10f,%.10f,%.10f\n",
				e[0], e[1], e[2], e[3], e[4], e[5], e[6], e[7], e[8])
		} else {
			fmt.Fprintf(f, "%.10f,%.10f,%.10f,%.10f,%.10f,%.10f\n",
				e[0], e[1], e[2], e[3], e[4], e[5])
		}
	}
	io.Pf("solidify: rank %d wrote %d events to %s\n", d.rank, len(events), filename)
	return nil
}
