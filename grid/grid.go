// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package grid owns the distributed structured-grid temperature field:
// domain decomposition, the owned/ghost index spaces, halo exchange over
// MPI, per-face boundary application, and field snapshot output.
package grid

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/ORNL-MDF/finch/boundary"
	"github.com/ORNL-MDF/finch/logx"
)

func floatBits(v float64) uint64 { return math.Float64bits(v) }

// Grid owns the temperature field T, the previous-step field T0, the
// domain decomposition, and this partition's boundary conditions. T and
// T0 are distinct allocations, never aliased, per spec §3.
type Grid struct {
	Topology *Topology
	Boundary *boundary.Set

	t, t0 *Field

	comm   *mpi.Communicator
	rank   int
	outDir string
}

// New constructs a Grid: it partitions the domain across the
// communicator, allocates T/T0 filled with the initial temperature, and
// performs the startup boundary-update + halo-gather pair that
// Finch_Grid.hpp's constructor performs before returning. log may be
// nil; when non-nil it receives the partition-substitution warning, if
// any.
func New(desc Descriptor, bset *boundary.Set, initialTemperature float64, outDir string, log *logx.Logger) (*Grid, error) {
	rank, size := 0, 1
	if mpi.IsOn() {
		rank, size = mpi.Rank(), mpi.Size()
	}

	topo, err := Partition(rank, size, desc, log)
	if err != nil {
		return nil, err
	}

	nx, ny, nz := topo.OwnedDims[0], topo.OwnedDims[1], topo.OwnedDims[2]
	g := &Grid{
		Topology: topo,
		Boundary: bset,
		t:        NewField(nx, ny, nz, initialTemperature),
		t0:       NewField(nx, ny, nz, initialTemperature),
		rank:     rank,
		outDir:   outDir,
	}
	if mpi.IsOn() {
		g.comm = mpi.NewCommunicator(neighborRanks(topo))
	}

	g.UpdateBoundaries()
	if err := g.Gather(context.Background()); err != nil {
		return nil, err
	}
	return g, nil
}

// neighborRanks collects the distinct rank ids this partition must be
// able to talk to, for the point-to-point Communicator used by Gather.
func neighborRanks(t *Topology) []int {
	seen := map[int]bool{}
	var ranks []int
	for _, n := range t.Neighbors {
		if n < 0 || seen[n] {
			continue
		}
		seen[n] = true
		ranks = append(ranks, n)
	}
	return ranks
}

// Temperature returns the current temperature field.
func (g *Grid) Temperature() *Field { return g.t }

// PreviousTemperature returns the previous-step temperature field.
func (g *Grid) PreviousTemperature() *Field { return g.t0 }

// OwnedIndexSpace returns the half-open range of locally owned cell
// indices, excluding ghosts.
func (g *Grid) OwnedIndexSpace() IndexSpace {
	d := g.Topology.OwnedDims
	return IndexSpace{Lo: [3]int{0, 0, 0}, Hi: [3]int{d[0], d[1], d[2]}}
}

// LocalCoordinates returns the physical cell-center coordinates of
// local index (i, j, k), including ghost indices.
func (g *Grid) LocalCoordinates(i, j, k int) [3]float64 {
	t := g.Topology
	h := t.Desc.CellSize
	return [3]float64{
		t.Desc.GlobalLowCorner[0] + h*(float64(t.GlobalOffset[0]+i)+0.5),
		t.Desc.GlobalLowCorner[1] + h*(float64(t.GlobalOffset[1]+j)+0.5),
		t.Desc.GlobalLowCorner[2] + h*(float64(t.GlobalOffset[2]+k)+0.5),
	}
}

// UpdateBoundaries applies the physical boundary conditions to the
// current temperature field's ghost cells.
func (g *Grid) UpdateBoundaries() {
	g.Boundary.Apply(g.t)
}

// Gather performs one halo exchange: each rank sends its six boundary
// slabs to the neighboring ranks on the Cartesian topology and receives
// the corresponding ghost slabs, overwriting off-rank ghosts with the
// owning rank's interior values. A face with no neighbor (-1, a physical
// boundary, which includes every face on a single-rank axis) is left to
// update_boundaries and skipped here, per spec §4.2's boundary/interior
// segregation invariant. Point-to-point exchange is the only blocking
// operation in this package, hence the context: a cancelled ctx aborts
// before issuing the next face's send.
func (g *Grid) Gather(ctx context.Context) error {
	t := g.Topology
	for face := 0; face < 6; face++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		neighbor := t.Neighbors[face]
		if neighbor < 0 {
			continue // physical boundary face; update_boundaries owns it
		}
		sendBuf := g.packBoundarySlab(face)
		recvBuf := make([]float64, len(sendBuf))
		if g.comm == nil {
			return fmt.Errorf("grid: halo exchange requires MPI between distinct ranks %d and %d", g.rank, neighbor)
		}
		g.comm.Send(sendBuf, neighbor)
		g.comm.Recv(recvBuf, neighbor)
		g.unpackGhostSlab(face, recvBuf)
	}
	return nil
}

// oppositeFace returns the face index on the neighboring rank that
// receives this rank's outgoing slab: a -x send arrives as that rank's
// +x ghost, and so on.
func oppositeFace(face int) int {
	return face ^ 1
}

// packBoundarySlab copies the one-cell-deep interior slab adjacent to
// the given face into a flat send buffer, in (free-axis-0, free-axis-1)
// row-major order.
func (g *Grid) packBoundarySlab(face int) []float64 {
	axis, interiorFixed, lo0, hi0, lo1, hi1 := interiorSlabBounds(g.t, face)
	buf := make([]float64, 0, (hi0-lo0)*(hi1-lo1))
	for u := lo0; u < hi0; u++ {
		for v := lo1; v < hi1; v++ {
			i, j, k := faceCoords(axis, interiorFixed, u, v)
			buf = append(buf, g.t.At(i, j, k))
		}
	}
	return buf
}

// unpackGhostSlab writes a received flat buffer into the ghost slab of
// the given face.
func (g *Grid) unpackGhostSlab(face int, buf []float64) {
	axis, ghostFixed, lo0, hi0, lo1, hi1 := ghostSlabBounds(g.t, face)
	n := 0
	for u := lo0; u < hi0; u++ {
		for v := lo1; v < hi1; v++ {
			i, j, k := faceCoords(axis, ghostFixed, u, v)
			g.t.Set(i, j, k, buf[n])
			n++
		}
	}
}

func faceCoords(axis, fixed, u, v int) (i, j, k int) {
	coords := [3]int{}
	coords[axis] = fixed
	free := 0
	for d := 0; d < 3; d++ {
		if d == axis {
			continue
		}
		if free == 0 {
			coords[d] = u
		} else {
			coords[d] = v
		}
		free++
	}
	return coords[0], coords[1], coords[2]
}

// interiorSlabBounds returns the owned slab exactly one cell inside the
// given face (the data this rank sends to its neighbor).
func interiorSlabBounds(f *Field, face int) (axis, fixed, lo0, hi0, lo1, hi1 int) {
	nx, ny, nz := f.Owned()
	dims := [3]int{nx, ny, nz}
	axis = face / 2
	if face%2 == 0 {
		fixed = 0
	} else {
		fixed = dims[axis] - 1
	}
	free := [2]int{}
	n := 0
	for d := 0; d < 3; d++ {
		if d == axis {
			continue
		}
		free[n] = dims[d]
		n++
	}
	return axis, fixed, 0, free[0], 0, free[1]
}

// ghostSlabBounds returns the one-cell ghost slab on the given face (the
// data this rank receives from its neighbor).
func ghostSlabBounds(f *Field, face int) (axis, fixed, lo0, hi0, lo1, hi1 int) {
	nx, ny, nz := f.Owned()
	dims := [3]int{nx, ny, nz}
	axis = face / 2
	if face%2 == 0 {
		fixed = -1
	} else {
		fixed = dims[axis]
	}
	free := [2]int{}
	n := 0
	for d := 0; d < 3; d++ {
		if d == axis {
			continue
		}
		free[n] = dims[d]
		n++
	}
	return axis, fixed, 0, free[0], 0, free[1]
}

// Output writes a per-rank binary snapshot of the interior temperature
// field: a small fixed header (step, time, rank, owned dims, global
// offset, cell size) followed by the raw row-major interior values.
// The on-disk layout is this port's own minimal stand-in for the
// grid-library-specific writer the upstream spec delegates to (§6); it
// is not BOV/VTK-compatible, only self-describing enough for a
// companion reader.
func (g *Grid) Output(step int, time float64) error {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return fmt.Errorf("grid: cannot create output directory %q: %w", g.outDir, err)
	}
	fn := fmt.Sprintf("%s/temperature_p%d_%010d.bin", g.outDir, g.rank, step)
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	w := newHeaderWriter(f)
	w.int64(int64(step))
	w.float64(time)
	w.int64(int64(g.rank))
	d := g.Topology.OwnedDims
	w.int64(int64(d[0]))
	w.int64(int64(d[1]))
	w.int64(int64(d[2]))
	off := g.Topology.GlobalOffset
	w.int64(int64(off[0]))
	w.int64(int64(off[1]))
	w.int64(int64(off[2]))
	w.float64(g.Topology.Desc.CellSize)
	if w.err != nil {
		return w.err
	}

	for i := 0; i < d[0]; i++ {
		for j := 0; j < d[1]; j++ {
			for k := 0; k < d[2]; k++ {
				w.float64(g.t.At(i, j, k))
			}
		}
	}
	if w.err != nil {
		return w.err
	}
	io.Pf("grid: wrote snapshot %s\n", fn)
	return nil
}

type headerWriter struct {
	w   *os.File
	err error
}

func newHeaderWriter(w *os.File) *headerWriter { return &headerWriter{w: w} }

func (h *headerWriter) int64(v int64) {
	if h.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	_, h.err = h.w.Write(b[:])
}

func (h *headerWriter) float64(v float64) {
	if h.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], floatBits(v))
	_, h.err = h.w.Write(b[:])
}
