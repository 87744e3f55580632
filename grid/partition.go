// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package grid

import (
	"math"

	"github.com/cpmech/gosl/chk"

	"github.com/ORNL-MDF/finch/logx"
)

// IndexSpace is a half-open 3D range of local cell indices.
type IndexSpace struct {
	Lo, Hi [3]int
}

// Size returns the number of cells in the index space.
func (s IndexSpace) Size() int {
	return (s.Hi[0] - s.Lo[0]) * (s.Hi[1] - s.Lo[1]) * (s.Hi[2] - s.Lo[2])
}

// Descriptor is the immutable global grid description of spec §3:
// cell size, global domain corners, and the requested rank layout.
type Descriptor struct {
	CellSize         float64
	GlobalLowCorner  [3]float64
	GlobalHighCorner [3]float64
	RanksPerDim      [3]int // a zero entry means "let the partitioner choose"
}

// Topology is the result of partitioning a Descriptor across a
// communicator: this rank's Cartesian coordinates, its owned index
// range within the global lattice, and its six face neighbors.
type Topology struct {
	Desc        Descriptor
	RanksPerDim [3]int
	Coords      [3]int // this rank's position in the Cartesian rank grid
	GlobalDims  [3]int // total owned cells per axis, across all ranks
	GlobalOffset [3]int // index of this rank's first owned cell in the global lattice
	OwnedDims   [3]int // this rank's local owned extents
	// Neighbors holds the rank id of each of the six face neighbors, in
	// {-x,+x,-y,+y,-z,+z} order; -1 marks a physical (non-periodic)
	// boundary face, which includes every face on an axis with a single
	// rank — there is no interior neighbor for gather to reach there.
	Neighbors [6]int
}

// Partition assigns this rank an axis-aligned block of the global
// lattice, implementing the balanced Cartesian partitioner of spec
// §4.2: when any RanksPerDim entry is zero, or the product disagrees
// with comm size, a balanced factorization of size is substituted. log
// may be nil (as in tests driving Partition directly); when non-nil,
// the substitution is reported once via log.Warn, per spec.md §7's
// "local recoveries log a single diagnostic and continue" policy.
func Partition(rank, size int, desc Descriptor, log *logx.Logger) (*Topology, error) {
	ranksPerDim := desc.RanksPerDim
	product := ranksPerDim[0] * ranksPerDim[1] * ranksPerDim[2]
	if ranksPerDim[0] <= 0 || ranksPerDim[1] <= 0 || ranksPerDim[2] <= 0 || product != size {
		requested := ranksPerDim
		ranksPerDim = balancedFactorization(size)
		if log != nil {
			log.Warn("grid: requested ranks_per_dim %v is invalid or disagrees with communicator size %d; substituting balanced factorization %v\n",
				requested, size, ranksPerDim)
		}
	}

	globalDims := [3]int{}
	for d := 0; d < 3; d++ {
		n := (desc.GlobalHighCorner[d] - desc.GlobalLowCorner[d]) / desc.CellSize
		globalDims[d] = int(math.Round(n))
		if globalDims[d] < ranksPerDim[d] {
			chk.Panic("grid: axis %d has %d cells but %d ranks; no non-empty decomposition exists", d, globalDims[d], ranksPerDim[d])
		}
	}

	coords := cartesianCoords(rank, ranksPerDim)

	owned := [3]int{}
	offset := [3]int{}
	for d := 0; d < 3; d++ {
		base := globalDims[d] / ranksPerDim[d]
		rem := globalDims[d] % ranksPerDim[d]
		if coords[d] < rem {
			owned[d] = base + 1
			offset[d] = coords[d] * (base + 1)
		} else {
			owned[d] = base
			offset[d] = rem*(base+1) + (coords[d]-rem)*base
		}
	}

	t := &Topology{
		Desc:         desc,
		RanksPerDim:  ranksPerDim,
		Coords:       coords,
		GlobalDims:   globalDims,
		GlobalOffset: offset,
		OwnedDims:    owned,
	}
	t.resolveNeighbors()
	return t, nil
}

// balancedFactorization distributes size ranks across the three axes as
// evenly as possible, the Go-native substitute for MPI_Dims_create used
// by Finch_Grid.hpp's ManualBlockPartitioner fallback.
func balancedFactorization(size int) [3]int {
	dims := [3]int{1, 1, 1}
	remaining := size
	for d := 0; d < 3 && remaining > 1; d++ {
		target := int(math.Ceil(math.Cbrt(float64(remaining))))
		f := largestDivisorAtMost(remaining, target)
		dims[d] = f
		remaining /= f
	}
	// any leftover factor goes to the last axis
	dims[2] *= remaining
	return dims
}

// largestDivisorAtMost returns the largest divisor of n that is <= cap,
// falling back to 1 if none is found below cap (n itself always works
// when cap >= n).
func largestDivisorAtMost(n, cap int) int {
	if cap >= n {
		return n
	}
	if cap < 1 {
		cap = 1
	}
	for f := cap; f >= 1; f-- {
		if n%f == 0 {
			return f
		}
	}
	return 1
}

func cartesianCoords(rank int, ranksPerDim [3]int) [3]int {
	x := rank % ranksPerDim[0]
	y := (rank / ranksPerDim[0]) % ranksPerDim[1]
	z := rank / (ranksPerDim[0] * ranksPerDim[1])
	return [3]int{x, y, z}
}

func rankFromCoords(coords, ranksPerDim [3]int) int {
	return coords[0] + ranksPerDim[0]*(coords[1]+ranksPerDim[1]*coords[2])
}

// resolveNeighbors computes the rank id on each of the six faces,
// marking a face as a physical boundary (-1) whenever stepping one rank
// along its axis falls outside [0, RanksPerDim[axis]) — which is every
// face on an axis with a single rank, since there is no interior
// neighbor to send to.
func (t *Topology) resolveNeighbors() {
	faceNormals := [6][3]int{
		{-1, 0, 0}, {1, 0, 0},
		{0, -1, 0}, {0, 1, 0},
		{0, 0, -1}, {0, 0, 1},
	}
	for f, n := range faceNormals {
		axis := f / 2
		neighborCoords := t.Coords
		neighborCoords[axis] += n[axis]
		if neighborCoords[axis] < 0 || neighborCoords[axis] >= t.RanksPerDim[axis] {
			// A single-rank axis always lands here, since +-1 is always
			// out of [0,1); such faces are physical boundaries, not
			// self-sends, per spec §4.2's boundary/interior segregation.
			t.Neighbors[f] = -1
			continue
		}
		t.Neighbors[f] = rankFromCoords(neighborCoords, t.RanksPerDim)
	}
}
