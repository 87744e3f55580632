// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package grid

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func testDescriptor(ranksPerDim [3]int) Descriptor {
	return Descriptor{
		CellSize:         0.1,
		GlobalLowCorner:  [3]float64{0, 0, 0},
		GlobalHighCorner: [3]float64{1, 1, 1},
		RanksPerDim:      ranksPerDim,
	}
}

func TestPartitionTilesGlobalLatticeExactly(tst *testing.T) {
	chk.PrintTitle("PartitionTilesGlobalLatticeExactly")

	size := 4
	desc := testDescriptor([3]int{4, 1, 1})

	var totalOwned int
	seen := map[[3]int]bool{}
	for rank := 0; rank < size; rank++ {
		topo, err := Partition(rank, size, desc, nil)
		if err != nil {
			tst.Fatalf("Partition failed: %v", err)
		}
		totalOwned += topo.OwnedDims[0] * topo.OwnedDims[1] * topo.OwnedDims[2]
		for d := 0; d < 3; d++ {
			if topo.OwnedDims[d] <= 0 {
				tst.Fatalf("rank %d has a non-positive owned extent on axis %d", rank, d)
			}
		}
		seen[topo.Coords] = true
	}

	chk.IntAssert(len(seen), size)
	chk.IntAssert(totalOwned, 10*10*10)
}

func TestPartitionSubstitutesBalancedFactorizationOnMismatch(tst *testing.T) {
	chk.PrintTitle("PartitionSubstitutesBalancedFactorizationOnMismatch")

	// ranks_per_dim product (2*2*1=4) disagrees with comm size 8: the
	// fallback balanced factorization must be used instead.
	desc := testDescriptor([3]int{2, 2, 1})
	topo, err := Partition(0, 8, desc, nil)
	if err != nil {
		tst.Fatalf("Partition failed: %v", err)
	}

	product := topo.RanksPerDim[0] * topo.RanksPerDim[1] * topo.RanksPerDim[2]
	chk.IntAssert(product, 8)
}

func TestResolveNeighborsAllFacesAreBoundariesOnSingleRank(tst *testing.T) {
	chk.PrintTitle("ResolveNeighborsAllFacesAreBoundariesOnSingleRank")

	// With a single rank spanning every axis, every face is a physical
	// boundary: there is no interior neighbor for gather to reach, so
	// update_boundaries, not a self-send, owns every ghost cell.
	desc := testDescriptor([3]int{1, 1, 1})
	topo, err := Partition(0, 1, desc, nil)
	if err != nil {
		tst.Fatalf("Partition failed: %v", err)
	}

	for f := 0; f < 6; f++ {
		chk.IntAssert(topo.Neighbors[f], -1)
	}
}

func TestResolveNeighborsMarksPhysicalBoundaryFaces(tst *testing.T) {
	chk.PrintTitle("ResolveNeighborsMarksPhysicalBoundaryFaces")

	desc := testDescriptor([3]int{2, 1, 1})
	// rank 0 is the low-x end: its -x face has no neighbor.
	topo, err := Partition(0, 2, desc, nil)
	if err != nil {
		tst.Fatalf("Partition failed: %v", err)
	}
	if topo.Neighbors[0] != -1 {
		tst.Fatalf("expected rank 0's -x face to be a physical boundary, got neighbor %d", topo.Neighbors[0])
	}
	if topo.Neighbors[1] != 1 {
		tst.Fatalf("expected rank 0's +x neighbor to be rank 1, got %d", topo.Neighbors[1])
	}
}
