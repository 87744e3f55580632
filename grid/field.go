// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package grid

// Field is a scalar-per-node array on a uniform 3D mesh with one layer
// of ghost nodes on every face, stored as a single flat slice indexed in
// local (ghost-inclusive) coordinates. T and T0 are two independently
// allocated Fields; they are never aliased (spec §3).
type Field struct {
	nx, ny, nz int // local extents, including the one-cell ghost halo on each side
	data       []float64
}

// NewField allocates a ghosted field of the given interior (owned)
// extents, filled with initial.
func NewField(nxOwned, nyOwned, nzOwned int, initial float64) *Field {
	f := &Field{
		nx:   nxOwned + 2,
		ny:   nyOwned + 2,
		nz:   nzOwned + 2,
		data: make([]float64, (nxOwned+2)*(nyOwned+2)*(nzOwned+2)),
	}
	for i := range f.data {
		f.data[i] = initial
	}
	return f
}

// idx converts local ghost-inclusive node coordinates to a flat offset.
func (f *Field) idx(i, j, k int) int {
	return (i+1)*f.ny*f.nz + (j+1)*f.nz + (k + 1)
}

// At returns the value at local node (i, j, k); negative indices and
// indices at nx/ny/nz address the ghost layer.
func (f *Field) At(i, j, k int) float64 {
	return f.data[f.idx(i, j, k)]
}

// Set stores v at local node (i, j, k).
func (f *Field) Set(i, j, k int, v float64) {
	f.data[f.idx(i, j, k)] = v
}

// Owned returns the local, ghost-exclusive extents.
func (f *Field) Owned() (nx, ny, nz int) {
	return f.nx - 2, f.ny - 2, f.nz - 2
}

// CopyFrom deep-copies src's data into f; used at the top of every step
// to snapshot T into T0 (Layer's "copy T0 = T" per spec §4.6).
func (f *Field) CopyFrom(src *Field) {
	copy(f.data, src.data)
}

// LocalGhostBounds implements boundary.Field for one of the six faces,
// in the fixed {-x,+x,-y,+y,-z,+z} order, returning the ghost slab's
// free-axis index ranges and its fixed coordinate on the face's own
// axis.
func (f *Field) LocalGhostBounds(face int) (axis, fixed, lo0, hi0, lo1, hi1 int) {
	nx, ny, nz := f.Owned()
	dims := [3]int{nx, ny, nz}
	axis = face / 2
	side := face % 2 // 0 => low face, 1 => high face
	if side == 0 {
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
	// Each face's slab covers only its own owned-extent footprint
	// (0..free), excluding the edge/corner ghost cells shared with
	// adjacent faces, so the six faces' writes stay disjoint per spec
	// §4.1's ordering-is-unobservable invariant.
	return axis, fixed, 0, free[0], 0, free[1]
}
