// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package grid

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestNewFieldFillsInteriorAndGhosts(tst *testing.T) {
	chk.PrintTitle("NewFieldFillsInteriorAndGhosts")

	f := NewField(2, 2, 2, 300)
	chk.Float64(tst, "interior", 1e-12, f.At(0, 0, 0), 300)
	chk.Float64(tst, "ghost", 1e-12, f.At(-1, 0, 0), 300)
	chk.Float64(tst, "far ghost", 1e-12, f.At(2, 1, 1), 300)
}

func TestSetAtRoundTrip(tst *testing.T) {
	chk.PrintTitle("SetAtRoundTrip")

	f := NewField(3, 3, 3, 0)
	f.Set(1, 1, 1, 42)
	chk.Float64(tst, "set/at", 1e-12, f.At(1, 1, 1), 42)
}

func TestCopyFromDoesNotAlias(tst *testing.T) {
	chk.PrintTitle("CopyFromDoesNotAlias")

	src := NewField(2, 2, 2, 1)
	dst := NewField(2, 2, 2, 0)
	dst.CopyFrom(src)

	src.Set(0, 0, 0, 99)
	chk.Float64(tst, "dst unaffected by later src write", 1e-12, dst.At(0, 0, 0), 1)
}

func TestLocalGhostBoundsExcludesEdgesAndCorners(tst *testing.T) {
	chk.PrintTitle("LocalGhostBoundsExcludesEdgesAndCorners")

	f := NewField(4, 4, 4, 0)
	axis, fixed, lo0, hi0, lo1, hi1 := f.LocalGhostBounds(0)
	chk.IntAssert(axis, 0)
	chk.IntAssert(fixed, -1)
	chk.IntAssert(lo0, 0)
	chk.IntAssert(hi0, 4)
	chk.IntAssert(lo1, 0)
	chk.IntAssert(hi1, 4)
}
