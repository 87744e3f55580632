// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package layer

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"

	"github.com/ORNL-MDF/finch/boundary"
	"github.com/ORNL-MDF/finch/grid"
	"github.com/ORNL-MDF/finch/logx"
	"github.com/ORNL-MDF/finch/scanpath"
	"github.com/ORNL-MDF/finch/solidify"
	"github.com/ORNL-MDF/finch/solver"
)

func writePath(tst *testing.T) string {
	path := filepath.Join(tst.TempDir(), "path.txt")
	body := "header\n1 0.5 0.5 0.5 1000 0.01\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		tst.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func buildLayer(tst *testing.T, numSteps, outputInterval, monitorInterval int) (*Layer, string) {
	faces := [6]boundary.Face{
		{Kind: boundary.Adiabatic}, {Kind: boundary.Adiabatic},
		{Kind: boundary.Adiabatic}, {Kind: boundary.Adiabatic},
		{Kind: boundary.Adiabatic}, {Kind: boundary.Adiabatic},
	}
	bset, err := boundary.New(faces)
	if err != nil {
		tst.Fatalf("boundary.New failed: %v", err)
	}

	log := logx.New(0)

	outDir := filepath.Join(tst.TempDir(), "out")
	g, err := grid.New(grid.Descriptor{
		CellSize:         0.1,
		GlobalLowCorner:  [3]float64{0, 0, 0},
		GlobalHighCorner: [3]float64{1, 1, 1},
		RanksPerDim:      [3]int{1, 1, 1},
	}, bset, 300, outDir, log)
	if err != nil {
		tst.Fatalf("grid.New failed: %v", err)
	}

	beam, err := scanpath.Load(writePath(tst))
	if err != nil {
		tst.Fatalf("scanpath.Load failed: %v", err)
	}

	s := solver.New(1e-4, 0.1, 8000, 500, 20, 2.7e5, 1620, 1650, 0.3, [3]float64{0.2, 0.2, 0.2})

	sampler := solidify.New(0, g.OwnedIndexSpace(), 1650, 0.1, filepath.Join(tst.TempDir(), "sol"), "default", true, log)
	return New(g, beam, s, sampler, log, 0, 1e-4, numSteps, outputInterval, monitorInterval), outDir
}

// readSnapshotHeader decodes the leading (step int64, time float64) pair
// of a grid.Output binary snapshot, enough to check the step/time a Run
// actually recorded without depending on the rest of the file format.
func readSnapshotHeader(tst *testing.T, path string) (step int64, simTime float64) {
	data, err := os.ReadFile(path)
	if err != nil {
		tst.Fatalf("ReadFile(%q) failed: %v", path, err)
	}
	if len(data) < 16 {
		tst.Fatalf("snapshot %q is too short for a header: %d bytes", path, len(data))
	}
	step = int64(binary.LittleEndian.Uint64(data[0:8]))
	simTime = math.Float64frombits(binary.LittleEndian.Uint64(data[8:16]))
	return step, simTime
}

func TestRunAdvancesTimeByNumStepsTimesDt(tst *testing.T) {
	chk.PrintTitle("RunAdvancesTimeByNumStepsTimesDt")

	l, _ := buildLayer(tst, 10, 5, 5)
	if err := l.Run(context.Background()); err != nil {
		tst.Fatalf("Run failed: %v", err)
	}

	chk.Float64(tst, "final time", 1e-9, l.Time(), 10*1e-4)
}

func TestRunRespectsCancelledContext(tst *testing.T) {
	chk.PrintTitle("RunRespectsCancelledContext")

	l, _ := buildLayer(tst, 10, 5, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Run(ctx); err == nil {
		tst.Fatalf("expected Run to return an error for an already-cancelled context")
	}
}

func TestRunWritesOutputOnlyOnInterval(tst *testing.T) {
	chk.PrintTitle("RunWritesOutputOnlyOnInterval")

	numSteps, outputInterval, dt := 4, 2, 1e-4
	l, outDir := buildLayer(tst, numSteps, outputInterval, 100)
	if err := l.Run(context.Background()); err != nil {
		tst.Fatalf("Run failed: %v", err)
	}

	// output_interval=2 over 4 steps fires at n=1 (step 2) and n=3, the
	// last step (step 4): each snapshot must be labeled with the 1-based
	// step just taken and its elapsed simulated time, per spec §4.6.
	for _, step := range []int64{2, 4} {
		path := filepath.Join(outDir, fmt.Sprintf("temperature_p0_%010d.bin", step))
		gotStep, gotTime := readSnapshotHeader(tst, path)
		chk.IntAssert(int(gotStep), int(step))
		chk.Float64(tst, fmt.Sprintf("snapshot %d time", step), 1e-9, gotTime, float64(step)*dt)
	}

	// steps 1 and 3 fall between intervals and are not the last step, so
	// no snapshot is written for them.
	for _, step := range []int64{1, 3} {
		path := filepath.Join(outDir, fmt.Sprintf("temperature_p0_%010d.bin", step))
		if _, err := os.Stat(path); err == nil {
			tst.Fatalf("unexpected snapshot for off-interval step %d", step)
		}
	}
}
