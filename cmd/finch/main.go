// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/ORNL-MDF/finch/boundary"
	"github.com/ORNL-MDF/finch/config"
	"github.com/ORNL-MDF/finch/grid"
	"github.com/ORNL-MDF/finch/layer"
	"github.com/ORNL-MDF/finch/logx"
	"github.com/ORNL-MDF/finch/scanpath"
	"github.com/ORNL-MDF/finch/solidify"
	"github.com/ORNL-MDF/finch/solver"
)

func main() {
	defer func() {
		failed := false
		if err := recover(); err != nil {
			failed = true
			if mpi.Rank() == 0 {
				chk.Verbose = true
				for i := 8; i > 3; i-- {
					chk.CallerInfo(i)
				}
				io.PfRed("ERROR: %v\n", err)
			}
		}
		mpi.Stop(false)
		if failed {
			os.Exit(1)
		}
	}()
	mpi.Start(false)

	inputPath := flag.String("i", "", "path to the run's JSON configuration file")
	flag.Parse()
	if *inputPath == "" {
		chk.Panic("missing required -i <path> flag")
	}

	rank := 0
	if mpi.IsOn() {
		rank = mpi.Rank()
	}
	log := logx.New(rank)

	cfg := config.Load(*inputPath)
	log.Info("finch: loaded configuration from %s\n", *inputPath)

	boundarySet, err := boundary.New(cfg.Faces())
	if err != nil {
		chk.Panic("invalid boundary configuration: %v", err)
	}

	outDir := "output"
	g, err := grid.New(grid.Descriptor{
		CellSize:         cfg.Space.CellSize,
		GlobalLowCorner:  cfg.Space.GlobalLowCorner,
		GlobalHighCorner: cfg.Space.GlobalHighCorner,
		RanksPerDim:      cfg.Space.RanksPerDim,
	}, boundarySet, cfg.Space.InitialTemperature, outDir, log)
	if err != nil {
		chk.Panic("grid construction failed: %v", err)
	}

	beam, err := scanpath.Load(cfg.Source.ScanPathFile)
	if err != nil {
		chk.Panic("scan path load failed: %v", err)
	}

	s := solver.New(cfg.Time.TimeStep, cfg.Space.CellSize,
		cfg.Properties.Density, cfg.Properties.SpecificHeat, cfg.Properties.ThermalConductivity,
		cfg.Properties.LatentHeat, cfg.Properties.Solidus, cfg.Properties.Liquidus,
		cfg.Source.Absorption, cfg.Source.TwoSigma)

	var sampler *solidify.Data
	if cfg.Sampling != nil && cfg.Sampling.Enabled {
		sampler = solidify.New(rank, g.OwnedIndexSpace(), cfg.Properties.Liquidus, cfg.Space.CellSize,
			cfg.Sampling.DirectoryName, cfg.Sampling.Format, true, log)
	} else {
		sampler = solidify.New(rank, g.OwnedIndexSpace(), cfg.Properties.Liquidus, cfg.Space.CellSize,
			"", "default", false, log)
	}

	l := layer.New(g, beam, s, sampler, log, cfg.Time.StartTime, cfg.Time.TimeStep,
		cfg.Time.NumSteps, cfg.Time.OutputInterval, cfg.Time.MonitorInterval)

	if err := l.Run(context.Background()); err != nil {
		chk.Panic("run failed: %v", err)
	}

	if err := sampler.Write(); err != nil {
		chk.Panic("solidification data write failed: %v", err)
	}

	log.Info("finch: run complete at t=%.6f\n", l.Time())
}
