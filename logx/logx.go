// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package logx provides the rank-0-only, colorized logging idiom used
// throughout this repository, following the `Info` print-guard macro
// pattern of `if mpi.Rank() == 0 { io.Pf(...) }` call sites.
package logx

import "github.com/cpmech/gosl/io"

// Logger prints only on the given rank's root (rank 0).
type Logger struct {
	rank int
}

// New returns a Logger bound to the calling rank.
func New(rank int) *Logger {
	return &Logger{rank: rank}
}

// Info prints an informational message on rank 0.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.rank != 0 {
		return
	}
	io.Pf(msg, args...)
}

// Warn prints a yellow warning on rank 0; used for recovered errors such
// as partition substitution or event-buffer overflow.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.rank != 0 {
		return
	}
	io.Pfyel(msg, args...)
}

// Error prints a red error on rank 0, used just before a fatal panic
// unwinds to main.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.rank != 0 {
		return
	}
	io.PfRed(msg, args...)
}
