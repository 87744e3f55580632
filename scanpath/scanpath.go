// Copyright (c) 2024 Oak Ridge National Laboratory. All rights reserved.
// Use of this source code is governed by a BSD-3-Clause license that can
// be found in the LICENSE file.

// Package scanpath implements the time-parameterized beam trajectory
// that drives the moving heat source: a sequence of dwell and traversal
// segments loaded from a plain-text file, queried at simulated time to
// yield the beam's current position and power.
package scanpath

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cpmech/gosl/chk"
)

// eps is the floating-point tolerance used for end-of-path and
// segment-boundary comparisons, matching MovingBeam::eps.
const eps = 1e-10

// Mode distinguishes a traversed line segment from a dwell/point.
type Mode int

const (
	// Traverse is a straight-line move at constant scan speed.
	Traverse Mode = 0
	// Dwell is a stationary hold for a fixed duration.
	Dwell Mode = 1
)

// Segment is one record of the scan path: a mode, a target position, a
// power level, a mode-dependent parameter (speed for Traverse, duration
// for Dwell), and the absolute simulated time at which the segment
// completes.
type Segment struct {
	Mode      Mode
	Position  [3]float64
	Power     float64
	Parameter float64
	TimeEnd   float64
}

// Path is an ordered sequence of segments, queried by simulated time to
// produce the beam's position and power.
type Path struct {
	segments []Segment
	index    int // cached position of the last active segment; monotonic queries are O(1)
	lastPos  [3]float64
	endTime  float64
}

// Load reads a scan-path text file: a discarded header line followed by
// "mode x y z power parameter" records, one per line. It inserts the
// sentinel dwell-at-origin segment at index 0, computes every segment's
// TimeEnd, and derives the path's end time (the last TimeEnd whose power
// exceeds eps).
func Load(path string) (*Path, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scanpath: cannot open %q: %w", path, err)
	}
	defer f.Close()

	p := &Path{
		segments: []Segment{{Mode: Dwell, Position: [3]float64{0, 0, 0}, Power: 0, Parameter: 0, TimeEnd: 0}},
	}

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, fmt.Errorf("scanpath: %q is empty, missing header line", path)
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seg, err := parseSegment(line)
		if err != nil {
			return nil, fmt.Errorf("scanpath: %q line %d: %w", path, lineNo, err)
		}
		p.segments = append(p.segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanpath: error reading %q: %w", path, err)
	}
	if len(p.segments) == 1 {
		return nil, fmt.Errorf("scanpath: %q has no segments", path)
	}

	p.computeTimeEnds()
	p.endTime = p.lastPoweredTime()
	return p, nil
}

func parseSegment(line string) (Segment, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Segment{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}
	mode, err := strconv.Atoi(fields[0])
	if err != nil {
		return Segment{}, fmt.Errorf("invalid mode %q: %w", fields[0], err)
	}
	if mode != int(Traverse) && mode != int(Dwell) {
		return Segment{}, fmt.Errorf("mode must be 0 or 1, got %d", mode)
	}
	var pos [3]float64
	for d := 0; d < 3; d++ {
		pos[d], err = strconv.ParseFloat(fields[1+d], 64)
		if err != nil {
			return Segment{}, fmt.Errorf("invalid position component %q: %w", fields[1+d], err)
		}
	}
	power, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid power %q: %w", fields[4], err)
	}
	param, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return Segment{}, fmt.Errorf("invalid parameter %q: %w", fields[5], err)
	}
	return Segment{Mode: Mode(mode), Position: pos, Power: power, Parameter: param}, nil
}

// computeTimeEnds derives each segment's absolute completion time from
// its predecessor, following MovingBeam::readPath exactly: dwell adds its
// duration; traverse adds distance/speed.
func (p *Path) computeTimeEnds() {
	for i := 1; i < len(p.segments); i++ {
		prev := p.segments[i-1]
		seg := &p.segments[i]
		if seg.Mode == Dwell {
			seg.TimeEnd = prev.TimeEnd + seg.Parameter
			continue
		}
		d := distance(prev.Position, seg.Position)
		if seg.Parameter <= 0 {
			chk.Panic("scanpath: traverse segment %d has non-positive speed %v", i, seg.Parameter)
		}
		seg.TimeEnd = prev.TimeEnd + d/seg.Parameter
	}
}

func (p *Path) lastPoweredTime() float64 {
	for i := len(p.segments) - 1; i > 0; i-- {
		if p.segments[i].Power > eps {
			return p.segments[i].TimeEnd
		}
	}
	return 0
}

func distance(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// EndTime returns the simulated time past which the beam power is
// permanently zero.
func (p *Path) EndTime() float64 { return p.endTime }

// Query returns the beam's position and power at simulated time t,
// implementing MovingBeam::move/findIndex: an end-of-path early return,
// a cached forward-or-backward search for the active segment, a trailing
// zero-duration-dwell skip, linear position interpolation, and the
// eps-gated power hold.
func (p *Path) Query(t float64) (position [3]float64, power float64) {
	if t-p.endTime > eps {
		return p.lastPos, 0
	}

	i := p.findIndex(t)
	p.index = i

	if p.segments[i].Mode == Dwell {
		p.lastPos = p.segments[i].Position
	} else {
		prev := p.segments[i-1]
		seg := p.segments[i]
		dt := seg.TimeEnd - prev.TimeEnd
		var frac float64
		if dt > 0 {
			frac = (t - prev.TimeEnd) / dt
		}
		for d := 0; d < 3; d++ {
			p.lastPos[d] = prev.Position[d] + frac*(seg.Position[d]-prev.Position[d])
		}
	}

	if t-p.segments[i-1].TimeEnd > eps {
		power = p.segments[i].Power
	} else {
		power = p.segments[i-1].Power
	}
	return p.lastPos, power
}

// findIndex locates the active segment for query time t, starting from
// the cached previous index and walking backward then forward, then
// skipping any trailing zero-duration dwell segments, clamped to
// [0, N-1]. The sentinel at index 0 is a zero-duration dwell, so the skip
// always moves past it and the returned index is at least 1.
func (p *Path) findIndex(t float64) int {
	n := len(p.segments) - 1

	i := p.index
	for i > 0 && p.segments[i].TimeEnd > t {
		i--
	}
	for i < n && p.segments[i].TimeEnd < t {
		i++
	}
	for i < n {
		if p.segments[i].Mode == Dwell && p.segments[i].Parameter == 0 {
			i++
		} else {
			break
		}
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

// Segments exposes the loaded segment list for inspection and testing.
func (p *Path) Segments() []Segment {
	return p.segments
}
