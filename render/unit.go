package render

import (
	"math"

	"github.com/cwbudde/algo-polysynth/synth"
)

// point is one breakpoint on the absolute logical time axis.
type point struct {
	at    float64
	level float64
}

// gainTimeline is a piecewise-linear gain automation lane. The level before
// the first point is zero.
type gainTimeline struct {
	points []point
}

func (g *gainTimeline) levelAt(t float64) float64 {
	pts := g.points
	if len(pts) == 0 || t < pts[0].at {
		return 0
	}
	for i := 1; i < len(pts); i++ {
		next := pts[i]
		if t >= next.at {
			continue
		}
		prev := pts[i-1]
		span := next.at - prev.at
		if span <= 0 {
			return next.level
		}
		return prev.level + (next.level-prev.level)*(t-prev.at)/span
	}
	return pts[len(pts)-1].level
}

// cancelFrom drops every point at or after t and holds the level reached at t.
func (g *gainTimeline) cancelFrom(t float64) {
	level := g.levelAt(t)
	keep := g.points[:0]
	for _, p := range g.points {
		if p.at < t {
			keep = append(keep, p)
		}
	}
	g.points = append(keep, point{at: t, level: level})
}

// schedule installs curve starting at start, replacing anything scheduled
// from start onwards.
func (g *gainTimeline) schedule(curve synth.Curve, start float64) {
	keep := g.points[:0]
	for _, p := range g.points {
		if p.at < start {
			keep = append(keep, p)
		}
	}
	g.points = keep
	for _, bp := range curve {
		g.points = append(g.points, point{at: start + bp.Offset, level: bp.Level})
	}
}

func (g *gainTimeline) end() float64 {
	if len(g.points) == 0 {
		return 0
	}
	return g.points[len(g.points)-1].at
}

// unit is one oscillator with its gain lane.
type unit struct {
	handle   synth.UnitHandle
	freq     float64
	waveform synth.Waveform
	start    float64
	phase    float64
	gain     gainTimeline
	dispose  bool
}

func newUnit(d synth.CreateOscillator) *unit {
	return &unit{
		handle:   d.Unit,
		freq:     d.Frequency,
		waveform: d.Waveform,
		start:    d.Start,
	}
}

// finished reports whether a unit marked for disposal has passed its last
// breakpoint at time t.
func (u *unit) finished(t float64) bool {
	return u.dispose && t >= u.gain.end()
}

// sample returns the oscillator output at time t and advances the phase by
// one sample period.
func (u *unit) sample(t float64, invSampleRate float64) float64 {
	if t < u.start {
		return 0
	}
	out := oscillator(u.waveform, u.phase) * u.gain.levelAt(t)
	u.phase += u.freq * invSampleRate
	if u.phase >= 1 {
		u.phase -= math.Floor(u.phase)
	}
	return out
}

// oscillator evaluates one cycle of w at phase in [0,1).
func oscillator(w synth.Waveform, phase float64) float64 {
	switch w {
	case synth.WaveSquare:
		if phase < 0.5 {
			return 1
		}
		return -1
	case synth.WaveSawtooth:
		return 2*phase - 1
	case synth.WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
