package synth

import (
	"math"

	"github.com/pkg/errors"
)

// EnvelopeParams holds ADSR timing (seconds) and the sustain level.
type EnvelopeParams struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultEnvelope matches the default parameter table.
func DefaultEnvelope() EnvelopeParams {
	return EnvelopeParams{
		Attack:  0.25,
		Decay:   0.25,
		Sustain: 0.7,
		Release: 1.0,
	}
}

// Validate checks stage durations are positive and the sustain level is in [0,1].
func (p EnvelopeParams) Validate() error {
	if !(p.Attack > 0) || math.IsInf(p.Attack, 0) {
		return errors.Errorf("attack must be > 0 and finite: %v", p.Attack)
	}
	if !(p.Decay > 0) || math.IsInf(p.Decay, 0) {
		return errors.Errorf("decay must be > 0 and finite: %v", p.Decay)
	}
	if !(p.Release > 0) || math.IsInf(p.Release, 0) {
		return errors.Errorf("release must be > 0 and finite: %v", p.Release)
	}
	if !(p.Sustain >= 0 && p.Sustain <= 1) {
		return errors.Errorf("sustain must be in [0,1]: %v", p.Sustain)
	}
	return nil
}

// Breakpoint is one (offset, level) point of a gain curve. Offset is in
// seconds relative to the curve start.
type Breakpoint struct {
	Offset float64
	Level  float64
}

// Curve is an ordered, piecewise-linear gain schedule. Before the first
// breakpoint the first level holds, after the last the last level holds.
type Curve []Breakpoint

// Duration is the offset of the final breakpoint.
func (c Curve) Duration() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].Offset
}

// LevelAt evaluates the curve at offset seconds from its start.
func (c Curve) LevelAt(offset float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if offset <= c[0].Offset {
		return c[0].Level
	}
	for i := 1; i < len(c); i++ {
		next := c[i]
		if offset > next.Offset {
			continue
		}
		prev := c[i-1]
		span := next.Offset - prev.Offset
		if span <= 0 {
			return next.Level
		}
		t := (offset - prev.Offset) / span
		return prev.Level + (next.Level-prev.Level)*t
	}
	return c[len(c)-1].Level
}

// AttackDecayCurve ramps from silence to full level over the attack stage,
// then down to the sustain level over the decay stage.
func AttackDecayCurve(p EnvelopeParams) Curve {
	return Curve{
		{Offset: 0, Level: 0},
		{Offset: p.Attack, Level: 1},
		{Offset: p.Attack + p.Decay, Level: p.Sustain},
	}
}

// ReleaseCurve ramps from the given starting level to silence.
func ReleaseCurve(from float64, release float64) Curve {
	return Curve{
		{Offset: 0, Level: from},
		{Offset: release, Level: 0},
	}
}
