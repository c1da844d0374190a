package synth

import (
	"math"
	"testing"
)

func TestAttackDecayCurve(t *testing.T) {
	env := EnvelopeParams{Attack: 0.1, Decay: 0.2, Sustain: 0.5, Release: 1}
	c := AttackDecayCurve(env)
	cases := []struct {
		at, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.05, 0.5},
		{0.1, 1},
		{0.2, 0.75},
		{0.3, 0.5},
		{10, 0.5},
	}
	for _, tc := range cases {
		if got := c.LevelAt(tc.at); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("LevelAt(%f): got=%f want=%f", tc.at, got, tc.want)
		}
	}
	if math.Abs(c.Duration()-0.3) > 1e-12 {
		t.Fatalf("duration: got=%f want=0.3", c.Duration())
	}
}

func TestReleaseCurve(t *testing.T) {
	c := ReleaseCurve(0.6, 2)
	if got := c.LevelAt(1); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("midpoint: got=%f want=0.3", got)
	}
	if got := c.LevelAt(5); got != 0 {
		t.Fatalf("after end: got=%f want=0", got)
	}
}

func TestEmptyCurve(t *testing.T) {
	var c Curve
	if c.LevelAt(1) != 0 || c.Duration() != 0 {
		t.Fatalf("empty curve should be silent")
	}
}

func TestEnvelopeValidate(t *testing.T) {
	if err := DefaultEnvelope().Validate(); err != nil {
		t.Fatalf("default envelope invalid: %v", err)
	}
	bad := []EnvelopeParams{
		{Attack: 0, Decay: 1, Sustain: 0.5, Release: 1},
		{Attack: 1, Decay: -1, Sustain: 0.5, Release: 1},
		{Attack: 1, Decay: 1, Sustain: 1.5, Release: 1},
		{Attack: 1, Decay: 1, Sustain: 0.5, Release: math.Inf(1)},
		{Attack: math.NaN(), Decay: 1, Sustain: 0.5, Release: 1},
	}
	for _, p := range bad {
		if err := p.Validate(); err == nil {
			t.Fatalf("expected error for %+v", p)
		}
	}
}

func TestVoiceGainAndState(t *testing.T) {
	env := EnvelopeParams{Attack: 0.1, Decay: 0.1, Sustain: 0.4, Release: 0.5}
	v := newVoice(VoiceConfig{Note: 60, Frequency: 261.6, Envelope: env}, 1, 2)
	if v.State(2.05) != Attacking {
		t.Fatalf("state at 2.05: got=%s want=attacking", v.State(2.05))
	}
	if v.State(3) != Sustaining {
		t.Fatalf("state at 3: got=%s want=sustaining", v.State(3))
	}
	c := v.beginRelease(2.05, env.Release)
	if math.Abs(c[0].Level-0.5) > 1e-12 {
		t.Fatalf("release start: got=%f want=0.5", c[0].Level)
	}
	if v.State(2.06) != Releasing {
		t.Fatalf("state after release: got=%s want=releasing", v.State(2.06))
	}
	if at, ok := v.ReleaseStart(); !ok || at != 2.05 {
		t.Fatalf("release start: got=%f,%v want=2.05,true", at, ok)
	}
	if got := v.GainAt(2.05 + 0.25); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("release midpoint: got=%f want=0.25", got)
	}
}
