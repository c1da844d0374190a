package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-polysynth/internal/wavio"
	"github.com/cwbudde/algo-polysynth/patch"
	"github.com/cwbudde/algo-polysynth/synth"
)

func TestNewMayflyConfig(t *testing.T) {
	tests := []struct {
		variant string
		wantErr bool
	}{
		{variant: "ma"},
		{variant: "desma"},
		{variant: "olce"},
		{variant: "eobbma"},
		{variant: "gsasma"},
		{variant: "mpma"},
		{variant: "aoblmoa"},
		{variant: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			cfg, err := newMayflyConfig(tt.variant, 10, 4, 20)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("newMayflyConfig(%q) expected error", tt.variant)
				}
				return
			}
			if err != nil {
				t.Fatalf("newMayflyConfig(%q) unexpected error: %v", tt.variant, err)
			}
			if cfg.ProblemSize != 4 {
				t.Fatalf("ProblemSize = %d, want 4", cfg.ProblemSize)
			}
			if cfg.NPop != 10 {
				t.Fatalf("NPop = %d, want 10", cfg.NPop)
			}
			if cfg.MaxIterations != 20 {
				t.Fatalf("MaxIterations = %d, want 20", cfg.MaxIterations)
			}
		})
	}
}

func TestKnobsRoundTrip(t *testing.T) {
	p := patch.Default()
	defs, err := knobDefs(p)
	if err != nil {
		t.Fatalf("knobDefs: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("unexpected knob count: got=%d want=4", len(defs))
	}
	vals := fromNormalized(toNormalized(p, defs), defs)
	want := synth.DefaultEnvelope()
	for name, w := range map[string]float64{
		synth.ParamAttack:  want.Attack,
		synth.ParamDecay:   want.Decay,
		synth.ParamSustain: want.Sustain,
		synth.ParamRelease: want.Release,
	} {
		if math.Abs(vals[name]-w) > 1e-9 {
			t.Fatalf("%s: got=%f want=%f", name, vals[name], w)
		}
	}

	clamped := fromNormalized([]float64{-1, 2}, defs)
	if clamped[synth.ParamAttack] != defs[0].Min || clamped[synth.ParamDecay] != defs[1].Max {
		t.Fatalf("expected clamping to range ends: got=%v", clamped)
	}
}

func TestFitEnvelopeImprovesOnSeed(t *testing.T) {
	const sr = 16000
	target := &fitConfig{
		base:         patch.Default(),
		sampleRate:   sr,
		note:         69,
		velocity:     100,
		releaseAfter: 0.3,
		tail:         0.4,
	}
	refVals := map[string]float64{
		synth.ParamAttack:  0.01,
		synth.ParamDecay:   0.1,
		synth.ParamSustain: 0.4,
		synth.ParamRelease: 0.2,
	}
	st, err := renderCandidate(target, refVals)
	if err != nil {
		t.Fatalf("renderCandidate: %v", err)
	}

	cfg := *target
	cfg.reference = wavio.StereoToMono(st)
	cfg.variant = "ma"
	cfg.pop = 4
	cfg.maxEvals = 24
	cfg.timeBudget = time.Minute
	cfg.seed = 3

	res, err := fitEnvelope(&cfg)
	if err != nil {
		t.Fatalf("fitEnvelope: %v", err)
	}
	if res.evals < 1 || res.evals > cfg.maxEvals+1 {
		t.Fatalf("unexpected eval count: got=%d max=%d", res.evals, cfg.maxEvals+1)
	}
	if res.render == nil {
		t.Fatalf("expected best render")
	}
	if !(res.metrics.Score >= 0 && res.metrics.Score <= 1) {
		t.Fatalf("unexpected score: got=%f", res.metrics.Score)
	}
}

func TestWritePatchReplacesEnvelope(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.json")
	if err := os.WriteFile(base, []byte(`{"max_voices": 6, "values": {"attack": 1.5, "cutoff": 800}}`), 0o644); err != nil {
		t.Fatalf("write base: %v", err)
	}
	out := filepath.Join(dir, "fit.json")
	env := synth.EnvelopeParams{Attack: 0.02, Decay: 0.3, Sustain: 0.5, Release: 0.8}
	if err := writePatch(out, base, env); err != nil {
		t.Fatalf("writePatch: %v", err)
	}

	p, err := patch.LoadJSON(out)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.MaxVoices != 6 {
		t.Fatalf("unexpected max voices: got=%d want=6", p.MaxVoices)
	}
	if got := p.Values[synth.ParamAttack]; got != env.Attack {
		t.Fatalf("unexpected attack: got=%f want=%f", got, env.Attack)
	}
	if got := p.Values[synth.ParamCutoff]; got != 800 {
		t.Fatalf("unexpected cutoff: got=%f want=800", got)
	}
}
