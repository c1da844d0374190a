package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/analysis"
	"github.com/cwbudde/algo-polysynth/internal/wavio"
	"github.com/cwbudde/algo-polysynth/patch"
	"github.com/cwbudde/algo-polysynth/render"
	"github.com/cwbudde/algo-polysynth/synth"
)

type knobDef struct {
	Name string
	Min  float64
	Max  float64
}

type fitConfig struct {
	base         *patch.Patch
	reference    []float64
	sampleRate   int
	note         int
	velocity     int
	releaseAfter float64
	tail         float64
	variant      string
	pop          int
	maxEvals     int
	timeBudget   time.Duration
	seed         int64
}

type fitResult struct {
	envelope synth.EnvelopeParams
	metrics  analysis.Metrics
	render   []float32
	evals    int
	elapsed  time.Duration
}

var envelopeKnobs = []string{synth.ParamAttack, synth.ParamDecay, synth.ParamSustain, synth.ParamRelease}

// knobDefs takes the search range of each envelope knob from the patch's
// parameter table.
func knobDefs(p *patch.Patch) ([]knobDef, error) {
	defs := make([]knobDef, 0, len(envelopeKnobs))
	for _, name := range envelopeKnobs {
		found := false
		for _, d := range p.Defs {
			if d.Name != name {
				continue
			}
			s, ok := d.Kind.(synth.Scalar)
			if !ok {
				return nil, errors.Errorf("parameter %q is not a scalar", name)
			}
			defs = append(defs, knobDef{Name: name, Min: s.Min, Max: s.Max})
			found = true
			break
		}
		if !found {
			return nil, errors.Errorf("patch has no %q parameter", name)
		}
	}
	return defs, nil
}

func fromNormalized(pos []float64, defs []knobDef) map[string]float64 {
	vals := make(map[string]float64, len(defs))
	for i, d := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		vals[d.Name] = d.Min + x*(d.Max-d.Min)
	}
	return vals
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// renderCandidate plays one note through a fresh engine with the envelope
// values applied and returns the stereo render. The convolution reverb is
// skipped.
func renderCandidate(cfg *fitConfig, vals map[string]float64) ([]float32, error) {
	r, err := render.New(cfg.sampleRate)
	if err != nil {
		return nil, err
	}
	opts := append([]synth.Option{
		synth.WithClock(r),
		synth.WithParamListener(r.ApplyParams),
	}, cfg.base.EngineOptions()...)
	for name, v := range vals {
		opts = append(opts, synth.WithParameterValue(name, v))
	}
	e, err := synth.New(r, opts...)
	if err != nil {
		return nil, err
	}
	r.ApplyParams(e.Params())

	n := synth.Note(cfg.note)
	events := []synth.TimedEvent{
		{At: 0, Event: synth.NoteOn{Note: n, Velocity: cfg.velocity}},
		{At: cfg.releaseAfter, Event: synth.NoteOff{Note: n}},
	}
	return render.Offline(e, r, events, cfg.tail, render.DefaultBlockSize)
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, errors.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

// fitEnvelope runs mayfly rounds until the eval or time budget is spent and
// keeps the best-scoring envelope.
func fitEnvelope(cfg *fitConfig) (*fitResult, error) {
	if cfg.pop < 2 {
		return nil, errors.Errorf("population must be >= 2: %d", cfg.pop)
	}
	if cfg.maxEvals < 1 {
		return nil, errors.Errorf("max evals must be >= 1: %d", cfg.maxEvals)
	}
	defs, err := knobDefs(cfg.base)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	deadline := start.Add(cfg.timeBudget)

	best := &fitResult{metrics: analysis.Metrics{Score: math.Inf(1)}}
	evals := 0
	evaluate := func(pos []float64) float64 {
		vals := fromNormalized(pos, defs)
		out, err := renderCandidate(cfg, vals)
		evals++
		if err != nil {
			return 2
		}
		m := analysis.Compare(cfg.reference, wavio.StereoToMono(out), cfg.sampleRate)
		if m.Score < best.metrics.Score {
			best.metrics = m
			best.render = out
			best.envelope = synth.EnvelopeParams{
				Attack:  vals[synth.ParamAttack],
				Decay:   vals[synth.ParamDecay],
				Sustain: vals[synth.ParamSustain],
				Release: vals[synth.ParamRelease],
			}
			fmt.Printf("Improved eval=%d score=%.4f sim=%.2f%%\n", evals, m.Score, m.Similarity*100)
		}
		return m.Score
	}

	// Seed with the patch's own envelope.
	evaluate(toNormalized(cfg.base, defs))

	for round := 1; evals < cfg.maxEvals && time.Now().Before(deadline); round++ {
		iters := max(1, (cfg.maxEvals-evals)/(2*cfg.pop))
		mc, err := newMayflyConfig(cfg.variant, cfg.pop, len(defs), iters)
		if err != nil {
			return nil, err
		}
		mc.Rand = rand.New(rand.NewSource(cfg.seed + int64(round)*7919))
		mc.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= cfg.maxEvals || time.Now().After(deadline) {
				return best.metrics.Score + 1
			}
			return evaluate(pos)
		}
		if _, err := runMayfly(mc); err != nil {
			return nil, errors.Wrapf(err, "mayfly round %d", round)
		}
	}

	if best.render == nil {
		return nil, errors.New("no candidate rendered")
	}
	best.evals = evals
	best.elapsed = time.Since(start)
	return best, nil
}

// toNormalized maps the patch's current envelope onto [0,1] knob positions.
func toNormalized(p *patch.Patch, defs []knobDef) []float64 {
	env := synth.DefaultEnvelope()
	if e, err := synth.New(nil, p.EngineOptions()...); err == nil {
		env = e.Params().Envelope
	}
	cur := map[string]float64{
		synth.ParamAttack:  env.Attack,
		synth.ParamDecay:   env.Decay,
		synth.ParamSustain: env.Sustain,
		synth.ParamRelease: env.Release,
	}
	pos := make([]float64, len(defs))
	for i, d := range defs {
		if d.Max > d.Min {
			pos[i] = clamp((cur[d.Name]-d.Min)/(d.Max-d.Min), 0, 1)
		}
	}
	return pos
}
