package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/analysis"
	"github.com/cwbudde/algo-polysynth/patch"
	"github.com/cwbudde/algo-polysynth/synth"
)

// writePatch copies the base patch JSON (if any) and replaces its envelope
// section with env.
func writePatch(path string, basePath string, env synth.EnvelopeParams) error {
	doc := map[string]json.RawMessage{}
	if basePath != "" {
		b, err := os.ReadFile(basePath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return errors.Wrapf(err, "parse %s", basePath)
		}
	}
	b, err := envelopeJSON(env)
	if err != nil {
		return err
	}
	doc["envelope"] = b
	// Fitted values win over a stale envelope in "values".
	if raw, ok := doc["values"]; ok {
		vals := map[string]float64{}
		if err := json.Unmarshal(raw, &vals); err != nil {
			return errors.Wrap(err, "parse values")
		}
		for _, name := range envelopeKnobs {
			delete(vals, name)
		}
		if doc["values"], err = json.Marshal(vals); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

func envelopeJSON(env synth.EnvelopeParams) (json.RawMessage, error) {
	return json.Marshal(patch.EnvelopeSetting{
		Attack:  &env.Attack,
		Decay:   &env.Decay,
		Sustain: &env.Sustain,
		Release: &env.Release,
	})
}

type fitReport struct {
	Reference string           `json:"reference"`
	Variant   string           `json:"variant"`
	Evals     int              `json:"evals"`
	ElapsedS  float64          `json:"elapsed_s"`
	Attack    float64          `json:"attack"`
	Decay     float64          `json:"decay"`
	Sustain   float64          `json:"sustain"`
	Release   float64          `json:"release"`
	Metrics   analysis.Metrics `json:"metrics"`
}

func writeReport(path string, reference string, variant string, res *fitResult) error {
	rep := fitReport{
		Reference: reference,
		Variant:   variant,
		Evals:     res.evals,
		ElapsedS:  res.elapsed.Seconds(),
		Attack:    res.envelope.Attack,
		Decay:     res.envelope.Decay,
		Sustain:   res.envelope.Sustain,
		Release:   res.envelope.Release,
		Metrics:   res.metrics,
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
