package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-polysynth/internal/wavio"
	"github.com/cwbudde/algo-polysynth/patch"
)

func main() {
	referencePath := flag.String("reference", "", "Reference WAV to fit (required)")
	patchPath := flag.String("patch", "", "Base patch JSON (optional)")
	note := flag.Int("note", 60, "MIDI note played in the reference")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127)")
	releaseAfter := flag.Float64("release-after", 0.5, "NoteOff time in seconds")
	tail := flag.Float64("tail", 1.5, "Seconds rendered after NoteOff")
	sampleRate := flag.Int("sample-rate", 48000, "Fit sample rate in Hz (reference is resampled)")
	variant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	pop := flag.Int("mayfly-pop", 10, "Mayfly population size per sex")
	maxEvals := flag.Int("max-evals", 400, "Maximum candidate renders")
	timeBudget := flag.Float64("time-budget", 60, "Time budget in seconds")
	seed := flag.Int64("seed", 1, "Random seed")
	outputPatch := flag.String("output-patch", "", "Write the base patch with the fitted envelope here (optional)")
	outputWAV := flag.String("output-wav", "", "Write the best render here (optional)")
	reportPath := flag.String("report", "", "Write a JSON metrics report here (optional)")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}

	base := patch.Default()
	if *patchPath != "" {
		var err error
		base, err = patch.LoadJSON(*patchPath)
		if err != nil {
			die("Error loading patch %q: %v", *patchPath, err)
		}
	}

	ref, refRate, err := wavio.ReadMono(*referencePath)
	if err != nil {
		die("Error reading reference %q: %v", *referencePath, err)
	}
	ref, err = wavio.Resample(ref, refRate, *sampleRate)
	if err != nil {
		die("Error resampling reference: %v", err)
	}

	cfg := &fitConfig{
		base:         base,
		reference:    ref,
		sampleRate:   *sampleRate,
		note:         *note,
		velocity:     *velocity,
		releaseAfter: *releaseAfter,
		tail:         *tail,
		variant:      *variant,
		pop:          *pop,
		maxEvals:     *maxEvals,
		timeBudget:   time.Duration(*timeBudget * float64(time.Second)),
		seed:         *seed,
	}
	fmt.Printf("Fitting envelope of %s (%d frames at %d Hz, note %d) with %s, pop %d, %d evals...\n",
		*referencePath, len(ref), *sampleRate, *note, *variant, *pop, *maxEvals)

	res, err := fitEnvelope(cfg)
	if err != nil {
		die("Fit failed: %v", err)
	}

	env := res.envelope
	fmt.Printf("Best after %d evals (%.1fs): score=%.4f sim=%.2f%%\n", res.evals, res.elapsed.Seconds(), res.metrics.Score, res.metrics.Similarity*100)
	fmt.Printf("  attack=%.4fs decay=%.4fs sustain=%.4f release=%.4fs\n", env.Attack, env.Decay, env.Sustain, env.Release)
	fmt.Printf("  envelope_rmse=%.2fdB peak_diff=%.3fs pitch_err=%.1fc\n", res.metrics.EnvelopeRMSEDB, res.metrics.PeakTimeDiffS, res.metrics.PitchErrorCents)

	if *outputPatch != "" {
		if err := writePatch(*outputPatch, *patchPath, env); err != nil {
			die("Error writing patch %q: %v", *outputPatch, err)
		}
		fmt.Printf("Wrote patch to %s\n", *outputPatch)
	}
	if *outputWAV != "" {
		if err := wavio.WriteStereo(*outputWAV, res.render, *sampleRate); err != nil {
			die("Error writing WAV %q: %v", *outputWAV, err)
		}
		fmt.Printf("Wrote best render to %s\n", *outputWAV)
	}
	if *reportPath != "" {
		if err := writeReport(*reportPath, *referencePath, *variant, res); err != nil {
			die("Error writing report %q: %v", *reportPath, err)
		}
		fmt.Printf("Wrote report to %s\n", *reportPath)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
