package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/internal/wavio"
	"github.com/cwbudde/algo-polysynth/patch"
	"github.com/cwbudde/algo-polysynth/render"
	"github.com/cwbudde/algo-polysynth/script"
	"github.com/cwbudde/algo-polysynth/synth"
)

func main() {
	scriptPath := flag.String("script", "", "Lua event script (overrides -notes)")
	notes := flag.String("notes", "60,64,67", "Comma-separated MIDI notes pressed together at t=0")
	velocity := flag.Int("velocity", 100, "MIDI velocity (1-127) for -notes")
	hold := flag.Float64("hold", 1.0, "Seconds the -notes chord is held")
	patchPath := flag.String("patch", "", "Patch JSON file path (optional)")
	sampleRate := flag.Int("sample-rate", 48000, "Render sample rate in Hz")
	tail := flag.Float64("tail", 2.0, "Seconds rendered after the last event")
	blockSize := flag.Int("block-size", render.DefaultBlockSize, "Render block size in frames")
	output := flag.String("output", "output.wav", "Output WAV file path")
	flag.Parse()

	p := patch.Default()
	if *patchPath != "" {
		var err error
		p, err = patch.LoadJSON(*patchPath)
		if err != nil {
			die("Error loading patch %q: %v", *patchPath, err)
		}
	}

	var events []synth.TimedEvent
	source := "notes " + *notes
	if *scriptPath != "" {
		var err error
		events, err = script.Load(context.Background(), *scriptPath)
		if err != nil {
			die("Error running script %q: %v", *scriptPath, err)
		}
		source = "script " + *scriptPath
	} else {
		chord, err := parseNotes(*notes)
		if err != nil {
			die("Invalid -notes: %v", err)
		}
		events = chordEvents(chord, *velocity, *hold)
	}

	reverb, err := p.Reverb(*sampleRate)
	if err != nil {
		die("Error building reverb: %v", err)
	}
	var ropts []render.Option
	if reverb != nil {
		ropts = append(ropts, render.WithConvolution(reverb))
	}
	r, err := render.New(*sampleRate, ropts...)
	if err != nil {
		die("Error creating renderer: %v", err)
	}
	opts := append([]synth.Option{
		synth.WithClock(r),
		synth.WithParamListener(r.ApplyParams),
	}, p.EngineOptions()...)
	e, err := synth.New(r, opts...)
	if err != nil {
		die("Error creating engine: %v", err)
	}
	r.ApplyParams(e.Params())

	fmt.Printf("Rendering %d events from %s, %d voices, %d Hz...\n", len(events), source, e.Capacity(), *sampleRate)

	samples, err := render.Offline(e, r, events, *tail, *blockSize)
	if err != nil {
		die("Error rendering: %v", err)
	}

	if err := wavio.WriteStereo(*output, samples, *sampleRate); err != nil {
		die("Error writing WAV %q: %v", *output, err)
	}

	frames := len(samples) / 2
	fmt.Printf("Wrote %d frames (%.2fs, RMS %.4f) to %s\n", frames, float64(frames)/float64(*sampleRate), wavio.RMS(samples), *output)
}

func parseNotes(s string) ([]synth.Note, error) {
	var out []synth.Note
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "note %q", field)
		}
		note := synth.Note(n)
		if !note.Valid() {
			return nil, errors.Errorf("note %d out of range", n)
		}
		out = append(out, note)
	}
	if len(out) == 0 {
		return nil, errors.New("no notes given")
	}
	return out, nil
}

// chordEvents presses every note at t=0 and releases them after hold seconds.
func chordEvents(notes []synth.Note, velocity int, hold float64) []synth.TimedEvent {
	events := make([]synth.TimedEvent, 0, 2*len(notes))
	for _, n := range notes {
		events = append(events, synth.TimedEvent{At: 0, Event: synth.NoteOn{Note: n, Velocity: velocity}})
	}
	for _, n := range notes {
		events = append(events, synth.TimedEvent{At: hold, Event: synth.NoteOff{Note: n}})
	}
	return events
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
