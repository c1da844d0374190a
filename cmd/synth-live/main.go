package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/algo-polysynth/patch"
	"github.com/cwbudde/algo-polysynth/render"
	"github.com/cwbudde/algo-polysynth/synth"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging (adds source location)")
	patchPath := flag.String("patch", "", "Patch JSON file path (optional)")
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	bufferSize := flag.Duration("buffer", 20*time.Millisecond, "Audio output buffer duration")
	midiPort := flag.String("midi", "", "Listen on the first MIDI input whose name contains this string")
	keys := flag.Bool("keys", false, "Play from the computer keyboard instead of MIDI")
	list := flag.Bool("list", false, "List MIDI input ports and exit")
	flag.Parse()

	initLogger(*debug)

	if *list {
		names, err := listMIDIInputs()
		if err != nil {
			die("Error listing MIDI inputs: %v", err)
		}
		for i, name := range names {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}
	if !*keys && *midiPort == "" {
		die("Nothing to play from: pass -midi <port> or -keys")
	}

	p := patch.Default()
	if *patchPath != "" {
		var err error
		p, err = patch.LoadJSON(*patchPath)
		if err != nil {
			die("Error loading patch %q: %v", *patchPath, err)
		}
	}

	reverb, err := p.Reverb(*sampleRate)
	if err != nil {
		die("Error building reverb: %v", err)
	}
	ropts := []render.Option{render.WithLogger(logger)}
	if reverb != nil {
		ropts = append(ropts, render.WithConvolution(reverb))
	}
	r, err := render.New(*sampleRate, ropts...)
	if err != nil {
		die("Error creating renderer: %v", err)
	}
	opts := append([]synth.Option{
		synth.WithClock(r),
		synth.WithLogger(logger),
		synth.WithParamListener(r.ApplyParams),
	}, p.EngineOptions()...)
	e, err := synth.New(r, opts...)
	if err != nil {
		die("Error creating engine: %v", err)
	}
	r.ApplyParams(e.Params())

	out, err := openOutput(r, *sampleRate, *bufferSize)
	if err != nil {
		die("Error opening audio output: %v", err)
	}
	defer out.Close()

	logger.Info("synth-live starting",
		"sample_rate", *sampleRate,
		"voices", e.Capacity(),
		"buffer", bufferSize.String(),
		"patch", *patchPath,
	)
	logger.Debug("parameters", "names", e.ParameterNames())

	if *keys {
		if err := runKeyboard(e, os.Stdin); err != nil {
			logger.Error("keyboard input failed", "err", err)
		}
		e.AllNotesOff()
		return
	}

	in, err := openMIDI(*midiPort, e)
	if err != nil {
		die("Error opening MIDI input: %v", err)
	}
	defer in.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	logger.Info("listening, press Ctrl-C to quit", "port", in.Name())
	<-sig
	e.AllNotesOff()
	logger.Info("shutting down")
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
