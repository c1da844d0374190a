package main

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-polysynth/synth"
)

func newTestEngine(t *testing.T) *synth.Engine {
	t.Helper()
	e, err := synth.New(synth.DiscardSink{})
	if err != nil {
		t.Fatalf("synth.New: %v", err)
	}
	return e
}

func TestToEvent(t *testing.T) {
	cases := []struct {
		name string
		msg  midi.Message
		want synth.Event
	}{
		{"note on", midi.NoteOn(0, 60, 90), synth.NoteOn{Note: 60, Velocity: 90}},
		{"note off", midi.NoteOff(3, 61), synth.NoteOff{Note: 61}},
		{"zero velocity", midi.NoteOn(0, 62, 0), synth.NoteOff{Note: 62}},
		{"control", midi.ControlChange(1, 91, 64), synth.ControlChange{Controller: 91, Value: 64}},
	}
	for _, tc := range cases {
		got, ok := toEvent(tc.msg)
		if !ok {
			t.Fatalf("%s: message not converted", tc.name)
		}
		if got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
	if _, ok := toEvent(midi.Pitchbend(0, 100)); ok {
		t.Fatalf("expected pitch bend to be ignored")
	}
}

func TestKeyboardTogglesNotes(t *testing.T) {
	e := newTestEngine(t)
	k := newKeyboard(e)

	k.handle('a')
	k.handle('d')
	if got := e.HeldNotes(); len(got) != 2 || got[0] != 60 || got[1] != 64 {
		t.Fatalf("unexpected held notes: got=%v want=[60 64]", got)
	}
	k.handle('a')
	if got := e.HeldNotes(); len(got) != 1 || got[0] != 64 {
		t.Fatalf("unexpected held notes after toggle: got=%v want=[64]", got)
	}
	k.handle(' ')
	if got := e.HeldNotes(); len(got) != 0 {
		t.Fatalf("expected no held notes after all-off: got=%v", got)
	}

	k.handle('x')
	k.handle('a')
	if got := e.HeldNotes(); len(got) != 1 || got[0] != 72 {
		t.Fatalf("unexpected note after octave up: got=%v want=[72]", got)
	}
}

func TestKeyboardControls(t *testing.T) {
	e := newTestEngine(t)
	k := newKeyboard(e)

	before := e.Params().Waveform
	k.handle('0')
	if got := e.Params().Waveform; got == before {
		t.Fatalf("expected waveform to advance from %v", before)
	}
	k.handle('1')
	if got := e.Params().ReverbWet; got != 0 {
		t.Fatalf("unexpected reverb wet: got=%f want=0", got)
	}
	k.handle('9')
	if got := e.Params().ReverbWet; got != 1 {
		t.Fatalf("unexpected reverb wet: got=%f want=1", got)
	}
	if k.handle('q') {
		t.Fatalf("expected q to quit")
	}
	if !k.handle('m') {
		t.Fatalf("unmapped key must not quit")
	}
}
