package main

import (
	"strings"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cwbudde/algo-polysynth/synth"
)

func listMIDIInputs() ([]string, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// midiInput feeds one MIDI input port into an engine.
type midiInput struct {
	port drivers.In
	stop func()
}

func openMIDI(substr string, e *synth.Engine) (*midiInput, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "list inputs")
	}
	var found drivers.In
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(substr)) {
			found = in
			break
		}
	}
	if found == nil {
		return nil, errors.Errorf("no MIDI input matching %q", substr)
	}
	if err := found.Open(); err != nil {
		return nil, errors.Wrapf(err, "open %s", found.String())
	}
	name := found.String()
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		ev, ok := toEvent(msg)
		if !ok {
			logger.Debug("unhandled MIDI message", "msg", msg.String())
			return
		}
		if err := e.HandleEvent(ev); err != nil {
			logger.Debug("event rejected", "event", ev, "err", err)
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("MIDI listener error, releasing all notes", "device", name, "err", listenErr)
		e.AllNotesOff()
	}))
	if err != nil {
		_ = found.Close()
		return nil, errors.Wrapf(err, "listen %s", name)
	}
	logger.Info("MIDI input connected", "device", name)
	return &midiInput{port: found, stop: stop}, nil
}

func (m *midiInput) Name() string { return m.port.String() }

func (m *midiInput) Close() error {
	m.stop()
	err := m.port.Close()
	drivers.Close()
	return err
}

// toEvent converts a channel voice message to an engine event. Channels are
// merged.
func toEvent(msg midi.Message) (synth.Event, bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return synth.NoteOn{Note: synth.Note(key), Velocity: int(vel)}, true
	case msg.GetNoteEnd(&ch, &key):
		return synth.NoteOff{Note: synth.Note(key)}, true
	case msg.GetControlChange(&ch, &cc, &val):
		return synth.ControlChange{Controller: int(cc), Value: int(val)}, true
	}
	return nil, false
}
