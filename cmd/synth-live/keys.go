package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/cwbudde/algo-polysynth/synth"
)

// Two piano rows starting at C: lower row white keys, upper row black keys.
const keyboardLayout = "awsedftgyhujkolp;'"

const (
	keyCtrlC = 3
	keyEsc   = 27
)

// keyboard turns key presses into engine events. Terminals report no key
// releases, so each press toggles its note.
type keyboard struct {
	e      *synth.Engine
	octave int
	on     map[synth.Note]bool
}

func newKeyboard(e *synth.Engine) *keyboard {
	return &keyboard{e: e, octave: 4, on: map[synth.Note]bool{}}
}

// handle applies one key. Returns false on quit.
func (k *keyboard) handle(b byte) bool {
	switch {
	case b == keyCtrlC || b == keyEsc || b == 'q':
		return false
	case b == ' ':
		k.e.AllNotesOff()
		clear(k.on)
	case b == 'z':
		k.octave = max(k.octave-1, 0)
	case b == 'x':
		k.octave = min(k.octave+1, 8)
	case b == '0':
		k.control(synth.CCGeneral5, synth.MaxControllerValue)
		k.control(synth.CCGeneral5, 0)
	case b >= '1' && b <= '9':
		k.control(synth.CCReverbSend, int(b-'1')*synth.MaxControllerValue/8)
	default:
		i := strings.IndexByte(keyboardLayout, b)
		if i < 0 {
			return true
		}
		note := synth.Note((k.octave+1)*12 + i)
		if !note.Valid() {
			return true
		}
		var err error
		if k.on[note] {
			delete(k.on, note)
			err = k.e.NoteOff(note)
		} else {
			k.on[note] = true
			err = k.e.NoteOn(note, 100)
		}
		if err != nil {
			logger.Debug("key ignored", "note", note.String(), "err", err)
		}
	}
	return true
}

func (k *keyboard) control(cc, value int) {
	if err := k.e.ControlChange(cc, value); err != nil {
		logger.Debug("control ignored", "cc", cc, "err", err)
	}
}

func runKeyboard(e *synth.Engine, in *os.File) error {
	fd := int(in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "raw mode")
	}
	defer term.Restore(fd, oldState)

	fmt.Print("keys: a-' play (toggle), z/x octave, 0 waveform, 1-9 reverb, space all off, q quit\r\n")
	k := newKeyboard(e)
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if !k.handle(buf[0]) {
			return nil
		}
	}
}
