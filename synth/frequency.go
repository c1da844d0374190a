package synth

import (
	"math"
	"strconv"
)

// Note is a MIDI note number in [0,127].
type Note int

const (
	MinNote Note = 0
	MaxNote Note = 127

	a4Freq = 440.0
	a4Note = 69
)

// Valid reports whether n lies in the MIDI note range.
func (n Note) Valid() bool {
	return n >= MinNote && n <= MaxNote
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String returns a readable note name such as "C4" or "A#3".
func (n Note) String() string {
	if !n.Valid() {
		return "note(" + strconv.Itoa(int(n)) + ")"
	}
	octave := int(n)/12 - 1
	return noteNames[int(n)%12] + strconv.Itoa(octave)
}

// FrequencyFromNote converts a MIDI note number to its fundamental in Hz
// (equal temperament, A4 = 440 Hz).
func FrequencyFromNote(note Note) float64 {
	return a4Freq * math.Exp2(float64(int(note)-a4Note)/12.0)
}
