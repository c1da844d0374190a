package synth

import "fmt"

// Event is a parsed input message: NoteOn, NoteOff or ControlChange.
type Event interface {
	event()
}

// NoteOn presses a key. Velocity 0 is treated as a release.
type NoteOn struct {
	Note     Note
	Velocity int
}

// NoteOff releases a key.
type NoteOff struct {
	Note     Note
	Velocity int
}

// ControlChange sets controller Controller to Value (0..127).
type ControlChange struct {
	Controller int
	Value      int
}

func (NoteOn) event()        {}
func (NoteOff) event()       {}
func (ControlChange) event() {}

func (e NoteOn) String() string  { return fmt.Sprintf("note_on %s vel=%d", e.Note, e.Velocity) }
func (e NoteOff) String() string { return fmt.Sprintf("note_off %s", e.Note) }
func (e ControlChange) String() string {
	return fmt.Sprintf("cc %d=%d", e.Controller, e.Value)
}

// TimedEvent is an event scheduled at At seconds on the logical time axis.
type TimedEvent struct {
	At    float64
	Event Event
}
