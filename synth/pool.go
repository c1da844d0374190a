package synth

import (
	"log/slog"

	"github.com/pkg/errors"
)

// DefaultMaxVoices is the default polyphony.
const DefaultMaxVoices = 4

var (
	// ErrCapacityExceeded is returned by Create when every slot is taken.
	// Callers must release a voice first.
	ErrCapacityExceeded = errors.New("voice pool at capacity")
	// ErrVoiceExists is returned by Create when the note is already live.
	ErrVoiceExists = errors.New("note already has a live voice")
)

// VoicePool is a fixed-capacity registry of live voices keyed by note.
type VoicePool struct {
	slots    []*Voice
	size     int
	sink     Sink
	nextUnit UnitHandle
	logger   *slog.Logger
}

// NewVoicePool creates a pool with the given capacity (at least 1) sending
// directives to sink.
func NewVoicePool(capacity int, sink Sink, logger *slog.Logger) *VoicePool {
	if capacity < 1 {
		capacity = 1
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoicePool{
		slots:  make([]*Voice, capacity),
		sink:   sink,
		logger: logger,
	}
}

func (p *VoicePool) Capacity() int { return len(p.slots) }
func (p *VoicePool) Size() int     { return p.size }

// Contains reports whether note has a live voice.
func (p *VoicePool) Contains(note Note) bool {
	return p.indexOf(note) >= 0
}

// Lookup returns the live voice for note.
func (p *VoicePool) Lookup(note Note) (*Voice, bool) {
	i := p.indexOf(note)
	if i < 0 {
		return nil, false
	}
	return p.slots[i], true
}

// Notes returns live notes in slot order.
func (p *VoicePool) Notes() []Note {
	out := make([]Note, 0, p.size)
	for _, v := range p.slots {
		if v != nil {
			out = append(out, v.note)
		}
	}
	return out
}

// Voices returns live voices in slot order.
func (p *VoicePool) Voices() []*Voice {
	out := make([]*Voice, 0, p.size)
	for _, v := range p.slots {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// Create starts a voice: instantiates an oscillator and schedules the
// attack/decay ramp from now, then registers the voice under its note.
func (p *VoicePool) Create(cfg VoiceConfig, now float64) (*Voice, error) {
	if p.indexOf(cfg.Note) >= 0 {
		return nil, errors.Wrapf(ErrVoiceExists, "create %s", cfg.Note)
	}
	free := p.freeSlot()
	if p.size >= len(p.slots) || free < 0 {
		return nil, errors.Wrapf(ErrCapacityExceeded, "create %s (capacity %d)", cfg.Note, len(p.slots))
	}

	p.nextUnit++
	v := newVoice(cfg, p.nextUnit, now)
	p.sink.Submit(
		CreateOscillator{Unit: v.unit, Frequency: cfg.Frequency, Waveform: cfg.Waveform, Start: now},
		ScheduleGainRamp{Unit: v.unit, Breakpoints: v.curve, Start: now},
	)
	p.slots[free] = v
	p.size++
	p.logger.Debug("voice created", "note", cfg.Note.String(), "unit", uint64(v.unit), "hz", cfg.Frequency, "slot", free)
	return v, nil
}

// BeginRelease ramps the note's voice from its instantaneous gain to silence
// over env.Release and removes it from the pool. The audio collaborator
// disposes the unit once the ramp ends. Returns false when the note has no
// live voice.
func (p *VoicePool) BeginRelease(note Note, env EnvelopeParams, now float64) bool {
	i := p.indexOf(note)
	if i < 0 {
		return false
	}
	v := p.slots[i]
	curve := v.beginRelease(now, env.Release)
	p.sink.Submit(
		CancelScheduledRamps{Unit: v.unit, At: now},
		ScheduleGainRamp{Unit: v.unit, Breakpoints: curve, Start: now},
		DisposeAfterRampCompletes{Unit: v.unit},
	)
	p.slots[i] = nil
	p.size--
	p.logger.Debug("voice released", "note", note.String(), "unit", uint64(v.unit), "from_gain", curve[0].Level)
	return true
}

func (p *VoicePool) indexOf(note Note) int {
	for i, v := range p.slots {
		if v != nil && v.note == note {
			return i
		}
	}
	return -1
}

func (p *VoicePool) freeSlot() int {
	for i, v := range p.slots {
		if v == nil {
			return i
		}
	}
	return -1
}
