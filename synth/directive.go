package synth

// UnitHandle identifies one audio unit (oscillator + gain stage) owned by the
// audio collaborator. Handles are allocated by the engine and never reused.
type UnitHandle uint64

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return "unknown"
	}
	return waveformNames[w]
}

// ParseWaveform maps a waveform name to its value.
func ParseWaveform(name string) (Waveform, bool) {
	for i, n := range waveformNames {
		if n == name {
			return Waveform(i), true
		}
	}
	return WaveSine, false
}

// Directive is a one-shot command for the audio collaborator.
type Directive interface {
	Target() UnitHandle
	directive()
}

// CreateOscillator starts a new unit at Frequency from logical time Start.
type CreateOscillator struct {
	Unit      UnitHandle
	Frequency float64
	Waveform  Waveform
	Start     float64
}

// ScheduleGainRamp installs Breakpoints on the unit's gain, with offsets
// relative to Start.
type ScheduleGainRamp struct {
	Unit        UnitHandle
	Breakpoints Curve
	Start       float64
}

// CancelScheduledRamps drops every scheduled ramp from At onwards, holding the
// gain reached at At.
type CancelScheduledRamps struct {
	Unit UnitHandle
	At   float64
}

// DisposeAfterRampCompletes marks the unit for teardown once its last
// scheduled breakpoint has passed.
type DisposeAfterRampCompletes struct {
	Unit UnitHandle
}

func (d CreateOscillator) Target() UnitHandle          { return d.Unit }
func (d ScheduleGainRamp) Target() UnitHandle          { return d.Unit }
func (d CancelScheduledRamps) Target() UnitHandle      { return d.Unit }
func (d DisposeAfterRampCompletes) Target() UnitHandle { return d.Unit }

func (CreateOscillator) directive()          {}
func (ScheduleGainRamp) directive()          {}
func (CancelScheduledRamps) directive()      {}
func (DisposeAfterRampCompletes) directive() {}

// Sink receives directive batches. Implementations must install each batch
// atomically: the audio path never observes part of a batch. Submit must not
// block on audio rendering.
type Sink interface {
	Submit(batch ...Directive)
}

// DiscardSink drops every directive.
type DiscardSink struct{}

func (DiscardSink) Submit(...Directive) {}
