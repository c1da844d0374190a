package synth

// VoiceState is the envelope stage of a voice.
type VoiceState int

const (
	Attacking VoiceState = iota
	Sustaining
	Releasing
)

func (s VoiceState) String() string {
	switch s {
	case Attacking:
		return "attacking"
	case Sustaining:
		return "sustaining"
	case Releasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// VoiceConfig describes a voice to create.
type VoiceConfig struct {
	Note      Note
	Frequency float64
	Waveform  Waveform
	Envelope  EnvelopeParams
}

// Voice binds one note to its audio unit and envelope schedule.
type Voice struct {
	note      Note
	unit      UnitHandle
	frequency float64
	waveform  Waveform
	envelope  EnvelopeParams

	startTime    float64
	releaseStart float64
	released     bool

	// Gain schedule currently installed on the unit.
	curve      Curve
	curveStart float64
}

func newVoice(cfg VoiceConfig, unit UnitHandle, now float64) *Voice {
	return &Voice{
		note:       cfg.Note,
		unit:       unit,
		frequency:  cfg.Frequency,
		waveform:   cfg.Waveform,
		envelope:   cfg.Envelope,
		startTime:  now,
		curve:      AttackDecayCurve(cfg.Envelope),
		curveStart: now,
	}
}

func (v *Voice) Note() Note               { return v.note }
func (v *Voice) Unit() UnitHandle         { return v.unit }
func (v *Voice) Frequency() float64       { return v.frequency }
func (v *Voice) Waveform() Waveform       { return v.waveform }
func (v *Voice) Envelope() EnvelopeParams { return v.envelope }
func (v *Voice) StartTime() float64       { return v.startTime }

// ReleaseStart returns the logical time the release began, if it has.
func (v *Voice) ReleaseStart() (float64, bool) {
	return v.releaseStart, v.released
}

// State derives the envelope stage at logical time now.
func (v *Voice) State(now float64) VoiceState {
	if v.released {
		return Releasing
	}
	if now-v.startTime < v.envelope.Attack+v.envelope.Decay {
		return Attacking
	}
	return Sustaining
}

// GainAt returns the gain the audio unit holds at logical time now, according
// to the schedule the engine installed.
func (v *Voice) GainAt(now float64) float64 {
	return v.curve.LevelAt(now - v.curveStart)
}

func (v *Voice) beginRelease(now float64, release float64) Curve {
	from := v.GainAt(now)
	v.curve = ReleaseCurve(from, release)
	v.curveStart = now
	v.releaseStart = now
	v.released = true
	return v.curve
}
