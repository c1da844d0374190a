package render

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/cwbudde/algo-polysynth/synth"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRig(t *testing.T, sampleRate int, opts ...Option) (*synth.Engine, *Renderer) {
	t.Helper()
	r, err := New(sampleRate, append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err := synth.New(r,
		synth.WithClock(r),
		synth.WithLogger(quietLogger()),
		synth.WithParamListener(r.ApplyParams),
	)
	if err != nil {
		t.Fatalf("synth.New: %v", err)
	}
	return e, r
}

func energy(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum
}

func assertFinite(t *testing.T, samples []float32) {
	t.Helper()
	for i, s := range samples {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("non-finite sample at %d: %f", i, s)
		}
	}
}

func TestRendererSilentWithoutNotes(t *testing.T) {
	_, r := newRig(t, 48000)
	out := r.Process(1024)
	if len(out) != 2048 {
		t.Fatalf("output length: got=%d want=2048", len(out))
	}
	if e := energy(out); e > 1e-12 {
		t.Fatalf("expected silence: energy=%g", e)
	}
	if got := r.Now(); math.Abs(got-1024.0/48000) > 1e-12 {
		t.Fatalf("clock: got=%f want=%f", got, 1024.0/48000)
	}
}

func TestRendererNoteLifecycle(t *testing.T) {
	e, r := newRig(t, 48000)
	if err := e.NoteOn(69, 100); err != nil {
		t.Fatalf("NoteOn: %v", err)
	}
	sounding := r.Process(24000)
	assertFinite(t, sounding)
	if en := energy(sounding); en < 1 {
		t.Fatalf("expected audible note: energy=%g", en)
	}
	if r.ActiveUnits() != 1 {
		t.Fatalf("active units: got=%d want=1", r.ActiveUnits())
	}

	if err := e.NoteOff(69); err != nil {
		t.Fatalf("NoteOff: %v", err)
	}
	release := e.Params().Envelope.Release
	r.Process(int(release*48000) + 256)
	if r.ActiveUnits() != 0 {
		t.Fatalf("unit not disposed after release: active=%d", r.ActiveUnits())
	}
}

func TestRendererReleaseIsContinuous(t *testing.T) {
	e, r := newRig(t, 48000, WithVoiceGain(1))
	_ = e.SetParameter(synth.ParamReverb, 0)
	_ = e.SetParameter(synth.ParamCutoff, 18000)
	_ = e.NoteOn(45, 100)
	before := r.Process(4800)

	_ = e.NoteOff(45)
	after := r.Process(480)

	// A 110 Hz sine moves by at most 2*pi*110/48000 per sample at unit
	// amplitude; a gain jump at the release boundary would exceed that.
	limit := 2 * math.Pi * 110 / 48000 * 1.5
	prev := before[len(before)-2]
	for i := 0; i < len(after)/2; i++ {
		cur := after[i*2]
		if d := math.Abs(float64(cur - prev)); d > limit {
			t.Fatalf("discontinuity at frame %d: step=%f limit=%f", i, d, limit)
		}
		prev = cur
	}
}

func TestGainTimelineCancelHoldsLevel(t *testing.T) {
	var g gainTimeline
	g.schedule(synth.AttackDecayCurve(synth.EnvelopeParams{Attack: 1, Decay: 1, Sustain: 0.5, Release: 1}), 0)
	if got := g.levelAt(-0.1); got != 0 {
		t.Fatalf("before start: got=%f want=0", got)
	}
	g.cancelFrom(0.5)
	if got := g.levelAt(0.5); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("at cancel: got=%f want=0.5", got)
	}
	if got := g.levelAt(3); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("after cancel: got=%f want=0.5 (held)", got)
	}
	g.schedule(synth.ReleaseCurve(0.5, 1), 0.5)
	if got := g.levelAt(1); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("release midpoint: got=%f want=0.25", got)
	}
	if got := g.end(); got != 1.5 {
		t.Fatalf("end: got=%f want=1.5", got)
	}
}

func TestOscillatorShapes(t *testing.T) {
	cases := []struct {
		w     synth.Waveform
		phase float64
		want  float64
	}{
		{synth.WaveSine, 0.25, 1},
		{synth.WaveSquare, 0.1, 1},
		{synth.WaveSquare, 0.6, -1},
		{synth.WaveSawtooth, 0, -1},
		{synth.WaveSawtooth, 0.75, 0.5},
		{synth.WaveTriangle, 0, -1},
		{synth.WaveTriangle, 0.5, 1},
		{synth.WaveTriangle, 0.75, 0},
	}
	for _, tc := range cases {
		if got := oscillator(tc.w, tc.phase); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%s at %f: got=%f want=%f", tc.w, tc.phase, got, tc.want)
		}
	}
}

func TestDirectiveForUnknownUnitIgnored(t *testing.T) {
	r, err := New(48000, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Submit(synth.ScheduleGainRamp{Unit: 42, Breakpoints: synth.ReleaseCurve(1, 1)})
	r.Submit(synth.DisposeAfterRampCompletes{Unit: 42})
	out := r.Process(64)
	if energy(out) != 0 || r.ActiveUnits() != 0 {
		t.Fatalf("unknown unit produced output")
	}
}

func TestOfflineRendersEventsAndTail(t *testing.T) {
	e, r := newRig(t, 16000)
	events := []synth.TimedEvent{
		{At: 0.5, Event: synth.NoteOff{Note: 60}},
		{At: 0, Event: synth.ControlChange{Controller: synth.CCReverbSend, Value: 0}},
		{At: 0, Event: synth.NoteOn{Note: 60, Velocity: 100}},
		{At: 0.1, Event: synth.ControlChange{Controller: synth.CCGeneral5, Value: 127}},
	}
	out, err := Offline(e, r, events, 1.5, 100)
	if err != nil {
		t.Fatalf("Offline: %v", err)
	}
	if want := 2 * 16000 * 2; len(out) != want {
		t.Fatalf("length: got=%d want=%d", len(out), want)
	}
	assertFinite(t, out)
	if energy(out[:16000]) < 0.1 {
		t.Fatalf("expected energy in the first half second")
	}
	tail := out[len(out)-400:]
	if en := energy(tail); en > 1e-3 {
		t.Fatalf("expected near-silent tail: energy=%g", en)
	}
	if e.Params().Waveform != synth.WaveSquare {
		t.Fatalf("waveform: got=%s want=square", e.Params().Waveform)
	}
}

func TestOfflineReportsInvalidEvent(t *testing.T) {
	e, r := newRig(t, 16000)
	events := []synth.TimedEvent{{At: 0, Event: synth.NoteOn{Note: 200, Velocity: 1}}}
	if _, err := Offline(e, r, events, 0.1, 0); err == nil {
		t.Fatalf("expected error for invalid note")
	}
}

func TestStreamRead(t *testing.T) {
	_, r := newRig(t, 48000)
	s := NewStream(r)
	p := make([]byte, 8*100+3)
	n, err := s.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 800 {
		t.Fatalf("bytes: got=%d want=800", n)
	}
	if r.Position() != 100 {
		t.Fatalf("position: got=%d want=100", r.Position())
	}
}

// hookHandler runs fn for every record, letting a test act from inside a
// render block.
type hookHandler struct {
	fn func(slog.Record)
}

func (h hookHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h hookHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h hookHandler) WithGroup(string) slog.Handler           { return h }

func (h hookHandler) Handle(_ context.Context, r slog.Record) error {
	h.fn(r)
	return nil
}

func TestNoteOnDuringBlockStartsAtBlockEnd(t *testing.T) {
	const (
		sr    = 48000
		block = 960
	)
	var e *synth.Engine
	fired := false
	hook := hookHandler{fn: func(rec slog.Record) {
		if rec.Message != "directive for unknown unit" || fired {
			return
		}
		fired = true
		if err := e.NoteOn(69, 100); err != nil {
			t.Errorf("NoteOn: %v", err)
		}
	}}
	r, err := New(sr, WithLogger(slog.New(hook)), WithVoiceGain(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e, err = synth.New(r, synth.WithClock(r), synth.WithLogger(quietLogger()), synth.WithParamListener(r.ApplyParams))
	if err != nil {
		t.Fatalf("synth.New: %v", err)
	}

	// The unknown-unit directive is applied after the block has claimed its
	// frames, so the hook runs while the block is in progress.
	r.Submit(synth.DisposeAfterRampCompletes{Unit: 1 << 40})
	first := r.Process(block)
	if !fired {
		t.Fatalf("hook did not run inside the block")
	}
	if en := energy(first); en > 1e-12 {
		t.Fatalf("note leaked into the block it was pressed in: energy=%g", en)
	}

	r.Process(1)
	if len(r.units) != 1 {
		t.Fatalf("units: got=%d want=1", len(r.units))
	}
	u := r.units[0]
	blockEnd := float64(block) / sr
	if math.Abs(u.start-blockEnd) > 1e-12 {
		t.Fatalf("oscillator start: got=%f want=%f", u.start, blockEnd)
	}
	if got := u.gain.levelAt(blockEnd); got > 1e-9 {
		t.Fatalf("gain at first audible frame: got=%f want=0", got)
	}
}

func TestLateDirectivesAreRebased(t *testing.T) {
	const sr = 48000
	r, err := New(sr, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Process(480)

	env := synth.EnvelopeParams{Attack: 0.1, Decay: 0.1, Sustain: 0.5, Release: 0.5}
	r.Submit(
		synth.CreateOscillator{Unit: 7, Frequency: 220, Start: 0},
		synth.ScheduleGainRamp{Unit: 7, Breakpoints: synth.AttackDecayCurve(env), Start: 0},
	)
	r.Process(1)
	u := r.byUnit[7]
	if u == nil {
		t.Fatalf("unit not created")
	}
	t0 := 480.0 / sr
	if math.Abs(u.start-t0) > 1e-12 {
		t.Fatalf("start: got=%f want=%f", u.start, t0)
	}
	if got := u.gain.levelAt(t0); got > 1e-9 {
		t.Fatalf("attack must begin from silence: got=%f", got)
	}

	r.Process(2400)
	t1 := float64(r.Position()) / sr
	held := u.gain.levelAt(t1)
	if held <= 0 {
		t.Fatalf("expected the attack to be under way: level=%f", held)
	}
	release := synth.ReleaseCurve(0.9, env.Release)
	r.Submit(
		synth.CancelScheduledRamps{Unit: 7, At: 0.01},
		synth.ScheduleGainRamp{Unit: 7, Breakpoints: release, Start: 0.01},
		synth.DisposeAfterRampCompletes{Unit: 7},
	)
	r.Process(1)
	if got := u.gain.levelAt(t1); math.Abs(got-held) > 1e-12 {
		t.Fatalf("release must continue from the held level: got=%f want=%f", got, held)
	}
	if got := u.gain.end(); math.Abs(got-(t1+env.Release)) > 1e-12 {
		t.Fatalf("release end: got=%f want=%f", got, t1+env.Release)
	}
	if release[0].Level != 0.9 {
		t.Fatalf("submitted curve was modified: got=%f", release[0].Level)
	}
}
