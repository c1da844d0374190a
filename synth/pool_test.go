package synth

import (
	"slices"
	"testing"

	"github.com/pkg/errors"
)

func TestPoolCreateAtCapacityFails(t *testing.T) {
	sink := &recordingSink{}
	p := NewVoicePool(2, sink, quietLogger())
	env := DefaultEnvelope()
	for _, n := range []Note{60, 62} {
		if _, err := p.Create(VoiceConfig{Note: n, Envelope: env}, 0); err != nil {
			t.Fatalf("Create(%d): %v", n, err)
		}
	}
	_, err := p.Create(VoiceConfig{Note: 64, Envelope: env}, 0)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Create at capacity: got=%v want=%v", err, ErrCapacityExceeded)
	}
	_, err = p.Create(VoiceConfig{Note: 60, Envelope: env}, 0)
	if !errors.Is(err, ErrVoiceExists) {
		t.Fatalf("Create duplicate: got=%v want=%v", err, ErrVoiceExists)
	}
	if p.Size() != 2 {
		t.Fatalf("size: got=%d want=2", p.Size())
	}
}

func TestPoolCreateSubmitsOneBatch(t *testing.T) {
	sink := &recordingSink{}
	p := NewVoicePool(4, sink, quietLogger())
	v, err := p.Create(VoiceConfig{Note: 69, Frequency: 440, Waveform: WaveTriangle, Envelope: DefaultEnvelope()}, 1.5)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Fatalf("batches: got=%v", sink.batches)
	}
	osc, ok := sink.batches[0][0].(CreateOscillator)
	if !ok || osc.Unit != v.Unit() || osc.Frequency != 440 || osc.Start != 1.5 || osc.Waveform != WaveTriangle {
		t.Fatalf("oscillator directive: got=%#v", sink.batches[0][0])
	}
	if _, ok := sink.batches[0][1].(ScheduleGainRamp); !ok {
		t.Fatalf("expected gain ramp: got=%#v", sink.batches[0][1])
	}
}

func TestPoolUnitsAreUnique(t *testing.T) {
	p := NewVoicePool(1, nil, quietLogger())
	seen := map[UnitHandle]bool{}
	for i := 0; i < 10; i++ {
		v, err := p.Create(VoiceConfig{Note: 60, Envelope: DefaultEnvelope()}, float64(i))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if seen[v.Unit()] {
			t.Fatalf("unit %d reused", v.Unit())
		}
		seen[v.Unit()] = true
		if !p.BeginRelease(60, DefaultEnvelope(), float64(i)+0.5) {
			t.Fatalf("BeginRelease returned false")
		}
	}
	if p.BeginRelease(60, DefaultEnvelope(), 20) {
		t.Fatalf("release of absent voice should be a no-op")
	}
}

func TestHeldNotes(t *testing.T) {
	var h HeldNotes
	h.Press(60)
	h.Press(64)
	if h.Press(60) {
		t.Fatalf("repeat press should report false")
	}
	h.Press(55)
	if !slices.Equal(h.Notes(), []Note{60, 64, 55}) {
		t.Fatalf("order: got=%v", h.Notes())
	}
	if !h.Release(64) || h.Release(64) {
		t.Fatalf("release should succeed exactly once")
	}
	h.Clear()
	if h.Len() != 0 {
		t.Fatalf("len after clear: got=%d want=0", h.Len())
	}
}

func TestSelectorByName(t *testing.T) {
	for _, name := range []string{"", "lowest", "Highest", " newest "} {
		if _, ok := SelectorByName(name); !ok {
			t.Fatalf("SelectorByName(%q) failed", name)
		}
	}
	if _, ok := SelectorByName("random"); ok {
		t.Fatalf("unexpected selector for %q", "random")
	}
}

func TestPoolLookupAndVoices(t *testing.T) {
	p := NewVoicePool(3, nil, quietLogger())
	env := DefaultEnvelope()
	for _, n := range []Note{64, 60} {
		if _, err := p.Create(VoiceConfig{Note: n, Frequency: FrequencyFromNote(n), Envelope: env}, 0); err != nil {
			t.Fatalf("Create(%d): %v", n, err)
		}
	}
	v, ok := p.Lookup(60)
	if !ok || v.Note() != 60 || v.Frequency() != FrequencyFromNote(60) {
		t.Fatalf("Lookup(60): got=%v ok=%v", v, ok)
	}
	if _, ok := p.Lookup(62); ok {
		t.Fatalf("Lookup(62) found a voice that was never created")
	}

	p.BeginRelease(64, env, 1)
	if _, ok := p.Lookup(64); ok {
		t.Fatalf("released voice still in pool")
	}
	voices := p.Voices()
	if len(voices) != 1 || voices[0] != v {
		t.Fatalf("Voices: got=%v want=[%v]", voices, v)
	}
}
