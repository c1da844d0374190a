package analysis

import (
	"math"
	"testing"
)

func makeADSRSine(sr int, freq, attack, decay, sustain, hold, release float64) []float64 {
	total := attack + decay + hold + release
	n := int(total * float64(sr))
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sr)
		var g float64
		switch {
		case t < attack:
			g = t / attack
		case t < attack+decay:
			g = 1 - (1-sustain)*(t-attack)/decay
		case t < attack+decay+hold:
			g = sustain
		default:
			g = sustain * (1 - (t-attack-decay-hold)/release)
		}
		out[i] = 0.5 * g * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	const sr = 48000
	for _, f := range []float64{220, 261.63, 440, 1000} {
		x := makeADSRSine(sr, f, 0.01, 0.01, 1, 0.3, 0.01)
		got, err := DominantFrequency(x, sr)
		if err != nil {
			t.Fatalf("DominantFrequency(%f): %v", f, err)
		}
		if c := math.Abs(Cents(got, f)); c > 10 {
			t.Fatalf("pitch %f: got=%f (%.2f cents off)", f, got, c)
		}
	}
}

func TestDominantFrequencyRejectsSilence(t *testing.T) {
	if _, err := DominantFrequency(make([]float64, 1024), 48000); err == nil {
		t.Fatalf("expected error for silence")
	}
	if _, err := DominantFrequency(make([]float64, 8), 48000); err == nil {
		t.Fatalf("expected error for short input")
	}
}

func TestRMSEnvelope(t *testing.T) {
	x := make([]float64, 1024)
	for i := range x {
		x[i] = 1
	}
	env := RMSEnvelope(x, 256, 128)
	if len(env) != 7 {
		t.Fatalf("frames: got=%d want=7", len(env))
	}
	for i, v := range env {
		if math.Abs(v-1) > 1e-12 {
			t.Fatalf("env[%d]: got=%f want=1", i, v)
		}
	}
	if RMSEnvelope(x[:10], 256, 128) != nil {
		t.Fatalf("expected nil for input shorter than a frame")
	}
}

func TestEnvelopeDistanceIgnoresGain(t *testing.T) {
	a := []float64{0.1, 0.5, 1, 0.5}
	b := []float64{0.2, 1, 2, 1}
	if d := EnvelopeDistanceDB(a, b); d > 1e-9 {
		t.Fatalf("distance: got=%f want=0", d)
	}
}

func TestCompareIdenticalSignalsIsClose(t *testing.T) {
	const sr = 16000
	x := makeADSRSine(sr, 220, 0.1, 0.2, 0.6, 0.5, 0.4)
	m := Compare(x, x, sr)
	if m.Score > 1e-6 {
		t.Fatalf("score: got=%f want~0", m.Score)
	}
	if m.Similarity < 0.999 {
		t.Fatalf("similarity: got=%f", m.Similarity)
	}
}

func TestCompareRanksEnvelopes(t *testing.T) {
	const sr = 16000
	ref := makeADSRSine(sr, 220, 0.1, 0.2, 0.6, 0.5, 0.4)
	near := makeADSRSine(sr, 220, 0.12, 0.2, 0.55, 0.5, 0.4)
	far := makeADSRSine(sr, 220, 0.6, 0.05, 0.1, 0.1, 1.0)
	mn := Compare(ref, near, sr)
	mf := Compare(ref, far, sr)
	if !(mn.Score < mf.Score) {
		t.Fatalf("expected nearer envelope to score lower: near=%f far=%f", mn.Score, mf.Score)
	}
}

func TestCompareDegenerateInput(t *testing.T) {
	m := Compare(nil, []float64{1, 2}, 48000)
	if m.Score != 1 || m.Similarity != 0 {
		t.Fatalf("degenerate compare: got=%+v", m)
	}
}
