package analysis

import "math"

// Default envelope frame and hop lengths in samples.
const (
	EnvelopeFrame = 256
	EnvelopeHop   = 128
)

// envelopeFloorDB bounds the dB comparison so near-silent frames do not
// dominate the distance.
const envelopeFloorDB = -60.0

// RMSEnvelope returns the RMS of successive frames of x.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms(x[start : start+frame])
	}
	return out
}

// EnvelopeDistanceDB is the RMS difference in dB between two envelopes after
// normalising each to its own peak. Levels below -60 dB are clamped.
func EnvelopeDistanceDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	pa := peak(a[:n])
	pb := peak(b[:n])
	var sum float64
	for i := 0; i < n; i++ {
		d := relDB(a[i], pa) - relDB(b[i], pb)
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

// PeakIndex returns the index of the largest value.
func PeakIndex(x []float64) int {
	best := 0
	for i, v := range x {
		if v > x[best] {
			best = i
		}
	}
	return best
}

// Onset returns the first index whose magnitude exceeds threshold, or -1.
func Onset(x []float64, threshold float64) int {
	for i, v := range x {
		if math.Abs(v) > threshold {
			return i
		}
	}
	return -1
}

func relDB(v, ref float64) float64 {
	if ref <= 0 {
		return envelopeFloorDB
	}
	return max(linToDB(v/ref), envelopeFloorDB)
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func peak(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = max(m, math.Abs(v))
	}
	return m
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
