package analysis

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/pkg/errors"
)

// DefaultFFTSize is the analysis window for DominantFrequency.
const DefaultFFTSize = 8192

// DominantFrequency estimates the strongest spectral peak of x in Hz. The
// first DefaultFFTSize samples (zero-padded if shorter) are Hann windowed and
// the peak bin is refined by parabolic interpolation of log magnitudes.
func DominantFrequency(x []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, errors.Errorf("sample rate must be > 0: %d", sampleRate)
	}
	if len(x) < 64 {
		return 0, errors.Errorf("need at least 64 samples, got %d", len(x))
	}
	n := DefaultFFTSize
	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return 0, errors.Wrap(err, "fft plan")
	}

	buf := make([]float64, n)
	m := min(len(x), n)
	copy(buf, x[:m])
	window.Apply(window.TypeHann, buf[:m])
	spec := make([]complex128, n/2+1)
	plan.Forward(spec, buf)

	mags := make([]float64, len(spec))
	best := 1
	for k := 1; k < len(spec)-1; k++ {
		mags[k] = math.Hypot(real(spec[k]), imag(spec[k]))
		if mags[k] > mags[best] {
			best = k
		}
	}
	if mags[best] < 1e-12 {
		return 0, errors.New("signal is silent")
	}

	offset := 0.0
	if best > 1 && best < len(spec)-2 {
		a := math.Log(mags[best-1] + 1e-300)
		b := math.Log(mags[best] + 1e-300)
		c := math.Log(mags[best+1] + 1e-300)
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}
	return (float64(best) + offset) * float64(sampleRate) / float64(n), nil
}

// Cents returns the interval from ref to f in cents.
func Cents(f, ref float64) float64 {
	if f <= 0 || ref <= 0 {
		return math.NaN()
	}
	return 1200 * math.Log2(f/ref)
}
