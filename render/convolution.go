package render

import (
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/internal/wavio"
)

// DefaultPartitionSize is the convolution block length in frames.
const DefaultPartitionSize = 128

// ConvolutionReverb convolves the mono voice bus with a stereo impulse
// response. The wet path lags the dry path by one partition.
type ConvolutionReverb struct {
	partSize int
	irLen    int

	leftOLA  *dspconv.StreamingOverlapAddT[float32, complex64]
	rightOLA *dspconv.StreamingOverlapAddT[float32, complex64]

	in         []float32
	wetL, wetR []float32
	fill       int
}

// NewConvolutionReverb builds a convolver for the given impulse responses.
// An empty side is replaced by a unit impulse.
func NewConvolutionReverb(left, right []float32, partSize int) (*ConvolutionReverb, error) {
	if partSize <= 0 {
		partSize = DefaultPartitionSize
	}
	if len(left) == 0 {
		left = []float32{1}
	}
	if len(right) == 0 {
		right = []float32{1}
	}
	leftOLA, err := dspconv.NewStreamingOverlapAdd32(left, partSize)
	if err != nil {
		return nil, errors.Wrap(err, "left impulse response")
	}
	rightOLA, err := dspconv.NewStreamingOverlapAdd32(right, partSize)
	if err != nil {
		return nil, errors.Wrap(err, "right impulse response")
	}
	return &ConvolutionReverb{
		partSize: partSize,
		irLen:    max(len(left), len(right)),
		leftOLA:  leftOLA,
		rightOLA: rightOLA,
		in:       make([]float32, partSize),
		wetL:     make([]float32, partSize),
		wetR:     make([]float32, partSize),
	}, nil
}

// LoadConvolutionReverb reads a mono or stereo IR from a WAV file and
// resamples it to sampleRate.
func LoadConvolutionReverb(path string, sampleRate int) (*ConvolutionReverb, error) {
	left, right, rate, err := wavio.ReadStereo(path)
	if err != nil {
		return nil, errors.Wrap(err, "load impulse response")
	}
	if left, err = wavio.Resample32(left, rate, sampleRate); err != nil {
		return nil, err
	}
	if right, err = wavio.Resample32(right, rate, sampleRate); err != nil {
		return nil, err
	}
	return NewConvolutionReverb(left, right, DefaultPartitionSize)
}

// IRLength returns the longer impulse response length in frames.
func (c *ConvolutionReverb) IRLength() int { return c.irLen }

// Latency returns the wet path delay in frames.
func (c *ConvolutionReverb) Latency() int { return c.partSize }

// Process mixes dry*in with wet*convolved(in) into stereo interleaved out.
func (c *ConvolutionReverb) Process(in []float64, wet, dry float64, out []float32) {
	for i, x := range in {
		l, r := c.step(x)
		out[i*2] = float32(dry*x + wet*float64(l))
		out[i*2+1] = float32(dry*x + wet*float64(r))
	}
}

func (c *ConvolutionReverb) step(x float64) (float32, float32) {
	c.in[c.fill] = float32(x)
	l, r := c.wetL[c.fill], c.wetR[c.fill]
	c.fill++
	if c.fill == c.partSize {
		c.fill = 0
		errL := c.leftOLA.ProcessBlockTo(c.wetL, c.in)
		errR := c.rightOLA.ProcessBlockTo(c.wetR, c.in)
		if errL != nil || errR != nil {
			copy(c.wetL, c.in)
			copy(c.wetR, c.in)
		}
	}
	return l, r
}

// Reset clears the convolution history.
func (c *ConvolutionReverb) Reset() {
	c.leftOLA.Reset()
	c.rightOLA.Reset()
	clear(c.in)
	clear(c.wetL)
	clear(c.wetR)
	c.fill = 0
}
