// Package render executes synth directives and produces audio: a per-unit
// oscillator bank feeding a lowpass, tremolo, bit crusher, reverb and master
// volume chain.
package render

import (
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/synth"
)

const (
	// DefaultVoiceGain scales the voice sum so a full pool stays below 0 dBFS.
	DefaultVoiceGain = 1.0 / synth.DefaultMaxVoices

	volumeSmoothingS = 0.01
	maxCutoffRatio   = 0.45
)

// Renderer is the audio collaborator of a synth.Engine. It implements
// synth.Sink and synth.Clock; its logical time is the first frame not yet
// claimed by a block. Submit, ApplyParams and Now may be called from any
// goroutine; Process must be called from a single goroutine.
type Renderer struct {
	sampleRate int
	invRate    float64
	logger     *slog.Logger
	voiceGain  float64

	mu          sync.Mutex
	pending     [][]synth.Directive
	params      synth.Params
	paramsDirty bool

	position atomic.Int64
	// horizon is the end of the block being rendered, or position between
	// blocks. Directives submitted now land at or after it.
	horizon atomic.Int64

	units  []*unit
	byUnit map[synth.UnitHandle]*unit

	lowpass *biquad.Section
	tremolo *modulation.Tremolo
	crusher *effects.BitCrusher
	reverb  *reverb.Reverb
	conv    *ConvolutionReverb

	reverbWet, reverbDry float64
	volume, volumeTarget float64
	volumeCoeff          float64

	mono []float64
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConvolution replaces the algorithmic reverb with an impulse response.
func WithConvolution(c *ConvolutionReverb) Option {
	return func(r *Renderer) { r.conv = c }
}

// WithVoiceGain sets the per-voice scale applied before the effect chain.
func WithVoiceGain(g float64) Option {
	return func(r *Renderer) { r.voiceGain = g }
}

// New creates a renderer at sampleRate, configured with the default
// parameter snapshot.
func New(sampleRate int, opts ...Option) (*Renderer, error) {
	if sampleRate < 8000 {
		return nil, errors.Errorf("sample rate too low: %d", sampleRate)
	}
	r := &Renderer{
		sampleRate: sampleRate,
		invRate:    1 / float64(sampleRate),
		logger:     slog.Default(),
		voiceGain:  DefaultVoiceGain,
		byUnit:     make(map[synth.UnitHandle]*unit),
	}
	for _, opt := range opts {
		opt(r)
	}

	p := synth.DefaultParams()
	sr := float64(sampleRate)
	var err error
	r.tremolo, err = modulation.NewTremolo(sr,
		modulation.WithTremoloRateHz(p.TremoloRateHz),
		modulation.WithTremoloDepth(p.TremoloDepth),
		modulation.WithTremoloMix(1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "tremolo")
	}
	r.crusher, err = effects.NewBitCrusher(sr,
		effects.WithBitCrusherBitDepth(p.BitDepth),
		effects.WithBitCrusherDownsample(1),
		effects.WithBitCrusherMix(1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "bit crusher")
	}
	r.reverb = reverb.NewReverb()
	r.lowpass = biquad.NewSection(r.lowpassCoefficients(p))
	r.volumeCoeff = 1 - float64(approx.FastExp(float32(-1/(volumeSmoothingS*sr))))
	r.configure(p)
	r.volume = r.volumeTarget
	return r, nil
}

func (r *Renderer) SampleRate() int { return r.sampleRate }

// Position returns the number of frames rendered so far.
func (r *Renderer) Position() int64 { return r.position.Load() }

// Now returns the logical time of the earliest frame a directive submitted
// now can still reach: the end of the block in progress, if any.
func (r *Renderer) Now() float64 {
	return float64(r.horizon.Load()) * r.invRate
}

// Submit queues a directive batch. Batches are applied whole at the start
// of the next block.
func (r *Renderer) Submit(batch ...synth.Directive) {
	if len(batch) == 0 {
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, slices.Clone(batch))
	r.mu.Unlock()
}

// ApplyParams queues a parameter snapshot for the next block.
func (r *Renderer) ApplyParams(p synth.Params) {
	r.mu.Lock()
	r.params = p
	r.paramsDirty = true
	r.mu.Unlock()
}

// ActiveUnits returns the number of units still rendering.
func (r *Renderer) ActiveUnits() int { return len(r.units) }

// Process renders numFrames of stereo interleaved audio.
func (r *Renderer) Process(numFrames int) []float32 {
	out := make([]float32, numFrames*2)
	r.ProcessInto(out)
	return out
}

// ProcessInto renders len(out)/2 stereo frames into out.
func (r *Renderer) ProcessInto(out []float32) {
	numFrames := len(out) / 2
	base := r.position.Load()
	r.mu.Lock()
	batches := r.pending
	r.pending = nil
	params, dirty := r.params, r.paramsDirty
	r.paramsDirty = false
	r.horizon.Store(base + int64(numFrames))
	r.mu.Unlock()

	blockStart := float64(base) * r.invRate
	for _, b := range batches {
		for _, d := range b {
			r.apply(d, blockStart)
		}
	}
	if dirty {
		r.configure(params)
	}
	if numFrames == 0 {
		return
	}

	if cap(r.mono) < numFrames {
		r.mono = make([]float64, numFrames)
	}
	mono := r.mono[:numFrames]
	for i := range mono {
		t := float64(base+int64(i)) * r.invRate
		var sum float64
		for _, u := range r.units {
			sum += u.sample(t, r.invRate)
		}
		x := r.lowpass.ProcessSample(sum * r.voiceGain)
		x = r.tremolo.ProcessSample(x)
		mono[i] = r.crusher.ProcessSample(x)
	}

	if r.conv != nil {
		r.conv.Process(mono, r.reverbWet, r.reverbDry, out)
	} else {
		for i, x := range mono {
			y := float32(r.reverb.ProcessSample(x))
			out[i*2] = y
			out[i*2+1] = y
		}
	}

	for i := 0; i < numFrames; i++ {
		r.volume += r.volumeCoeff * (r.volumeTarget - r.volume)
		g := float32(r.volume)
		out[i*2] *= g
		out[i*2+1] *= g
	}

	end := r.position.Add(int64(numFrames))
	r.reap(float64(end) * r.invRate)
}

// apply executes one directive. Times before blockStart were computed
// against a clock that has since moved on and are moved to blockStart.
func (r *Renderer) apply(d synth.Directive, blockStart float64) {
	if c, ok := d.(synth.CreateOscillator); ok {
		if c.Start < blockStart {
			r.logger.Debug("late oscillator rebased", "unit", uint64(c.Unit), "late_s", blockStart-c.Start)
			c.Start = blockStart
		}
		if _, exists := r.byUnit[c.Unit]; exists {
			r.logger.Warn("duplicate oscillator ignored", "unit", uint64(c.Unit))
			return
		}
		u := newUnit(c)
		r.units = append(r.units, u)
		r.byUnit[c.Unit] = u
		return
	}
	u, ok := r.byUnit[d.Target()]
	if !ok {
		r.logger.Debug("directive for unknown unit", "unit", uint64(d.Target()))
		return
	}
	switch d := d.(type) {
	case synth.ScheduleGainRamp:
		curve, start := d.Breakpoints, d.Start
		if start < blockStart {
			r.logger.Debug("late gain ramp rebased", "unit", uint64(d.Unit), "late_s", blockStart-start)
			start = blockStart
		}
		if len(u.gain.points) > 0 {
			curve = rebaseCurve(curve, u.gain.levelAt(start))
		}
		u.gain.schedule(curve, start)
	case synth.CancelScheduledRamps:
		u.gain.cancelFrom(max(d.At, blockStart))
	case synth.DisposeAfterRampCompletes:
		u.dispose = true
	}
}

// rebaseCurve returns a copy of c whose first level is from, the level the
// unit holds when the new ramp takes over.
func rebaseCurve(c synth.Curve, from float64) synth.Curve {
	out := slices.Clone(c)
	if len(out) > 0 {
		out[0].Level = from
	}
	return out
}

func (r *Renderer) reap(t float64) {
	kept := r.units[:0]
	for _, u := range r.units {
		if u.finished(t) {
			delete(r.byUnit, u.handle)
			r.logger.Debug("unit disposed", "unit", uint64(u.handle))
			continue
		}
		kept = append(kept, u)
	}
	clear(r.units[len(kept):])
	r.units = kept
}

func (r *Renderer) lowpassCoefficients(p synth.Params) biquad.Coefficients {
	cutoff := math.Min(p.CutoffHz, maxCutoffRatio*float64(r.sampleRate))
	return design.Lowpass(cutoff, p.Resonance, float64(r.sampleRate))
}

func (r *Renderer) configure(p synth.Params) {
	r.lowpass.Coefficients = r.lowpassCoefficients(p)
	if err := r.tremolo.SetRateHz(p.TremoloRateHz); err != nil {
		r.logger.Warn("tremolo rate rejected", "rate", p.TremoloRateHz, "err", err)
	}
	if err := r.tremolo.SetDepth(p.TremoloDepth); err != nil {
		r.logger.Warn("tremolo depth rejected", "depth", p.TremoloDepth, "err", err)
	}
	if err := r.crusher.SetBitDepth(p.BitDepth); err != nil {
		r.logger.Warn("bit depth rejected", "bits", p.BitDepth, "err", err)
	}
	r.reverb.SetWet(p.ReverbWet)
	r.reverb.SetDry(p.ReverbDry)
	r.reverbWet, r.reverbDry = p.ReverbWet, p.ReverbDry
	r.volumeTarget = p.MasterVolume
}
