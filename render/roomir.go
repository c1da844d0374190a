package render

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// RoomIRConfig controls procedural stereo room IR generation.
type RoomIRConfig struct {
	SampleRate  int     `json:"sample_rate"`
	DurationS   float64 `json:"duration_s"`
	Seed        int64   `json:"seed"`
	PreDelayS   float64 `json:"pre_delay_s"`
	EarlyCount  int     `json:"early_count"`
	LateLevel   float64 `json:"late_level"`
	StereoWidth float64 `json:"stereo_width"`
	Brightness  float64 `json:"brightness"`
	DecayS      float64 `json:"decay_s"`
	HighDecayS  float64 `json:"high_decay_s"`
	FadeOutS    float64 `json:"fade_out_s"`

	NormalizePeak float64 `json:"normalize_peak"`
}

// DefaultRoomIRConfig returns a medium room.
func DefaultRoomIRConfig() RoomIRConfig {
	return RoomIRConfig{
		SampleRate:    48000,
		DurationS:     1.5,
		Seed:          1,
		PreDelayS:     0.008,
		EarlyCount:    24,
		LateLevel:     0.06,
		StereoWidth:   0.6,
		Brightness:    0.8,
		DecayS:        1.2,
		HighDecayS:    0.2,
		FadeOutS:      0.02,
		NormalizePeak: 0.9,
	}
}

func (c *RoomIRConfig) Validate() error {
	if c.SampleRate < 8000 {
		return errors.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return errors.New("duration must be > 0")
	}
	if c.PreDelayS < 0 || c.PreDelayS >= c.DurationS {
		return errors.New("pre-delay must be >= 0 and shorter than the duration")
	}
	if c.EarlyCount < 0 {
		return errors.New("early count must be >= 0")
	}
	if c.LateLevel < 0 {
		return errors.New("late level must be >= 0")
	}
	if c.StereoWidth < 0 || c.StereoWidth > 1 {
		return errors.New("stereo width must be in [0,1]")
	}
	if c.Brightness <= 0 {
		return errors.New("brightness must be > 0")
	}
	if c.DecayS <= 0 || c.HighDecayS <= 0 {
		return errors.New("decay seconds must be > 0")
	}
	if c.NormalizePeak <= 0 {
		return errors.New("normalize peak must be > 0")
	}
	return nil
}

// SynthesizeRoomIR builds a stereo reverb impulse response from early
// reflections and a two-band decaying noise tail. It carries no direct path.
// The same config always yields the same IR.
func SynthesizeRoomIR(cfg RoomIRConfig) ([]float32, []float32, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	sr := float64(cfg.SampleRate)
	n := max(int(math.Round(cfg.DurationS*sr)), 1)
	left := make([]float64, n)
	right := make([]float64, n)
	rng := rand.New(rand.NewSource(cfg.Seed))

	pre := cfg.PreDelayS
	for i := 0; i < cfg.EarlyCount; i++ {
		t := pre + 0.001 + 0.049*rng.Float64()
		idx := int(t * sr)
		if idx <= 0 || idx >= n {
			continue
		}
		amp := (0.1 + 0.35*rng.Float64()) * math.Exp(-(t-pre)*20)
		amp *= math.Pow(0.5+0.5*rng.Float64(), 1/cfg.Brightness)
		pan := (rng.Float64()*2 - 1) * cfg.StereoWidth
		left[idx] += amp * (1 - 0.5*pan)
		right[idx] += amp * (1 + 0.5*pan)
	}

	if cfg.LateLevel > 0 {
		start := int(pre * sr)
		air := max(0.3*(cfg.Brightness-0.3), 0)
		var lpL, lpR, hpL, hpR float64
		for i := start; i < n; i++ {
			t := float64(i-start) / sr
			lowEnv := math.Exp(-t / (0.75 * cfg.DecayS))
			highEnv := math.Exp(-t / (0.75 * cfg.HighDecayS))
			nL := rng.NormFloat64()
			nR := rng.NormFloat64()
			lpL = 0.985*lpL + 0.015*nL
			lpR = 0.985*lpR + 0.015*nR
			hpL = 0.15*nL - 0.15*hpL
			hpR = 0.15*nR - 0.15*hpR
			left[i] += cfg.LateLevel * (lowEnv*lpL + air*highEnv*hpL)
			right[i] += cfg.LateLevel * (lowEnv*lpR + air*highEnv*hpR)
		}
	}

	removeDC(left, 0.995)
	removeDC(right, 0.995)
	fadeOut(left, cfg.FadeOutS, cfg.SampleRate)
	fadeOut(right, cfg.FadeOutS, cfg.SampleRate)

	peak := max(peakAbs(left), peakAbs(right), 1e-12)
	s := cfg.NormalizePeak / peak
	outL := make([]float32, n)
	outR := make([]float32, n)
	for i := range n {
		outL[i] = float32(left[i] * s)
		outR[i] = float32(right[i] * s)
	}
	return outL, outR, nil
}

func removeDC(x []float64, r float64) {
	var prevIn, prevOut float64
	for i, v := range x {
		y := v - prevIn + r*prevOut
		prevIn = v
		prevOut = y
		x[i] = y
	}
}

func peakAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = max(m, math.Abs(v))
	}
	return m
}

func fadeOut(buf []float64, fadeS float64, sampleRate int) {
	if fadeS <= 0 || len(buf) == 0 {
		return
	}
	fade := min(int(math.Round(fadeS*float64(sampleRate))), len(buf))
	start := len(buf) - fade
	for i := 0; i < fade; i++ {
		t := float64(i) / float64(fade)
		buf[start+i] *= 0.5 * (1 + math.Cos(t*math.Pi))
	}
}
