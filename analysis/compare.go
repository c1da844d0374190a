package analysis

import "math"

// Metrics compares the amplitude envelope and pitch of two mono signals.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	RefPeakTimeS    float64 `json:"ref_peak_time_s"`
	CandPeakTimeS   float64 `json:"cand_peak_time_s"`
	PeakTimeDiffS   float64 `json:"peak_time_diff_s"`
	RefPitchHz      float64 `json:"ref_pitch_hz"`
	CandPitchHz     float64 `json:"cand_pitch_hz"`
	PitchErrorCents float64 `json:"pitch_error_cents"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const onsetThreshold = 1e-4

// Compare aligns both signals at their onsets and scores envelope and pitch
// distance. Score is in [0,1], lower is closer.
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 {
		return m
	}
	ro := Onset(reference, onsetThreshold)
	co := Onset(candidate, onsetThreshold)
	if ro < 0 || co < 0 {
		return m
	}
	ref := reference[ro:]
	cand := candidate[co:]
	n := min(len(ref), len(cand))
	if n < EnvelopeFrame*2 {
		return m
	}
	ref, cand = ref[:n], cand[:n]
	m.AlignedFrames = n

	refEnv := RMSEnvelope(ref, EnvelopeFrame, EnvelopeHop)
	candEnv := RMSEnvelope(cand, EnvelopeFrame, EnvelopeHop)
	m.EnvelopeRMSEDB = EnvelopeDistanceDB(refEnv, candEnv)

	hop := float64(EnvelopeHop) / float64(sampleRate)
	m.RefPeakTimeS = float64(PeakIndex(refEnv)) * hop
	m.CandPeakTimeS = float64(PeakIndex(candEnv)) * hop
	m.PeakTimeDiffS = math.Abs(m.RefPeakTimeS - m.CandPeakTimeS)

	pitchNorm := 0.0
	rp, errR := DominantFrequency(ref, sampleRate)
	cp, errC := DominantFrequency(cand, sampleRate)
	if errR == nil && errC == nil {
		m.RefPitchHz, m.CandPitchHz = rp, cp
		m.PitchErrorCents = math.Abs(Cents(cp, rp))
		pitchNorm = clamp01(m.PitchErrorCents / 100)
	}

	envNorm := clamp01(m.EnvelopeRMSEDB / 30)
	peakNorm := clamp01(m.PeakTimeDiffS / 0.5)
	m.Score = clamp01(0.6*envNorm + 0.25*peakNorm + 0.15*pitchNorm)
	m.Similarity = clamp01(math.Exp(-4 * m.Score))
	return m
}
