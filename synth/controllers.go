package synth

import "maps"

// MIDI controller numbers used by the default map.
const (
	CCModWheel     = 1
	CCBreath       = 2
	CCVolume       = 7
	CCResonance    = 71
	CCReleaseTime  = 72
	CCAttackTime   = 73
	CCDecayTime    = 75
	CCVibratoRate  = 76
	CCVibratoDepth = 77
	CCSustainLevel = 79
	CCGeneral5     = 80
	CCReverbSend   = 91
	CCTremoloDepth = 92
	CCAllSoundOff  = 120
	CCAllNotesOff  = 123
)

// ControllerMap routes controller ids to parameter names.
type ControllerMap map[int]string

// DefaultControllerMap is the stock controller table.
func DefaultControllerMap() ControllerMap {
	return ControllerMap{
		CCModWheel:     ParamCutoff,
		CCBreath:       ParamResonance,
		CCVolume:       ParamMasterVolume,
		CCResonance:    ParamResonance,
		CCReleaseTime:  ParamRelease,
		CCAttackTime:   ParamAttack,
		CCDecayTime:    ParamDecay,
		CCVibratoRate:  ParamTremoloRate,
		CCVibratoDepth: ParamBitDepth,
		CCSustainLevel: ParamSustain,
		CCGeneral5:     ParamWaveform,
		CCReverbSend:   ParamReverb,
		CCTremoloDepth: ParamTremoloDepth,
	}
}

// Clone returns an independent copy.
func (m ControllerMap) Clone() ControllerMap {
	if m == nil {
		return ControllerMap{}
	}
	return maps.Clone(m)
}
