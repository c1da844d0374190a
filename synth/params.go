package synth

import (
	"log/slog"
	"math"
	"slices"

	"github.com/pkg/errors"
)

// Parameter names of the default table.
const (
	ParamAttack       = "attack"
	ParamDecay        = "decay"
	ParamSustain      = "sustain"
	ParamRelease      = "release"
	ParamCutoff       = "cutoff"
	ParamResonance    = "resonance"
	ParamReverb       = "reverb"
	ParamReverbWet    = "reverb_wet"
	ParamReverbDry    = "reverb_dry"
	ParamTremoloRate  = "tremolo_rate"
	ParamTremoloDepth = "tremolo_depth"
	ParamBitDepth     = "bit_depth"
	ParamMasterVolume = "master_volume"
	ParamWaveform     = "waveform"
)

// MaxControllerValue is the largest raw controller value.
const MaxControllerValue = 127

// ParameterKind is the closed set of parameter types: Scalar, Mix or
// DiscreteList.
type ParameterKind interface {
	parameterKind()
}

// Scalar maps raw 0..127 linearly onto [Min, Max].
type Scalar struct {
	Min, Max float64
}

// Mix maps raw 0..127 onto v in [0,1] and stores Wet = v, Dry = 1-v.
type Mix struct {
	Wet, Dry string
}

// DiscreteList cycles through Values, advancing once per controller press.
type DiscreteList struct {
	Values []string
}

func (Scalar) parameterKind()       {}
func (Mix) parameterKind()          {}
func (DiscreteList) parameterKind() {}

// ParameterDef declares one named parameter. Default is the physical value for
// a Scalar, the wet amount for a Mix and the initial index for a DiscreteList.
type ParameterDef struct {
	Name    string
	Kind    ParameterKind
	Default float64
}

// DefaultParameterDefs returns the stock parameter table.
func DefaultParameterDefs() []ParameterDef {
	return []ParameterDef{
		{Name: ParamAttack, Kind: Scalar{Min: 0.001, Max: 2}, Default: 0.25},
		{Name: ParamDecay, Kind: Scalar{Min: 0.001, Max: 2}, Default: 0.25},
		{Name: ParamSustain, Kind: Scalar{Min: 0, Max: 1}, Default: 0.7},
		{Name: ParamRelease, Kind: Scalar{Min: 0.001, Max: 4}, Default: 1.0},
		{Name: ParamCutoff, Kind: Scalar{Min: 40, Max: 18000}, Default: 12000},
		{Name: ParamResonance, Kind: Scalar{Min: 0.5, Max: 12}, Default: 0.707},
		{Name: ParamReverb, Kind: Mix{Wet: ParamReverbWet, Dry: ParamReverbDry}, Default: 0.2},
		{Name: ParamTremoloRate, Kind: Scalar{Min: 0.1, Max: 12}, Default: 4},
		{Name: ParamTremoloDepth, Kind: Scalar{Min: 0, Max: 1}, Default: 0},
		{Name: ParamBitDepth, Kind: Scalar{Min: 2, Max: 16}, Default: 16},
		{Name: ParamMasterVolume, Kind: Scalar{Min: 0, Max: 1}, Default: 0.8},
		{Name: ParamWaveform, Kind: DiscreteList{Values: []string{"sine", "square", "sawtooth", "triangle"}}, Default: 0},
	}
}

// Params is a snapshot of every value the audio graph consumes.
type Params struct {
	Envelope      EnvelopeParams
	Waveform      Waveform
	CutoffHz      float64
	Resonance     float64
	ReverbWet     float64
	ReverbDry     float64
	TremoloRateHz float64
	TremoloDepth  float64
	BitDepth      float64
	MasterVolume  float64
}

// DefaultParams is the snapshot of the stock parameter table.
func DefaultParams() Params {
	s, err := NewParameterStore(DefaultParameterDefs(), nil, slog.New(slog.DiscardHandler))
	if err != nil {
		panic(err)
	}
	return s.Snapshot()
}

// ParameterStore holds the current physical value of every parameter.
// It is not safe for concurrent use; Engine serialises access.
type ParameterStore struct {
	defs        map[string]ParameterDef
	values      map[string]float64
	choices     map[string]int
	asserted    map[string]bool
	controllers ControllerMap
	logger      *slog.Logger
}

// NewParameterStore validates defs and initialises every parameter to its
// default.
func NewParameterStore(defs []ParameterDef, controllers ControllerMap, logger *slog.Logger) (*ParameterStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ParameterStore{
		defs:        make(map[string]ParameterDef, len(defs)),
		values:      make(map[string]float64, len(defs)+2),
		choices:     make(map[string]int),
		asserted:    make(map[string]bool),
		controllers: controllers.Clone(),
		logger:      logger,
	}
	for _, d := range defs {
		if err := validateDef(d); err != nil {
			return nil, err
		}
		if _, dup := s.defs[d.Name]; dup {
			return nil, errors.Errorf("duplicate parameter %q", d.Name)
		}
		s.defs[d.Name] = d
		switch k := d.Kind.(type) {
		case Scalar:
			s.values[d.Name] = d.Default
		case Mix:
			s.values[k.Wet] = d.Default
			s.values[k.Dry] = 1 - d.Default
		case DiscreteList:
			s.choices[d.Name] = int(d.Default)
		}
	}
	for id, name := range s.controllers {
		if _, ok := s.defs[name]; !ok {
			return nil, errors.Errorf("controller %d maps to unknown parameter %q", id, name)
		}
	}
	return s, nil
}

func validateDef(d ParameterDef) error {
	if d.Name == "" {
		return errors.New("parameter name must not be empty")
	}
	switch k := d.Kind.(type) {
	case Scalar:
		if math.IsNaN(k.Min) || math.IsNaN(k.Max) || math.IsInf(k.Min, 0) || math.IsInf(k.Max, 0) {
			return errors.Errorf("%s: range must be finite", d.Name)
		}
		if k.Min > k.Max {
			return errors.Errorf("%s: min %v > max %v", d.Name, k.Min, k.Max)
		}
		if d.Default < k.Min || d.Default > k.Max {
			return errors.Errorf("%s: default %v outside [%v,%v]", d.Name, d.Default, k.Min, k.Max)
		}
		switch d.Name {
		case ParamAttack, ParamDecay, ParamRelease:
			if k.Min <= 0 {
				return errors.Errorf("%s: durations must be > 0", d.Name)
			}
		case ParamSustain:
			if k.Min < 0 || k.Max > 1 {
				return errors.Errorf("%s: level must lie in [0,1]", d.Name)
			}
		}
	case Mix:
		if k.Wet == "" || k.Dry == "" || k.Wet == k.Dry {
			return errors.Errorf("%s: mix needs two distinct keys", d.Name)
		}
		if d.Default < 0 || d.Default > 1 {
			return errors.Errorf("%s: default mix %v outside [0,1]", d.Name, d.Default)
		}
	case DiscreteList:
		if len(k.Values) == 0 {
			return errors.Errorf("%s: list must not be empty", d.Name)
		}
		if d.Default < 0 || int(d.Default) >= len(k.Values) {
			return errors.Errorf("%s: default index %v out of range", d.Name, d.Default)
		}
	default:
		return errors.Errorf("%s: missing parameter kind", d.Name)
	}
	return nil
}

// Set applies a raw controller value (0..127) to the named parameter.
// Unknown names and out-of-range values are logged and ignored. Returns true
// when stored state changed.
func (s *ParameterStore) Set(name string, raw int) bool {
	def, ok := s.defs[name]
	if !ok {
		s.logger.Debug("unknown parameter ignored", "name", name, "raw", raw)
		return false
	}
	if raw < 0 || raw > MaxControllerValue {
		s.logger.Debug("controller value out of range", "name", name, "raw", raw)
		return false
	}
	v := float64(raw) / MaxControllerValue

	switch k := def.Kind.(type) {
	case Scalar:
		s.values[name] = k.Min + (k.Max-k.Min)*v
		return true
	case Mix:
		s.values[k.Wet] = v
		s.values[k.Dry] = 1 - v
		return true
	case DiscreteList:
		if raw == 0 {
			s.asserted[name] = false
			return false
		}
		if s.asserted[name] {
			return false
		}
		s.asserted[name] = true
		s.choices[name] = (s.choices[name] + 1) % len(k.Values)
		return true
	}
	return false
}

// SetValue stores a physical value directly: the value of a Scalar, the wet
// amount of a Mix or the index of a DiscreteList.
func (s *ParameterStore) SetValue(name string, value float64) error {
	def, ok := s.defs[name]
	if !ok {
		return errors.Errorf("unknown parameter %q", name)
	}
	switch k := def.Kind.(type) {
	case Scalar:
		if !(value >= k.Min && value <= k.Max) {
			return errors.Errorf("%s: %v outside [%v,%v]", name, value, k.Min, k.Max)
		}
		s.values[name] = value
	case Mix:
		if !(value >= 0 && value <= 1) {
			return errors.Errorf("%s: mix %v outside [0,1]", name, value)
		}
		s.values[k.Wet] = value
		s.values[k.Dry] = 1 - value
	case DiscreteList:
		i := int(value)
		if i < 0 || i >= len(k.Values) || float64(i) != value {
			return errors.Errorf("%s: index %v out of range", name, value)
		}
		s.choices[name] = i
	}
	return nil
}

// ApplyControl routes a controller change through the controller map.
func (s *ParameterStore) ApplyControl(controller int, raw int) bool {
	name, ok := s.controllers[controller]
	if !ok {
		s.logger.Debug("unmapped controller ignored", "controller", controller, "raw", raw)
		return false
	}
	return s.Set(name, raw)
}

// Value returns a stored scalar or mix-half value.
func (s *ParameterStore) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Choice returns the selected element of a discrete list.
func (s *ParameterStore) Choice(name string) (string, bool) {
	def, ok := s.defs[name]
	if !ok {
		return "", false
	}
	list, ok := def.Kind.(DiscreteList)
	if !ok {
		return "", false
	}
	return list.Values[s.choices[name]], true
}

// Names returns every declared parameter name, sorted.
func (s *ParameterStore) Names() []string {
	out := make([]string, 0, len(s.defs))
	for name := range s.defs {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func (s *ParameterStore) valueOr(name string, def float64) float64 {
	if v, ok := s.values[name]; ok {
		return v
	}
	return def
}

// Envelope returns the current ADSR settings.
func (s *ParameterStore) Envelope() EnvelopeParams {
	d := DefaultEnvelope()
	return EnvelopeParams{
		Attack:  s.valueOr(ParamAttack, d.Attack),
		Decay:   s.valueOr(ParamDecay, d.Decay),
		Sustain: s.valueOr(ParamSustain, d.Sustain),
		Release: s.valueOr(ParamRelease, d.Release),
	}
}

// Waveform returns the selected oscillator shape.
func (s *ParameterStore) Waveform() Waveform {
	name, ok := s.Choice(ParamWaveform)
	if !ok {
		return WaveSine
	}
	w, _ := ParseWaveform(name)
	return w
}

// Snapshot copies every render-relevant value.
func (s *ParameterStore) Snapshot() Params {
	return Params{
		Envelope:      s.Envelope(),
		Waveform:      s.Waveform(),
		CutoffHz:      s.valueOr(ParamCutoff, 12000),
		Resonance:     s.valueOr(ParamResonance, 0.707),
		ReverbWet:     s.valueOr(ParamReverbWet, 0),
		ReverbDry:     s.valueOr(ParamReverbDry, 1),
		TremoloRateHz: s.valueOr(ParamTremoloRate, 4),
		TremoloDepth:  s.valueOr(ParamTremoloDepth, 0),
		BitDepth:      s.valueOr(ParamBitDepth, 16),
		MasterVolume:  s.valueOr(ParamMasterVolume, 0.8),
	}
}
