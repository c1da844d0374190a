// Package patch loads synth configuration from JSON patch files.
package patch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/render"
	"github.com/cwbudde/algo-polysynth/synth"
)

// Patch is a resolved synth configuration.
type Patch struct {
	MaxVoices   int
	Priority    string
	Defs        []synth.ParameterDef
	Controllers synth.ControllerMap
	// Values holds physical parameter overrides by name.
	Values map[string]float64

	ReverbIRWavPath string
	RoomIR          *render.RoomIRConfig
}

// Default returns the stock configuration.
func Default() *Patch {
	return &Patch{
		MaxVoices:   synth.DefaultMaxVoices,
		Priority:    "lowest",
		Defs:        synth.DefaultParameterDefs(),
		Controllers: synth.DefaultControllerMap(),
		Values:      map[string]float64{},
	}
}

// File is the JSON schema for patch files. Absent fields keep their defaults.
type File struct {
	MaxVoices          *int                `json:"max_voices"`
	Priority           *string             `json:"priority"`
	Envelope           *EnvelopeSetting    `json:"envelope"`
	Waveform           *string             `json:"waveform"`
	Values             map[string]float64  `json:"values"`
	ReverbIRWavPath    string              `json:"reverb_ir_wav_path"`
	RoomIR             json.RawMessage     `json:"room_ir"`
	ReplaceControllers bool                `json:"replace_controllers"`
	Controllers        []ControllerSetting `json:"controllers"`
	Parameters         []ParameterSetting  `json:"parameters"`
}

// EnvelopeSetting overrides envelope defaults in seconds and sustain level.
type EnvelopeSetting struct {
	Attack  *float64 `json:"attack"`
	Decay   *float64 `json:"decay"`
	Sustain *float64 `json:"sustain"`
	Release *float64 `json:"release"`
}

// ControllerSetting routes one controller id to a parameter.
type ControllerSetting struct {
	Controller int    `json:"controller"`
	Parameter  string `json:"parameter"`
}

// ParameterSetting declares or replaces a parameter. Kind is "scalar",
// "mix" or "list".
type ParameterSetting struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Wet     string   `json:"wet"`
	Dry     string   `json:"dry"`
	Values  []string `json:"values"`
	Default float64  `json:"default"`
}

// LoadJSON loads a patch file and applies it on top of Default. A relative
// reverb_ir_wav_path resolves against the patch file's directory.
func LoadJSON(path string) (*Patch, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	p := Default()
	if err := ApplyFile(p, &f); err != nil {
		return nil, errors.Wrap(err, path)
	}
	if p.ReverbIRWavPath != "" && !filepath.IsAbs(p.ReverbIRWavPath) {
		p.ReverbIRWavPath = filepath.Clean(filepath.Join(filepath.Dir(path), p.ReverbIRWavPath))
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

// ApplyFile applies a parsed patch file onto dst.
func ApplyFile(dst *Patch, f *File) error {
	if dst == nil {
		return errors.New("nil destination patch")
	}
	if f == nil {
		return nil
	}
	if dst.Values == nil {
		dst.Values = map[string]float64{}
	}

	if f.MaxVoices != nil {
		if *f.MaxVoices < 1 {
			return errors.New("max_voices must be >= 1")
		}
		dst.MaxVoices = *f.MaxVoices
	}
	if f.Priority != nil {
		if _, ok := synth.SelectorByName(*f.Priority); !ok {
			return errors.Errorf("priority must be lowest, highest or newest: %q", *f.Priority)
		}
		dst.Priority = strings.ToLower(strings.TrimSpace(*f.Priority))
	}

	for _, ps := range f.Parameters {
		def, err := ps.def()
		if err != nil {
			return err
		}
		i := slices.IndexFunc(dst.Defs, func(d synth.ParameterDef) bool { return d.Name == def.Name })
		if i >= 0 {
			dst.Defs[i] = def
		} else {
			dst.Defs = append(dst.Defs, def)
		}
	}

	if f.ReplaceControllers {
		dst.Controllers = synth.ControllerMap{}
	}
	for _, c := range f.Controllers {
		if c.Controller < 0 || c.Controller > synth.MaxControllerValue {
			return errors.Errorf("controller %d must be in 0..127", c.Controller)
		}
		if c.Controller == synth.CCAllSoundOff || c.Controller == synth.CCAllNotesOff {
			return errors.Errorf("controller %d is reserved", c.Controller)
		}
		name := strings.TrimSpace(c.Parameter)
		if name == "" {
			delete(dst.Controllers, c.Controller)
			continue
		}
		if dst.Controllers == nil {
			dst.Controllers = synth.ControllerMap{}
		}
		dst.Controllers[c.Controller] = name
	}

	if env := f.Envelope; env != nil {
		set := func(name string, v *float64) {
			if v != nil {
				dst.Values[name] = *v
			}
		}
		set(synth.ParamAttack, env.Attack)
		set(synth.ParamDecay, env.Decay)
		set(synth.ParamSustain, env.Sustain)
		set(synth.ParamRelease, env.Release)
	}
	if f.Waveform != nil {
		idx, err := dst.choiceIndex(synth.ParamWaveform, *f.Waveform)
		if err != nil {
			return err
		}
		dst.Values[synth.ParamWaveform] = float64(idx)
	}
	for name, v := range f.Values {
		dst.Values[name] = v
	}

	if f.ReverbIRWavPath != "" {
		dst.ReverbIRWavPath = strings.TrimSpace(f.ReverbIRWavPath)
	}
	if len(f.RoomIR) > 0 && string(f.RoomIR) != "null" {
		cfg := render.DefaultRoomIRConfig()
		if dst.RoomIR != nil {
			cfg = *dst.RoomIR
		}
		if err := json.Unmarshal(f.RoomIR, &cfg); err != nil {
			return errors.Wrap(err, "room_ir")
		}
		dst.RoomIR = &cfg
	}
	return nil
}

func (ps ParameterSetting) def() (synth.ParameterDef, error) {
	name := strings.TrimSpace(ps.Name)
	if name == "" {
		return synth.ParameterDef{}, errors.New("parameters: name must not be empty")
	}
	d := synth.ParameterDef{Name: name, Default: ps.Default}
	switch strings.ToLower(ps.Kind) {
	case "scalar":
		d.Kind = synth.Scalar{Min: ps.Min, Max: ps.Max}
	case "mix":
		d.Kind = synth.Mix{Wet: ps.Wet, Dry: ps.Dry}
	case "list":
		d.Kind = synth.DiscreteList{Values: slices.Clone(ps.Values)}
	default:
		return synth.ParameterDef{}, errors.Errorf("parameters[%s]: kind must be scalar, mix or list: %q", name, ps.Kind)
	}
	return d, nil
}

func (p *Patch) choiceIndex(param, value string) (int, error) {
	for _, d := range p.Defs {
		if d.Name != param {
			continue
		}
		list, ok := d.Kind.(synth.DiscreteList)
		if !ok {
			return 0, errors.Errorf("%s is not a list parameter", param)
		}
		i := slices.Index(list.Values, strings.TrimSpace(value))
		if i < 0 {
			return 0, errors.Errorf("%s must be one of %s: %q", param, strings.Join(list.Values, ", "), value)
		}
		return i, nil
	}
	return 0, errors.Errorf("unknown parameter %q", param)
}

// Validate checks the patch builds a working engine.
func (p *Patch) Validate() error {
	if _, err := synth.New(nil, p.EngineOptions()...); err != nil {
		return err
	}
	if p.RoomIR != nil {
		cfg := *p.RoomIR
		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "room_ir")
		}
	}
	return nil
}

// EngineOptions converts the patch into engine options.
func (p *Patch) EngineOptions() []synth.Option {
	sel, ok := synth.SelectorByName(p.Priority)
	if !ok {
		sel = synth.LowestFirst{}
	}
	opts := []synth.Option{
		synth.WithCapacity(p.MaxVoices),
		synth.WithSelector(sel),
		synth.WithParameterDefs(p.Defs),
		synth.WithControllerMap(p.Controllers),
	}
	names := make([]string, 0, len(p.Values))
	for name := range p.Values {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts = append(opts, synth.WithParameterValue(name, p.Values[name]))
	}
	return opts
}

// Reverb builds the convolution reverb the patch asks for at sampleRate: the
// WAV impulse response if one is set, else a synthesized room. Returns nil
// when neither is configured.
func (p *Patch) Reverb(sampleRate int) (*render.ConvolutionReverb, error) {
	if p.ReverbIRWavPath != "" {
		return render.LoadConvolutionReverb(p.ReverbIRWavPath, sampleRate)
	}
	if p.RoomIR == nil {
		return nil, nil
	}
	cfg := *p.RoomIR
	cfg.SampleRate = sampleRate
	left, right, err := render.SynthesizeRoomIR(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "room_ir")
	}
	return render.NewConvolutionReverb(left, right, render.DefaultPartitionSize)
}
