package synth

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidNote is returned for note numbers outside 0..127.
	ErrInvalidNote = errors.New("note out of range")
	// ErrInvalidValue is returned for velocities, controller ids or values
	// outside 0..127.
	ErrInvalidValue = errors.New("value out of range")
)

type config struct {
	capacity    int
	selector    Selector
	clock       Clock
	logger      *slog.Logger
	defs        []ParameterDef
	controllers ControllerMap
	values      map[string]float64
	listener    func(Params)
}

// Option configures an Engine.
type Option func(*config)

// WithCapacity sets the maximum number of simultaneous voices.
func WithCapacity(n int) Option { return func(c *config) { c.capacity = n } }

// WithSelector sets the voice priority policy.
func WithSelector(s Selector) Option { return func(c *config) { c.selector = s } }

// WithClock sets the logical time source.
func WithClock(clock Clock) Option { return func(c *config) { c.clock = clock } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// WithParameterDefs replaces the default parameter table.
func WithParameterDefs(defs []ParameterDef) Option {
	return func(c *config) { c.defs = defs }
}

// WithControllerMap replaces the default controller table.
func WithControllerMap(m ControllerMap) Option {
	return func(c *config) { c.controllers = m }
}

// WithParameterValue overrides the initial physical value of one parameter.
func WithParameterValue(name string, value float64) Option {
	return func(c *config) {
		if c.values == nil {
			c.values = make(map[string]float64)
		}
		c.values[name] = value
	}
}

// WithParamListener registers fn to receive a snapshot after every accepted
// parameter change. fn runs with the engine lock held and must not call back
// into the engine.
func WithParamListener(fn func(Params)) Option {
	return func(c *config) { c.listener = fn }
}

// Engine owns the held-note set, the voice pool and the parameter store and
// serialises every input event against them.
type Engine struct {
	mu       sync.Mutex
	held     HeldNotes
	alloc    *Allocator
	store    *ParameterStore
	clock    Clock
	listener func(Params)
	logger   *slog.Logger
}

// New builds an engine that sends its directives to sink.
func New(sink Sink, opts ...Option) (*Engine, error) {
	cfg := config{
		capacity:    DefaultMaxVoices,
		selector:    LowestFirst{},
		defs:        DefaultParameterDefs(),
		controllers: DefaultControllerMap(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.clock == nil {
		cfg.clock = &ManualClock{}
	}
	if cfg.capacity < 1 {
		return nil, errors.Errorf("capacity must be >= 1, got %d", cfg.capacity)
	}

	store, err := NewParameterStore(cfg.defs, cfg.controllers, cfg.logger)
	if err != nil {
		return nil, errors.Wrap(err, "parameter table")
	}
	for name, v := range cfg.values {
		if err := store.SetValue(name, v); err != nil {
			return nil, errors.Wrap(err, "parameter override")
		}
	}
	if err := store.Envelope().Validate(); err != nil {
		return nil, err
	}

	pool := NewVoicePool(cfg.capacity, sink, cfg.logger)
	return &Engine{
		alloc:    NewAllocator(pool, cfg.selector, store, cfg.logger),
		store:    store,
		clock:    cfg.clock,
		listener: cfg.listener,
		logger:   cfg.logger,
	}, nil
}

// NoteOn presses note. A zero velocity releases it instead.
func (e *Engine) NoteOn(note Note, velocity int) error {
	if !note.Valid() {
		return errors.Wrapf(ErrInvalidNote, "note_on %d", int(note))
	}
	if velocity < 0 || velocity > MaxControllerValue {
		return errors.Wrapf(ErrInvalidValue, "note_on velocity %d", velocity)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if velocity == 0 {
		e.release(note)
		return nil
	}
	if !e.held.Press(note) {
		return nil
	}
	e.reconcile()
	return nil
}

// NoteOff releases note. Releasing a note that is not held is a no-op.
func (e *Engine) NoteOff(note Note) error {
	if !note.Valid() {
		return errors.Wrapf(ErrInvalidNote, "note_off %d", int(note))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release(note)
	return nil
}

func (e *Engine) release(note Note) {
	if !e.held.Release(note) {
		return
	}
	e.reconcile()
}

// ControlChange applies a controller value through the controller map.
// All-sound-off and all-notes-off release every voice.
func (e *Engine) ControlChange(controller, value int) error {
	if controller < 0 || controller > MaxControllerValue {
		return errors.Wrapf(ErrInvalidValue, "controller %d", controller)
	}
	if value < 0 || value > MaxControllerValue {
		return errors.Wrapf(ErrInvalidValue, "controller %d value %d", controller, value)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch controller {
	case CCAllSoundOff, CCAllNotesOff:
		e.allNotesOff()
		return nil
	}
	if e.store.ApplyControl(controller, value) && e.listener != nil {
		e.listener(e.store.Snapshot())
	}
	return nil
}

// SetParameter stores a physical parameter value directly.
func (e *Engine) SetParameter(name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SetValue(name, value); err != nil {
		return err
	}
	if e.listener != nil {
		e.listener(e.store.Snapshot())
	}
	return nil
}

// HandleEvent dispatches a parsed input event.
func (e *Engine) HandleEvent(ev Event) error {
	switch ev := ev.(type) {
	case NoteOn:
		return e.NoteOn(ev.Note, ev.Velocity)
	case NoteOff:
		return e.NoteOff(ev.Note)
	case ControlChange:
		return e.ControlChange(ev.Controller, ev.Value)
	case nil:
		return errors.New("nil event")
	default:
		return errors.Errorf("unsupported event %T", ev)
	}
}

// AllNotesOff clears the held set and releases every live voice.
func (e *Engine) AllNotesOff() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allNotesOff()
}

func (e *Engine) allNotesOff() {
	e.held.Clear()
	e.reconcile()
}

func (e *Engine) reconcile() {
	res := e.alloc.Reconcile(&e.held, e.clock.Now())
	if res.Stolen >= 0 {
		e.logger.Debug("voice stolen", "victim", res.Stolen.String(), "for", res.Created.String())
	}
	if len(res.Released) > 0 {
		e.logger.Debug("voices released", "notes", noteLabels(res.Released), "active", e.alloc.Pool().Size())
	}
}

func noteLabels(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.String()
	}
	return out
}

// HeldNotes returns the held keys in press order.
func (e *Engine) HeldNotes() []Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.held.Notes()
}

// ActiveNotes returns the notes with a live voice, in slot order.
func (e *Engine) ActiveNotes() []Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alloc.Pool().Notes()
}

// Params returns a snapshot of the current parameter values.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot()
}

// ParameterNames returns every declared parameter name, sorted.
func (e *Engine) ParameterNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Names()
}

// Capacity returns the voice limit.
func (e *Engine) Capacity() int { return e.alloc.Pool().Capacity() }
