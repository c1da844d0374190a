package synth

import (
	"log/slog"
	"slices"
)

// VoiceSource supplies per-voice settings at creation time.
type VoiceSource interface {
	Envelope() EnvelopeParams
	Waveform() Waveform
}

// Result describes the pool changes made by one Reconcile call.
type Result struct {
	Released []Note
	Stolen   Note // -1 when nothing was stolen
	Created  Note // -1 when nothing was created
	Deferred Note // -1 unless an allocation was skipped for lack of a victim
}

// Allocator reconciles the held notes with the voices in the pool.
type Allocator struct {
	pool     *VoicePool
	selector Selector
	source   VoiceSource
	logger   *slog.Logger
}

// NewAllocator wires a pool, a priority policy and the source of envelope
// and waveform settings.
func NewAllocator(pool *VoicePool, selector Selector, source VoiceSource, logger *slog.Logger) *Allocator {
	if selector == nil {
		selector = LowestFirst{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{
		pool:     pool,
		selector: selector,
		source:   source,
		logger:   logger,
	}
}

func (a *Allocator) Pool() *VoicePool { return a.pool }

// Reconcile brings the pool in line with held at logical time now. Every
// pooled note that is no longer wanted is released; then at most one wanted
// note that is not sounding yet gets a voice, stealing at most one voice if
// the pool is full.
//
// A created note's Stolen is the voice it displaced: a released note that is
// still held, or the explicit victim when the pool was full.
func (a *Allocator) Reconcile(held *HeldNotes, now float64) Result {
	res := Result{Stolen: -1, Created: -1, Deferred: -1}
	env := a.source.Envelope()

	wanted := a.selector.Select(held.notes, a.pool.Capacity())

	displaced := Note(-1)
	for _, note := range a.pool.Notes() {
		if slices.Contains(wanted, note) {
			continue
		}
		if a.pool.BeginRelease(note, env, now) {
			res.Released = append(res.Released, note)
			if displaced < 0 && held.Contains(note) {
				displaced = note
			}
		}
	}

	next := Note(-1)
	for _, note := range wanted {
		if !a.pool.Contains(note) {
			next = note
			break
		}
	}
	if next < 0 {
		return res
	}

	if a.pool.Size() >= a.pool.Capacity() {
		victim := Note(-1)
		for _, note := range a.pool.Notes() {
			if !slices.Contains(wanted, note) {
				victim = note
				break
			}
		}
		if victim < 0 {
			a.logger.Warn("no voice to steal, allocation deferred", "note", next.String(), "wanted", len(wanted), "capacity", a.pool.Capacity())
			res.Deferred = next
			return res
		}
		a.pool.BeginRelease(victim, env, now)
		res.Released = append(res.Released, victim)
		displaced = victim
	}

	cfg := VoiceConfig{
		Note:      next,
		Frequency: FrequencyFromNote(next),
		Waveform:  a.source.Waveform(),
		Envelope:  env,
	}
	if _, err := a.pool.Create(cfg, now); err != nil {
		a.logger.Error("voice allocation contract violated", "note", next.String(), "err", err)
		return res
	}
	res.Created = next
	res.Stolen = displaced
	return res
}
