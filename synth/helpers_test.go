package synth

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]Directive
}

func (s *recordingSink) Submit(batch ...Directive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, slices.Clone(batch))
}

func (s *recordingSink) all() []Directive {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Directive
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *recordingSink) last() []Directive {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recordingSink, *ManualClock) {
	t.Helper()
	sink := &recordingSink{}
	clock := &ManualClock{}
	opts = append([]Option{WithClock(clock), WithLogger(quietLogger())}, opts...)
	e, err := New(sink, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, sink, clock
}

func sortedNotes(notes []Note) []Note {
	out := slices.Clone(notes)
	slices.Sort(out)
	return out
}

func assertNotes(t *testing.T, label string, got []Note, want ...Note) {
	t.Helper()
	g := sortedNotes(got)
	w := sortedNotes(want)
	if !slices.Equal(g, w) {
		t.Fatalf("%s: got=%v want=%v", label, g, w)
	}
}
