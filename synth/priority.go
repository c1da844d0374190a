package synth

import (
	"slices"
	"strings"
)

// HeldNotes is the ordered set of keys currently held down, oldest first.
type HeldNotes struct {
	notes []Note
}

// Press appends note unless it is already held. Returns false for a repeat.
func (h *HeldNotes) Press(note Note) bool {
	if h.Contains(note) {
		return false
	}
	h.notes = append(h.notes, note)
	return true
}

// Release removes note. Returns false if it was not held.
func (h *HeldNotes) Release(note Note) bool {
	i := slices.Index(h.notes, note)
	if i < 0 {
		return false
	}
	h.notes = slices.Delete(h.notes, i, i+1)
	return true
}

func (h *HeldNotes) Contains(note Note) bool { return slices.Contains(h.notes, note) }
func (h *HeldNotes) Len() int                { return len(h.notes) }

// Clear drops every held note.
func (h *HeldNotes) Clear() { h.notes = h.notes[:0] }

// Notes returns a copy in press order.
func (h *HeldNotes) Notes() []Note { return slices.Clone(h.notes) }

// Selector decides which held notes should be audible. Select returns at most
// capacity notes ordered from highest to lowest priority.
type Selector interface {
	Select(held []Note, capacity int) []Note
}

// LowestFirst admits the lowest pitches.
type LowestFirst struct{}

func (LowestFirst) Select(held []Note, capacity int) []Note {
	sorted := slices.Clone(held)
	slices.Sort(sorted)
	return truncate(sorted, capacity)
}

// HighestFirst admits the highest pitches.
type HighestFirst struct{}

func (HighestFirst) Select(held []Note, capacity int) []Note {
	sorted := slices.Clone(held)
	slices.Sort(sorted)
	slices.Reverse(sorted)
	return truncate(sorted, capacity)
}

// NewestFirst admits the most recently pressed notes.
type NewestFirst struct{}

func (NewestFirst) Select(held []Note, capacity int) []Note {
	newest := slices.Clone(held)
	slices.Reverse(newest)
	return truncate(newest, capacity)
}

func truncate(notes []Note, capacity int) []Note {
	if capacity <= 0 {
		return nil
	}
	if len(notes) > capacity {
		notes = notes[:capacity]
	}
	return notes
}

// SelectorByName resolves "lowest", "highest" or "newest".
func SelectorByName(name string) (Selector, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lowest":
		return LowestFirst{}, true
	case "highest":
		return HighestFirst{}, true
	case "newest":
		return NewestFirst{}, true
	default:
		return nil, false
	}
}
