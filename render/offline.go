package render

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/synth"
)

// DefaultBlockSize is the offline render block length in frames.
const DefaultBlockSize = 128

// Offline plays events through e and renders until tail seconds after the
// last event. e must use r as its sink and clock. Each event is applied at
// the first frame at or after its time. Returns stereo interleaved samples.
func Offline(e *synth.Engine, r *Renderer, events []synth.TimedEvent, tail float64, blockSize int) ([]float32, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if tail < 0 || math.IsNaN(tail) {
		return nil, errors.Errorf("tail must be >= 0: %v", tail)
	}
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b synth.TimedEvent) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})

	sr := float64(r.SampleRate())
	frameOf := func(t float64) int64 { return int64(math.Ceil(t*sr - 1e-9)) }
	last := 0.0
	if len(sorted) > 0 {
		last = max(sorted[len(sorted)-1].At, 0)
	}
	total := r.Position() + frameOf(last+tail)

	out := make([]float32, 0, 2*int(total-r.Position()))
	next := 0
	for {
		pos := r.Position()
		for next < len(sorted) && frameOf(sorted[next].At) <= pos {
			ev := sorted[next]
			if err := e.HandleEvent(ev.Event); err != nil {
				return out, errors.Wrapf(err, "event at %.3fs", ev.At)
			}
			next++
		}
		if pos >= total {
			break
		}
		stop := total
		if next < len(sorted) {
			stop = min(stop, frameOf(sorted[next].At))
		}
		n := int(min(stop-pos, int64(blockSize)))
		out = append(out, r.Process(n)...)
	}
	return out, nil
}
