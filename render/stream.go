package render

import (
	"encoding/binary"
	"math"
	"sync"
)

// Stream adapts a Renderer to io.Reader producing interleaved float32
// little-endian stereo frames, the layout audio output devices consume.
type Stream struct {
	r   *Renderer
	mu  sync.Mutex
	buf []float32
}

// NewStream wraps r.
func NewStream(r *Renderer) *Stream {
	return &Stream{r: r}
}

// Read renders as many whole frames as fit in p.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buf) < frames*2 {
		s.buf = make([]float32, frames*2)
	}
	samples := s.buf[:frames*2]
	s.r.ProcessInto(samples)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * 8, nil
}
