// Package analysis turns the audio flowing through the media element into
// the small normalized buffers the visualizer draws.
package analysis

import "sync"

// Tap is a sample sink that keeps the most recent mono mix in a ring
// buffer for the analyser.
type Tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	size int
}

// NewTap creates a tap holding size samples.
func NewTap(size int) *Tap {
	if size < 1 {
		size = 1
	}
	return &Tap{buf: make([]float64, size), size: size}
}

// Write captures a mono mix of the frames.
func (t *Tap) Write(samples [][2]float64) {
	t.mu.Lock()
	for i := range samples {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
}

// Samples returns the last n samples in chronological order.
func (t *Tap) Samples(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// Clear zeroes the buffer.
func (t *Tap) Clear() {
	t.mu.Lock()
	clear(t.buf)
	t.pos = 0
	t.mu.Unlock()
}
