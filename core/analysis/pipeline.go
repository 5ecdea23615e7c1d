package analysis

import (
	"fmt"
	"sync"

	"VoidFM/core/audio"
	"VoidFM/logger"
)

// Mode selects which analyser buffer feeds the visualizer.
type Mode string

const (
	ModeFrequency Mode = "frequency"
	ModeWaveform  Mode = "waveform"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFrequency, ModeWaveform:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown visualizer mode %q", s)
}

// tapHistory is how much audio the tap keeps beyond one transform.
const tapHistory = 4096

// Pipeline owns the single analysis tap of a media element and produces
// fixed-length sample buffers in [0,1].
type Pipeline struct {
	fftSize int
	size    int

	mu          sync.Mutex
	mode        Mode
	tap         *Tap
	analyser    *Analyser
	initialized bool
	failed      error
	suspended   bool
	last        []float64
}

// NewPipeline creates an uninitialized pipeline producing size values.
func NewPipeline(fftSize, size int, mode Mode) *Pipeline {
	if size < 1 {
		size = 48
	}
	if mode == "" {
		mode = ModeFrequency
	}
	return &Pipeline{fftSize: fftSize, size: size, mode: mode, last: make([]float64, size)}
}

// Initialize attaches the tap to the element on first call. Later calls
// return the first outcome; a failed graph is never retried and the
// pipeline keeps producing zeros.
func (p *Pipeline) Initialize(el audio.Element) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if p.failed != nil {
		return p.failed
	}

	size := transformSize(p.fftSize)
	if size < tapHistory {
		size = tapHistory
	}
	tap := NewTap(size)
	if err := el.AttachSink(tap); err != nil {
		p.failed = fmt.Errorf("attach analysis tap: %w", err)
		logger.Warn("Analyzer unavailable, visualizer will stay idle", logger.ErrorField(err))
		return p.failed
	}
	p.tap = tap
	p.analyser = NewAnalyser(tap, p.fftSize)
	p.initialized = true
	logger.Info("Analysis tap initialized",
		logger.Int("fftSize", p.analyser.FFTSize()),
		logger.Int("samples", p.size))
	return nil
}

// Initialized reports whether a tap is attached.
func (p *Pipeline) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Suspend stops Sample from reading the analyser; the last buffer is kept.
func (p *Pipeline) Suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
}

// Resume undoes Suspend.
func (p *Pipeline) Resume() {
	p.mu.Lock()
	p.suspended = false
	p.mu.Unlock()
}

// Suspended reports the suspend state.
func (p *Pipeline) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}

// Sample reads the analyser once and downsamples by fixed stride. Without
// an analyser it yields zeros. The result always has Size() values in [0,1].
func (p *Pipeline) Sample() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		clear(p.last)
		return p.copyLast()
	}
	if p.suspended {
		return p.copyLast()
	}

	var raw []uint8
	var norm func(uint8) float64
	if p.mode == ModeWaveform {
		raw = p.analyser.ByteTimeDomainData()
		norm = func(v uint8) float64 {
			d := float64(v) - 128
			if d < 0 {
				d = -d
			}
			return d / 128
		}
	} else {
		raw = p.analyser.ByteFrequencyData()
		norm = func(v uint8) float64 { return float64(v) / 255 }
	}

	stride := len(raw) / p.size
	if stride < 1 {
		stride = 1
	}
	for i := range p.last {
		idx := i * stride
		if idx >= len(raw) {
			p.last[i] = 0
			continue
		}
		p.last[i] = min(1, norm(raw[idx]))
	}
	return p.copyLast()
}

// Last returns the most recent buffer without reading the analyser.
func (p *Pipeline) Last() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLast()
}

// Reset zeroes the buffer and drops audio from the previous source.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.last)
	if p.tap != nil {
		p.tap.Clear()
	}
	if p.analyser != nil {
		p.analyser.Reset()
	}
}

// SetMode switches between frequency and waveform sampling.
func (p *Pipeline) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != m {
		p.mode = m
		clear(p.last)
		if p.analyser != nil {
			p.analyser.Reset()
		}
	}
	return nil
}

// Mode returns the current sampling mode.
func (p *Pipeline) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Size is the length of every buffer Sample returns.
func (p *Pipeline) Size() int { return p.size }

func (p *Pipeline) copyLast() []float64 {
	return append([]float64(nil), p.last...)
}
