package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// Analyser defaults, matching a browser AnalyserNode.
const (
	DefaultFFTSize   = 256
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Analyser reads byte-scaled frequency and time-domain data from a Tap.
// Frequency data is Blackman-windowed, smoothed over time and mapped from
// [MinDB, MaxDB] onto 0..255.
type Analyser struct {
	tap       *Tap
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64
	window    []float64

	mu       sync.Mutex
	smoothed []float64
}

// NewAnalyser creates an analyser over tap. fftSize is rounded up to a
// power of two (minimum 32).
func NewAnalyser(tap *Tap, fftSize int) *Analyser {
	size := transformSize(fftSize)
	return &Analyser{
		tap:       tap,
		fftSize:   size,
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
		window:    blackman(size),
		smoothed:  make([]float64, size/2),
	}
}

// transformSize rounds n up to a power of two, at least 32.
func transformSize(n int) int {
	size := 32
	for size < n {
		size <<= 1
	}
	return size
}

// FFTSize returns the transform size.
func (a *Analyser) FFTSize() int { return a.fftSize }

// BinCount is half the FFT size.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// ByteTimeDomainData returns BinCount samples centered at 128.
func (a *Analyser) ByteTimeDomainData() []uint8 {
	samples := a.tap.Samples(a.fftSize)
	out := make([]uint8, a.BinCount())
	for i := range out {
		out[i] = toByte(128 * (1 + samples[i]))
	}
	return out
}

// ByteFrequencyData returns BinCount magnitudes on the byte scale.
func (a *Analyser) ByteFrequencyData() []uint8 {
	samples := a.tap.Samples(a.fftSize)
	for i := range samples {
		samples[i] *= a.window[i]
	}
	spectrum := fft.FFTReal(samples)

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]uint8, a.BinCount())
	scale := 255 / (a.maxDB - a.minDB)
	for k := range out {
		mag := cmplx.Abs(spectrum[k]) / float64(a.fftSize)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		db := 20 * math.Log10(a.smoothed[k])
		if math.IsInf(db, -1) || math.IsNaN(db) {
			out[k] = 0
			continue
		}
		out[k] = toByte(scale * (db - a.minDB))
	}
	return out
}

// Reset clears the smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	clear(a.smoothed)
	a.mu.Unlock()
}

func toByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func blackman(n int) []float64 {
	const alpha = 0.16
	a0, a1, a2 := (1-alpha)/2, 0.5, alpha/2
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
