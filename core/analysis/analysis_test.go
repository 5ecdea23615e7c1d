package analysis

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"VoidFM/core/audio"
)

func sine(n int, freq, rate, amp float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
		out[i] = [2]float64{v, v}
	}
	return out
}

func TestTapKeepsLatest(t *testing.T) {
	tap := NewTap(4)
	tap.Write([][2]float64{{1, 1}, {2, 2}, {3, 3}, {4, 0}, {5, 5}, {6, 6}})
	got := tap.Samples(4)
	want := []float64{3, 2, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	tap.Clear()
	for _, v := range tap.Samples(4) {
		if v != 0 {
			t.Fatal("clear left data behind")
		}
	}
}

func TestAnalyserSilence(t *testing.T) {
	a := NewAnalyser(NewTap(4096), 256)
	if a.BinCount() != 128 {
		t.Fatalf("bins = %d", a.BinCount())
	}
	for _, v := range a.ByteFrequencyData() {
		if v != 0 {
			t.Fatal("silence should have no spectrum")
		}
	}
	for _, v := range a.ByteTimeDomainData() {
		if v != 128 {
			t.Fatalf("silence should sit at midpoint, got %d", v)
		}
	}
}

func TestAnalyserFindsTone(t *testing.T) {
	tap := NewTap(4096)
	a := NewAnalyser(tap, 256)
	// bin 16 of a 256-point transform at 44.1kHz
	freq := 16 * 44100.0 / 256
	for i := 0; i < 20; i++ {
		tap.Write(sine(256, freq, 44100, 0.8))
		a.ByteFrequencyData()
	}
	data := a.ByteFrequencyData()
	peak := 0
	for k := range data {
		if data[k] > data[peak] {
			peak = k
		}
	}
	if peak < 15 || peak > 17 {
		t.Fatalf("peak at bin %d, want ~16", peak)
	}
	if data[100] >= data[peak] {
		t.Fatal("far bin as loud as tone")
	}
}

func TestPipelineZerosBeforeInit(t *testing.T) {
	p := NewPipeline(256, 48, ModeFrequency)
	got := p.Sample()
	if len(got) != 48 {
		t.Fatalf("len = %d", len(got))
	}
	for _, v := range got {
		if v != 0 {
			t.Fatal("expected zero buffer")
		}
	}
}

func TestPipelineInitializeOnce(t *testing.T) {
	el := audio.NewHeadlessElement()
	p := NewPipeline(256, 48, ModeFrequency)
	if err := p.Initialize(el); err != nil {
		t.Fatal(err)
	}
	if err := p.Initialize(el); err != nil {
		t.Fatal(err)
	}

	sink := 0
	counter := sinkFunc(func(s [][2]float64) { sink += len(s) })
	_ = el.AttachSink(counter)
	el.Feed(make([][2]float64, 10))
	if sink != 10 {
		t.Fatal("feed did not reach sinks")
	}
}

func TestPipelineTapCoversRoundedTransform(t *testing.T) {
	el := audio.NewHeadlessElement()
	p := NewPipeline(5000, 48, ModeFrequency)
	if err := p.Initialize(el); err != nil {
		t.Fatal(err)
	}
	if got := p.analyser.FFTSize(); got != 8192 {
		t.Fatalf("fft size = %d", got)
	}
	if p.tap.size < p.analyser.FFTSize() {
		t.Fatalf("tap holds %d samples, transform needs %d", p.tap.size, p.analyser.FFTSize())
	}
}

type sinkFunc func([][2]float64)

func (f sinkFunc) Write(s [][2]float64) { f(s) }

func TestPipelineGraphFailureIsSticky(t *testing.T) {
	el := audio.NewHeadlessElement()
	el.FailGraph(audio.ErrGraphUnavailable)
	p := NewPipeline(256, 24, ModeFrequency)

	if err := p.Initialize(el); !errors.Is(err, audio.ErrGraphUnavailable) {
		t.Fatalf("got %v", err)
	}
	el.FailGraph(nil)
	if err := p.Initialize(el); err == nil {
		t.Fatal("failure should be remembered")
	}
	if got := p.Sample(); len(got) != 24 || got[0] != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestPipelineSampleShapeAndRange(t *testing.T) {
	for _, mode := range []Mode{ModeFrequency, ModeWaveform} {
		el := audio.NewHeadlessElement()
		p := NewPipeline(256, 48, mode)
		if err := p.Initialize(el); err != nil {
			t.Fatal(err)
		}
		el.Feed(sine(4096, 1000, 44100, 1))
		got := p.Sample()
		if len(got) != 48 {
			t.Fatalf("%s: len = %d", mode, len(got))
		}
		nonzero := false
		for _, v := range got {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("%s: value out of range %v", mode, v)
			}
			if v > 0 {
				nonzero = true
			}
		}
		if !nonzero {
			t.Fatalf("%s: expected signal", mode)
		}

		p.Reset()
		for _, v := range p.Last() {
			if v != 0 {
				t.Fatalf("%s: reset left data", mode)
			}
		}
		if got := p.Sample(); len(got) != 48 {
			t.Fatalf("%s: len after reset = %d", mode, len(got))
		}
	}
}

func TestPipelineSuspendKeepsLast(t *testing.T) {
	el := audio.NewHeadlessElement()
	p := NewPipeline(256, 48, ModeWaveform)
	_ = p.Initialize(el)
	el.Feed(sine(4096, 440, 44100, 0.5))
	before := p.Sample()

	p.Suspend()
	el.Feed(make([][2]float64, 4096))
	after := p.Sample()
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("suspended pipeline should retain last buffer")
		}
	}
	p.Resume()
	for _, v := range p.Sample() {
		if v != 0 {
			t.Fatal("resumed pipeline should read silence")
		}
	}
}

func TestParseModeAndSetMode(t *testing.T) {
	p := NewPipeline(256, 48, "")
	if p.Mode() != ModeFrequency {
		t.Fatalf("default mode = %s", p.Mode())
	}
	if err := p.SetMode("spectrogram"); err == nil {
		t.Fatal("expected error")
	}
	if err := p.SetMode(ModeWaveform); err != nil || p.Mode() != ModeWaveform {
		t.Fatalf("mode = %s err = %v", p.Mode(), err)
	}
}

func TestLoopStartStop(t *testing.T) {
	l := NewLoop(200)
	var ticks atomic.Int64
	l.Start(func() { ticks.Add(1) })
	l.Start(func() { t.Error("second start must not replace fn") })
	if !l.Running() {
		t.Fatal("loop should be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	l.Stop()
	stopped := ticks.Load()
	if stopped < 3 {
		t.Fatalf("ticks = %d", stopped)
	}
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Fatal("callback ran after Stop returned")
	}
	if l.Running() {
		t.Fatal("loop should be stopped")
	}
	l.Stop()
}
