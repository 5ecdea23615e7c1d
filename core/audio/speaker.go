package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"VoidFM/logger"
)

const timeUpdateInterval = 250 * time.Millisecond

var (
	speakerOnce sync.Once
	speakerErr  error
)

// SourceOpener opens a locator for reading.
type SourceOpener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

// output is the mixer the element feeds. Lock guards every streamer that
// has been handed to Play.
type output interface {
	Lock()
	Unlock()
	Play(s beep.Streamer)
	Clear()
}

// deviceOutput is the system speaker.
type deviceOutput struct{}

func (deviceOutput) Lock()                { speaker.Lock() }
func (deviceOutput) Unlock()              { speaker.Unlock() }
func (deviceOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (deviceOutput) Clear()               { speaker.Clear() }

// SpeakerElement plays sources through the system audio device:
//
//	[Decode] -> [Resample] -> [Sink tee] -> [Ctrl] -> [Speaker]
//
// Play blocks while the source is fetched and decoded, without holding
// any lock; a Pause or SetSource in that window aborts it.
type SpeakerElement struct {
	emitter
	sinks sinkSet

	out      output
	opener   SourceOpener
	registry *DecoderRegistry
	sr       beep.SampleRate

	mu       sync.Mutex
	src      string
	data     []byte // buffered bytes of dataSrc
	dataSrc  string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	paused   bool
	pending  float64 // seek requested before load
	gen      uint64  // bumped whenever the queued stream is dropped
	intent   uint64  // bumped by Pause and SetSource
	tickStop chan struct{}
}

// NewSpeakerElement initializes the speaker once at the given rate.
func NewSpeakerElement(opener SourceOpener, registry *DecoderRegistry, sampleRate int) (*SpeakerElement, error) {
	sr := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("speaker init: %w", speakerErr)
	}
	return newSpeakerElement(deviceOutput{}, opener, registry, sr), nil
}

func newSpeakerElement(out output, opener SourceOpener, registry *DecoderRegistry, sr beep.SampleRate) *SpeakerElement {
	if registry == nil {
		registry = NewDecoderRegistry()
	}
	return &SpeakerElement{out: out, opener: opener, registry: registry, sr: sr, paused: true}
}

// SetSource switches the source. The previous stream is dropped and the
// element is left paused at 0, like assigning src on a media element.
func (e *SpeakerElement) SetSource(src string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
	e.src = src
	e.pending = 0
	e.paused = true
	e.intent++
	e.stopTickerLocked()
}

func (e *SpeakerElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// Play loads the source if needed and starts output.
func (e *SpeakerElement) Play(ctx context.Context) error {
	e.mu.Lock()
	src := e.src
	intent := e.intent
	loaded := e.streamer != nil
	e.mu.Unlock()

	if src == "" {
		return ErrNoSource
	}

	if !loaded {
		if err := e.load(ctx, src); err != nil {
			if !errors.Is(err, ErrAborted) {
				e.emit(Event{Type: EventError, Source: src, Duration: math.NaN(), Err: err})
			}
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.intent != intent || e.ctrl == nil {
		return fmt.Errorf("%w: %s", ErrAborted, src)
	}
	e.out.Lock()
	e.ctrl.Paused = false
	e.out.Unlock()
	e.paused = false
	e.startTickerLocked()
	return nil
}

func (e *SpeakerElement) load(ctx context.Context, src string) error {
	data, err := e.fetch(ctx, src)
	if err != nil {
		return err
	}
	streamer, format, err := e.registry.Decode(src, data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.src != src {
		e.mu.Unlock()
		streamer.Close()
		return fmt.Errorf("%w: source changed while loading %s", ErrAborted, src)
	}
	e.data, e.dataSrc = data, src
	if e.streamer != nil {
		// 并发的 Play 已经完成加载
		e.mu.Unlock()
		streamer.Close()
		return nil
	}
	e.streamer, e.format = streamer, format
	if e.pending > 0 {
		if err := streamer.Seek(e.clampSampleLocked(e.pending)); err != nil {
			logger.Warn("Initial seek failed", logger.String("source", src), logger.ErrorField(err))
		}
		e.pending = 0
	}

	var s beep.Streamer = streamer
	if format.SampleRate != e.sr {
		s = beep.Resample(4, format.SampleRate, e.sr, s)
	}
	s = &teeStreamer{s: s, sinks: &e.sinks}
	e.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	e.gen++
	gen := e.gen
	start := format.SampleRate.D(streamer.Position()).Seconds()
	duration := format.SampleRate.D(streamer.Len()).Seconds()

	// Callback runs under the output lock; hand off before touching state.
	e.out.Play(beep.Seq(e.ctrl, beep.Callback(func() {
		go e.finished(gen)
	})))
	e.mu.Unlock()

	e.emit(Event{Type: EventLoadedMetadata, Source: src, CurrentTime: start, Duration: duration})
	return nil
}

func (e *SpeakerElement) fetch(ctx context.Context, src string) ([]byte, error) {
	e.mu.Lock()
	if e.dataSrc == src && e.data != nil {
		data := e.data
		e.mu.Unlock()
		return data, nil
	}
	e.mu.Unlock()

	if e.opener == nil {
		return nil, errors.New("no source opener configured")
	}
	rc, err := e.opener.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}

// finished handles the end of the stream queued as gen. Stale callbacks
// from a dropped stream are ignored.
func (e *SpeakerElement) finished(gen uint64) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.stopTickerLocked()
	src := e.src
	current, duration := e.timesLocked()
	// the consumed stream is gone from the mixer; replay decodes from the buffer
	e.unloadLocked()
	e.pending = 0
	e.mu.Unlock()

	e.emit(Event{Type: EventEnded, Source: src, CurrentTime: current, Duration: duration})
}

func (e *SpeakerElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl != nil {
		e.out.Lock()
		e.ctrl.Paused = true
		e.out.Unlock()
	}
	e.paused = true
	e.intent++
	e.stopTickerLocked()
}

func (e *SpeakerElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Seek moves the position; before load the target is applied on load.
func (e *SpeakerElement) Seek(seconds float64) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		e.pending = seconds
		return
	}
	e.out.Lock()
	err := e.streamer.Seek(e.clampSampleLocked(seconds))
	e.out.Unlock()
	if err != nil {
		logger.Warn("Seek failed", logger.String("source", e.src), logger.ErrorField(err))
	}
}

func (e *SpeakerElement) clampSampleLocked(seconds float64) int {
	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if last := e.streamer.Len() - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	return n
}

func (e *SpeakerElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, _ := e.timesLocked()
	return current
}

// Duration is NaN until the current source has been decoded.
func (e *SpeakerElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, duration := e.timesLocked()
	return duration
}

func (e *SpeakerElement) timesLocked() (float64, float64) {
	if e.streamer == nil {
		return e.pending, math.NaN()
	}
	e.out.Lock()
	pos := e.streamer.Position()
	e.out.Unlock()
	return e.format.SampleRate.D(pos).Seconds(), e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// AttachSink adds an analyzer sink; it observes every later source.
func (e *SpeakerElement) AttachSink(sink SampleSink) error {
	if sink == nil {
		return ErrGraphUnavailable
	}
	e.sinks.add(sink)
	return nil
}

func (e *SpeakerElement) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
	e.unloadLocked()
	e.paused = true
	e.intent++
	return nil
}

func (e *SpeakerElement) unloadLocked() {
	if e.streamer == nil {
		return
	}
	e.gen++
	e.out.Clear()
	if err := e.streamer.Close(); err != nil {
		logger.Warn("Failed to close stream", logger.String("source", e.src), logger.ErrorField(err))
	}
	e.streamer = nil
	e.ctrl = nil
}

func (e *SpeakerElement) startTickerLocked() {
	if e.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	e.tickStop = stop
	go func() {
		ticker := time.NewTicker(timeUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.mu.Lock()
				src := e.src
				current, duration := e.timesLocked()
				e.mu.Unlock()
				e.emit(Event{Type: EventTimeUpdate, Source: src, CurrentTime: current, Duration: duration})
			}
		}
	}()
}

func (e *SpeakerElement) stopTickerLocked() {
	if e.tickStop != nil {
		close(e.tickStop)
		e.tickStop = nil
	}
}

// teeStreamer copies everything it streams into the sinks.
type teeStreamer struct {
	s     beep.Streamer
	sinks *sinkSet
}

func (t *teeStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	t.sinks.write(samples[:n])
	return n, ok
}

func (t *teeStreamer) Err() error {
	return t.s.Err()
}
