package audio

import (
	"context"
	"math"
	"sync"
	"time"
)

// HeadlessElement is an Element without an output device. Time advances
// only through Advance (or RunClock); sample data only through Feed.
// It backs servers without a sound card and the player tests.
type HeadlessElement struct {
	emitter
	sinks sinkSet

	mu        sync.Mutex
	src       string
	paused    bool
	current   float64
	duration  float64
	durations map[string]float64
	playErr   error
	graphErr  error
	calls     []string
}

// NewHeadlessElement creates a paused element with no source.
func NewHeadlessElement() *HeadlessElement {
	return &HeadlessElement{
		paused:    true,
		duration:  math.NaN(),
		durations: make(map[string]float64),
	}
}

// SetKnownDuration registers the metadata reported when src starts playing.
func (h *HeadlessElement) SetKnownDuration(src string, seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.durations[src] = seconds
}

// FailPlay makes every later Play return err (nil clears it).
func (h *HeadlessElement) FailPlay(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playErr = err
}

// FailGraph makes AttachSink return err (nil clears it).
func (h *HeadlessElement) FailGraph(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graphErr = err
}

// Calls returns the transport commands issued so far.
func (h *HeadlessElement) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *HeadlessElement) SetSource(src string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "load")
	h.src = src
	h.current = 0
	h.duration = math.NaN()
	h.paused = true
}

func (h *HeadlessElement) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.src
}

func (h *HeadlessElement) Play(ctx context.Context) error {
	h.mu.Lock()
	h.calls = append(h.calls, "play")
	if h.src == "" {
		h.mu.Unlock()
		return ErrNoSource
	}
	if h.playErr != nil {
		err := h.playErr
		h.mu.Unlock()
		return err
	}
	if err := ctx.Err(); err != nil {
		h.mu.Unlock()
		return err
	}
	h.paused = false
	var meta *Event
	if d, ok := h.durations[h.src]; ok && math.IsNaN(h.duration) {
		h.duration = d
		meta = &Event{Type: EventLoadedMetadata, Source: h.src, CurrentTime: h.current, Duration: d}
	}
	h.mu.Unlock()

	if meta != nil {
		h.emit(*meta)
	}
	return nil
}

func (h *HeadlessElement) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "pause")
	h.paused = true
}

func (h *HeadlessElement) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused
}

func (h *HeadlessElement) Seek(seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "seek")
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if !math.IsNaN(h.duration) && seconds > h.duration {
		seconds = h.duration
	}
	h.current = seconds
}

func (h *HeadlessElement) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *HeadlessElement) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *HeadlessElement) AttachSink(sink SampleSink) error {
	h.mu.Lock()
	err := h.graphErr
	h.mu.Unlock()
	if err != nil {
		return err
	}
	if sink == nil {
		return ErrGraphUnavailable
	}
	h.sinks.add(sink)
	return nil
}

// Feed pushes frames to attached sinks as if they had been played.
func (h *HeadlessElement) Feed(samples [][2]float64) {
	h.sinks.write(samples)
}

// Advance moves a playing element forward by dt, emitting timeupdate and,
// once a known duration is reached, ended.
func (h *HeadlessElement) Advance(dt time.Duration) {
	h.mu.Lock()
	if h.paused || h.src == "" {
		h.mu.Unlock()
		return
	}
	h.current += dt.Seconds()
	ended := false
	if !math.IsNaN(h.duration) && h.current >= h.duration {
		h.current = h.duration
		h.paused = true
		ended = true
	}
	ev := Event{Type: EventTimeUpdate, Source: h.src, CurrentTime: h.current, Duration: h.duration}
	h.mu.Unlock()

	h.emit(ev)
	if ended {
		ev.Type = EventEnded
		h.emit(ev)
	}
}

// Finish ends the current source immediately.
func (h *HeadlessElement) Finish() {
	h.mu.Lock()
	if h.src == "" {
		h.mu.Unlock()
		return
	}
	if !math.IsNaN(h.duration) {
		h.current = h.duration
	}
	h.paused = true
	ev := Event{Type: EventEnded, Source: h.src, CurrentTime: h.current, Duration: h.duration}
	h.mu.Unlock()

	h.emit(ev)
}

// RunClock advances the element in real time until ctx is done.
func (h *HeadlessElement) RunClock(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Advance(interval)
		}
	}
}

func (h *HeadlessElement) Close() error {
	h.Pause()
	return nil
}
