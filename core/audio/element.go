package audio

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoSource is returned by Play when no source has been set.
	ErrNoSource = errors.New("audio: no source set")
	// ErrAborted is returned by Play when a pause or a source change
	// arrives before the source finished loading.
	ErrAborted = errors.New("audio: play aborted")
	// ErrUnsupportedFormat is returned when no decoder matches a source.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
	// ErrGraphUnavailable is returned by AttachSink when the element cannot
	// route its output through an analyzer.
	ErrGraphUnavailable = errors.New("audio: processing graph unavailable")
)

// EventType identifies a media element notification.
type EventType int

const (
	EventLoadedMetadata EventType = iota
	EventTimeUpdate
	EventEnded
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoadedMetadata:
		return "loadedmetadata"
	case EventTimeUpdate:
		return "timeupdate"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is delivered to subscribers. Duration is NaN while unknown.
type Event struct {
	Type        EventType
	Source      string
	CurrentTime float64
	Duration    float64
	Err         error
}

// SampleSink receives a copy of every stereo frame the element outputs.
// Write is called on the audio goroutine and must not block.
type SampleSink interface {
	Write(samples [][2]float64)
}

// Element is the single media element shared by the player. It plays one
// source at a time and reports progress through events.
type Element interface {
	SetSource(src string)
	Source() string
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	Seek(seconds float64)
	CurrentTime() float64
	Duration() float64
	Subscribe(fn func(Event)) (unsubscribe func())
	AttachSink(sink SampleSink) error
	Close() error
}

// emitter fans events out to subscribers. Handlers run outside the lock.
type emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Event)
}

func (e *emitter) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.handlers, id)
			e.mu.Unlock()
		})
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.handlers))
	for _, fn := range e.handlers {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// sinkSet is the fan-out used by both element kinds.
type sinkSet struct {
	mu    sync.Mutex
	sinks []SampleSink
}

func (s *sinkSet) add(sink SampleSink) {
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

func (s *sinkSet) write(samples [][2]float64) {
	if len(samples) == 0 {
		return
	}
	s.mu.Lock()
	for _, sink := range s.sinks {
		sink.Write(samples)
	}
	s.mu.Unlock()
}
