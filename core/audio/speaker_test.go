package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

const testRate = beep.SampleRate(1000)

// fakeOutput is a mixer that only streams when drain is called.
type fakeOutput struct {
	mu     sync.Mutex
	queued []beep.Streamer
}

func (f *fakeOutput) Lock()   { f.mu.Lock() }
func (f *fakeOutput) Unlock() { f.mu.Unlock() }

func (f *fakeOutput) Play(s beep.Streamer) {
	f.mu.Lock()
	f.queued = append(f.queued, s)
	f.mu.Unlock()
}

func (f *fakeOutput) Clear() {
	f.mu.Lock()
	f.queued = nil
	f.mu.Unlock()
}

// drain streams everything queued until it ends, like the device would.
func (f *fakeOutput) drain() {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([][2]float64, 256)
	for _, s := range f.queued {
		for i := 0; i < 10000; i++ {
			if _, ok := s.Stream(buf); !ok {
				break
			}
		}
	}
	f.queued = nil
}

func (f *fakeOutput) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

// silence is a decoded stream of n silent frames.
type silence struct {
	pos, n int
}

func (s *silence) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := len(samples)
	if rest := s.n - s.pos; k > rest {
		k = rest
	}
	clear(samples[:k])
	s.pos += k
	return k, true
}

func (s *silence) Err() error    { return nil }
func (s *silence) Len() int      { return s.n }
func (s *silence) Position() int { return s.pos }
func (s *silence) Close() error  { return nil }

func (s *silence) Seek(p int) error {
	if p < 0 || p > s.n {
		return fmt.Errorf("seek %d out of range", p)
	}
	s.pos = p
	return nil
}

// rawRegistry decodes ".raw" sources as one silent frame per byte.
func rawRegistry() *DecoderRegistry {
	r := NewDecoderRegistry()
	r.Register(func(rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
		n, err := rc.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, beep.Format{}, err
		}
		return &silence{n: int(n)}, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}, nil
	}, "raw")
	return r
}

// gatedOpener serves in-memory sources; with a gate set, Open waits for it.
type gatedOpener struct {
	mu    sync.Mutex
	data  map[string][]byte
	gate  chan struct{}
	opens int
}

func (o *gatedOpener) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	o.mu.Lock()
	o.opens++
	gate := o.gate
	data, ok := o.data[locator]
	o.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("not found: %s", locator)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (o *gatedOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// eventLog collects events from any goroutine.
type eventLog struct {
	ch chan Event
}

func newEventLog(el Element) *eventLog {
	l := &eventLog{ch: make(chan Event, 64)}
	el.Subscribe(func(ev Event) {
		select {
		case l.ch <- ev:
		default:
		}
	})
	return l
}

func (l *eventLog) wait(t *testing.T, typ EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %v event", typ)
			return Event{}
		}
	}
}

func newTestSpeaker(opener SourceOpener) (*SpeakerElement, *fakeOutput) {
	out := &fakeOutput{}
	return newSpeakerElement(out, opener, rawRegistry(), testRate), out
}

func TestSpeakerPendingSeekAppliedOnLoad(t *testing.T) {
	opener := &gatedOpener{data: map[string][]byte{"a.raw": make([]byte, 3000)}}
	e, _ := newTestSpeaker(opener)
	defer e.Close()
	events := newEventLog(e)

	e.SetSource("a.raw")
	e.Seek(1.5)
	if got := e.CurrentTime(); got != 1.5 {
		t.Fatalf("pending current = %v", got)
	}
	if !math.IsNaN(e.Duration()) {
		t.Fatal("duration should be unknown before load")
	}

	if err := e.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	meta := events.wait(t, EventLoadedMetadata)
	if meta.CurrentTime != 1.5 || meta.Duration != 3 {
		t.Errorf("metadata = %+v, want time 1.5 of 3", meta)
	}
	if e.Paused() {
		t.Error("element should be playing")
	}
}

func TestSpeakerEndedAndReplayFromBuffer(t *testing.T) {
	opener := &gatedOpener{data: map[string][]byte{"a.raw": make([]byte, 500)}}
	e, out := newTestSpeaker(opener)
	defer e.Close()
	events := newEventLog(e)

	e.SetSource("a.raw")
	if err := e.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	out.drain()

	ended := events.wait(t, EventEnded)
	if ended.Source != "a.raw" || ended.CurrentTime != 0.5 {
		t.Errorf("ended = %+v", ended)
	}
	if !e.Paused() {
		t.Error("element should pause at the end")
	}

	// replay decodes the buffered bytes again
	if err := e.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := opener.openCount(); n != 1 {
		t.Errorf("opens = %d, want 1", n)
	}
	if out.size() != 1 {
		t.Errorf("queued = %d, want the replayed stream", out.size())
	}
}

func TestSpeakerStaleStreamDoesNotEnd(t *testing.T) {
	opener := &gatedOpener{data: map[string][]byte{
		"a.raw": make([]byte, 500),
		"b.raw": make([]byte, 500),
	}}
	e, out := newTestSpeaker(opener)
	defer e.Close()

	e.SetSource("a.raw")
	if err := e.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.mu.Lock()
	stale := e.gen
	e.mu.Unlock()

	e.SetSource("b.raw")
	if err := e.Play(context.Background()); err != nil {
		t.Fatal(err)
	}
	events := newEventLog(e)

	// a callback from the dropped stream arrives late
	e.finished(stale)
	if e.Paused() {
		t.Fatal("stale end paused the new source")
	}
	select {
	case ev := <-events.ch:
		if ev.Type == EventEnded {
			t.Fatalf("unexpected %+v", ev)
		}
	default:
	}
	if out.size() != 1 {
		t.Errorf("queued = %d", out.size())
	}
}

func TestSpeakerPauseDuringLoadAborts(t *testing.T) {
	opener := &gatedOpener{
		data: map[string][]byte{"a.raw": make([]byte, 500)},
		gate: make(chan struct{}),
	}
	e, _ := newTestSpeaker(opener)
	defer e.Close()

	e.SetSource("a.raw")
	done := make(chan error, 1)
	go func() { done <- e.Play(context.Background()) }()

	// Pause must not wait for the fetch
	for opener.openCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	paused := make(chan struct{})
	go func() {
		e.Pause()
		close(paused)
	}()
	select {
	case <-paused:
	case <-time.After(time.Second):
		t.Fatal("Pause blocked on the load")
	}

	close(opener.gate)
	if err := <-done; !errors.Is(err, ErrAborted) {
		t.Fatalf("Play = %v, want ErrAborted", err)
	}
	if !e.Paused() {
		t.Error("aborted play must stay paused")
	}
}

func TestSpeakerLoadFailureEmitsError(t *testing.T) {
	e, _ := newTestSpeaker(&gatedOpener{})
	defer e.Close()
	events := newEventLog(e)

	e.SetSource("missing.raw")
	if err := e.Play(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if ev := events.wait(t, EventError); ev.Source != "missing.raw" {
		t.Errorf("error event = %+v", ev)
	}
}
