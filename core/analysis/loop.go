package analysis

import (
	"sync"
	"time"
)

// Loop is a start/stop-able periodic task standing in for per-frame
// callbacks. Stop returns only after the running callback has finished,
// so fn must not call Stop itself.
type Loop struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewLoop creates a loop firing fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{interval: time.Second / time.Duration(fps)}
}

// Start runs fn every frame until Stop. Starting a running loop is a no-op.
func (l *Loop) Start(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop != nil
}
