// Package player is the playback state machine: one playlist, one media
// element, one analysis pipeline, and the snapshot stream the shells render.
package player

import (
	"context"
	"errors"
	"math"
	"sync"

	"VoidFM/core/analysis"
	"VoidFM/core/audio"
	"VoidFM/core/lyrics"
	"VoidFM/logger"
	"VoidFM/model"
)

// ErrNoTrack is returned when an operation addresses a track that does
// not exist.
var ErrNoTrack = errors.New("player: no such track")

// State is the coarse transport state.
type State string

const (
	StateEmpty   State = "empty"
	StateIdle    State = "idle"
	StatePlaying State = "playing"
)

// Position is a persisted resume point.
type Position struct {
	Slug string  `json:"slug"`
	Time float64 `json:"time"`
}

// ResumeStore persists the resume point between runs.
type ResumeStore interface {
	SavePosition(ctx context.Context, pos Position) error
	LoadPosition(ctx context.Context) (*Position, error)
}

// Player 播放状态机
//
// opMu serializes transport operations and the element calls they make,
// except Play, which may wait on a network load and runs outside it.
// mu guards the state read by snapshots, events and the frame loop.
// Element calls and loop.Stop never run under mu.
type Player struct {
	el       audio.Element
	pipeline *analysis.Pipeline
	loop     *analysis.Loop
	resume   ResumeStore

	opMu sync.Mutex

	mu          sync.Mutex
	tracks      []model.Ritual
	index       int
	playing     bool
	currentTime float64
	duration    float64
	mounted     bool
	gen         uint64
	seq         uint64
	subs        map[int]chan Snapshot
	nextSub     int

	unsubscribe func()
}

// Option configures a Player.
type Option func(*Player)

// WithResumeStore enables resume point persistence.
func WithResumeStore(s ResumeStore) Option {
	return func(p *Player) { p.resume = s }
}

// New creates a player bound to el for its whole lifetime.
func New(el audio.Element, pipeline *analysis.Pipeline, loop *analysis.Loop, opts ...Option) *Player {
	p := &Player{
		el:       el,
		pipeline: pipeline,
		loop:     loop,
		subs:     make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.unsubscribe = el.Subscribe(p.handleEvent)
	return p
}

// SetPlaylist replaces the playlist. A non-empty playlist selects its first
// track (or the stored resume point) paused; an empty one is a valid
// awaiting state.
func (p *Player) SetPlaylist(ctx context.Context, tracks []model.Ritual) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.loop.Stop()
	p.el.Pause()
	p.pipeline.Reset()

	index, start := 0, 0.0
	if len(tracks) > 0 {
		index, start = p.restorePoint(ctx, tracks)
	}

	p.mu.Lock()
	p.tracks = append([]model.Ritual(nil), tracks...)
	p.index = index
	p.playing = false
	p.currentTime = start
	p.duration = 0
	p.mounted = true
	p.gen++
	p.mu.Unlock()

	if len(tracks) > 0 {
		p.el.SetSource(tracks[index].AudioURL)
		if start > 0 {
			p.el.Seek(start)
		}
	} else {
		p.el.SetSource("")
	}

	logger.Info("Playlist loaded", logger.Int("tracks", len(tracks)), logger.Int("index", index))
	p.publish()
}

func (p *Player) restorePoint(ctx context.Context, tracks []model.Ritual) (int, float64) {
	if p.resume == nil {
		return 0, 0
	}
	pos, err := p.resume.LoadPosition(ctx)
	if err != nil {
		logger.Warn("Failed to load resume point", logger.ErrorField(err))
		return 0, 0
	}
	if pos == nil {
		return 0, 0
	}
	for i, t := range tracks {
		if t.Slug == pos.Slug {
			return i, math.Max(0, pos.Time)
		}
	}
	return 0, 0
}

// SelectTrack plays the track at index from the start.
func (p *Player) SelectTrack(ctx context.Context, index int) error {
	p.opMu.Lock()
	p.mu.Lock()
	n := len(p.tracks)
	p.mu.Unlock()
	if index < 0 || index >= n {
		p.opMu.Unlock()
		return ErrNoTrack
	}
	req, ok := p.switchTo(index)
	p.opMu.Unlock()

	if ok {
		p.awaitPlayback(ctx, req)
	}
	return nil
}

// Next advances with wrap-around and forces playback. No-op when empty.
func (p *Player) Next(ctx context.Context) {
	p.step(ctx, 1)
}

// Previous retreats with wrap-around and forces playback. No-op when empty.
func (p *Player) Previous(ctx context.Context) {
	p.step(ctx, -1)
}

func (p *Player) step(ctx context.Context, delta int) {
	p.opMu.Lock()
	p.mu.Lock()
	n, i := len(p.tracks), p.index
	p.mu.Unlock()
	if n == 0 {
		p.opMu.Unlock()
		return
	}
	req, ok := p.switchTo(((i+delta)%n+n)%n)
	p.opMu.Unlock()

	if ok {
		p.awaitPlayback(ctx, req)
	}
}

// playRequest is a play issued under opMu and awaited after releasing it.
type playRequest struct {
	gen   uint64
	track model.Ritual
}

// switchTo must be called with opMu held.
func (p *Player) switchTo(index int) (playRequest, bool) {
	p.loop.Stop()
	p.pipeline.Reset()

	p.mu.Lock()
	p.index = index
	p.currentTime = 0
	p.duration = 0
	p.playing = true
	p.gen++
	req := playRequest{gen: p.gen, track: p.tracks[index]}
	p.mu.Unlock()

	p.el.SetSource(req.track.AudioURL)
	p.publish()
	return req, p.beginPlayback(req)
}

// TogglePlay flips between playing and paused. No-op without a track.
func (p *Player) TogglePlay(ctx context.Context) {
	p.opMu.Lock()

	p.mu.Lock()
	track, ok := p.currentLocked()
	playing := p.playing
	if ok && !playing {
		p.playing = true
		p.gen++
	}
	req := playRequest{gen: p.gen, track: track}
	p.mu.Unlock()

	if !ok {
		p.opMu.Unlock()
		return
	}

	if playing {
		p.el.Pause()
		p.loop.Stop()
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
		p.saveResume(ctx)
		p.publish()
		p.opMu.Unlock()
		return
	}

	if p.el.Source() != track.AudioURL {
		p.el.SetSource(track.AudioURL)
	}
	p.publish()
	started := p.beginPlayback(req)
	p.opMu.Unlock()

	if started {
		p.awaitPlayback(ctx, req)
	}
}

// beginPlayback lazily sets up the analysis tap and resumes it. A track
// without audio is rolled back at once. Called with opMu held.
func (p *Player) beginPlayback(req playRequest) bool {
	if !req.track.HasAudio() {
		logger.Warn("Track has no audio source", logger.String("slug", req.track.Slug))
		p.rollback(req.gen)
		return false
	}
	if err := p.pipeline.Initialize(p.el); err != nil {
		logger.Debug("Continuing without analyzer", logger.ErrorField(err))
	}
	p.pipeline.Resume()
	return true
}

// awaitPlayback starts the element without holding opMu, so a pause, seek
// or switch can run while the source loads. Only a request that still owns
// the current generation may change state when it returns.
func (p *Player) awaitPlayback(ctx context.Context, req playRequest) {
	err := p.el.Play(ctx)

	p.opMu.Lock()
	defer p.opMu.Unlock()

	if err != nil {
		if errors.Is(err, audio.ErrAborted) {
			logger.Debug("Playback aborted", logger.String("slug", req.track.Slug))
		} else {
			logger.Warn("Playback rejected",
				logger.String("slug", req.track.Slug),
				logger.String("source", req.track.AudioURL),
				logger.ErrorField(err))
		}
		p.rollback(req.gen)
		return
	}

	p.mu.Lock()
	current := p.gen == req.gen
	playing := p.playing
	p.mu.Unlock()

	switch {
	case current && playing:
		p.loop.Start(p.frame)
	case current:
		// 加载期间被暂停
		p.el.Pause()
	}
}

func (p *Player) rollback(gen uint64) {
	p.mu.Lock()
	if p.gen == gen {
		p.playing = false
	}
	p.mu.Unlock()
	p.publish()
}

// Seek jumps to t seconds, clamped to [0, duration] once duration is known.
func (p *Player) Seek(t float64) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	if _, ok := p.currentLocked(); !ok {
		p.mu.Unlock()
		return
	}
	t = clampTime(t, p.duration)
	p.currentTime = t
	p.mu.Unlock()

	p.el.Seek(t)
	p.publish()
}

func clampTime(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}

// SetVisualizerMode switches the sampling mode.
func (p *Player) SetVisualizerMode(m analysis.Mode) error {
	if err := p.pipeline.SetMode(m); err != nil {
		return err
	}
	p.publish()
	return nil
}

func (p *Player) handleEvent(ev audio.Event) {
	switch ev.Type {
	case audio.EventLoadedMetadata, audio.EventTimeUpdate:
		p.mu.Lock()
		track, ok := p.currentLocked()
		if !ok || ev.Source != track.AudioURL {
			p.mu.Unlock()
			return
		}
		if d := ev.Duration; !math.IsNaN(d) && !math.IsInf(d, 0) && d >= 0 {
			p.duration = d
		}
		p.currentTime = clampTime(ev.CurrentTime, p.duration)
		p.mu.Unlock()
		p.publish()

	case audio.EventEnded:
		p.mu.Lock()
		track, ok := p.currentLocked()
		p.mu.Unlock()
		if !ok || ev.Source != track.AudioURL {
			return
		}
		logger.Debug("Track ended, advancing", logger.String("slug", track.Slug))
		p.Next(context.Background())

	case audio.EventError:
		logger.Warn("Media element error", logger.String("source", ev.Source), logger.ErrorField(ev.Err))
	}
}

// frame is the per-frame sampling callback.
func (p *Player) frame() {
	p.pipeline.Sample()
	p.publish()
}

// Close stops sampling, pauses output, persists the resume point and
// releases the element subscription. Subscriber channels are closed.
func (p *Player) Close(ctx context.Context) {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.loop.Stop()
	p.el.Pause()
	p.pipeline.Suspend()
	p.saveResume(ctx)
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}

	p.mu.Lock()
	p.playing = false
	p.mounted = false
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	p.mu.Unlock()
}

func (p *Player) saveResume(ctx context.Context) {
	if p.resume == nil {
		return
	}
	p.mu.Lock()
	track, ok := p.currentLocked()
	pos := Position{Slug: track.Slug, Time: p.currentTime}
	p.mu.Unlock()
	if !ok {
		return
	}
	if err := p.resume.SavePosition(ctx, pos); err != nil {
		logger.Warn("Failed to save resume point", logger.ErrorField(err))
	}
}

func (p *Player) currentLocked() (model.Ritual, bool) {
	if p.index < 0 || p.index >= len(p.tracks) {
		return model.Ritual{}, false
	}
	return p.tracks[p.index], true
}

// Playlist returns a copy of the playlist.
func (p *Player) Playlist() []model.Ritual {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Ritual(nil), p.tracks...)
}

// CurrentTrack returns the current track, nil when there is none.
func (p *Player) CurrentTrack() *model.Ritual {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.currentLocked()
	if !ok {
		return nil
	}
	return &t
}

// ActiveLyric resolves the synced lyric line for the current position.
func (p *Player) ActiveLyric() *model.LyricLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.currentLocked()
	if !ok {
		return nil
	}
	return lyrics.Resolve(t.SyncedLyrics, p.currentTime)
}
