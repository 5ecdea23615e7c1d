package player

import (
	"VoidFM/core/analysis"
	"VoidFM/core/lyrics"
	"VoidFM/model"
)

// Snapshot is what the presentation shells render.
type Snapshot struct {
	Seq              uint64           `json:"seq"`
	State            State            `json:"state"`
	Mounted          bool             `json:"isMounted"`
	TrackCount       int              `json:"trackCount"`
	Index            int              `json:"currentTrackIndex"`
	Track            *model.Ritual    `json:"currentTrack"`
	Playing          bool             `json:"isPlaying"`
	CurrentTime      float64          `json:"currentTime"`
	Duration         float64          `json:"duration"`
	Elapsed          string           `json:"elapsed"`
	Total            string           `json:"total"`
	Samples          []float64        `json:"samples"`
	Mode             analysis.Mode    `json:"visualizerMode"`
	ActiveLyric      *model.LyricLine `json:"activeLyric"`
	ActiveLyricIndex int              `json:"activeLyricIndex"`
}

// Snapshot returns the current state.
func (p *Player) Snapshot() Snapshot {
	samples := p.pipeline.Last()
	mode := p.pipeline.Mode()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(samples, mode)
}

func (p *Player) snapshotLocked(samples []float64, mode analysis.Mode) Snapshot {
	s := Snapshot{
		Seq:              p.seq,
		Mounted:          p.mounted,
		TrackCount:       len(p.tracks),
		Index:            p.index,
		Playing:          p.playing,
		CurrentTime:      p.currentTime,
		Duration:         p.duration,
		Elapsed:          lyrics.FormatClock(p.currentTime),
		Total:            lyrics.FormatClock(p.duration),
		Samples:          samples,
		Mode:             mode,
		ActiveLyricIndex: -1,
	}

	track, ok := p.currentLocked()
	switch {
	case !ok:
		s.State = StateEmpty
		s.Index = -1
		return s
	case p.playing:
		s.State = StatePlaying
	default:
		s.State = StateIdle
	}
	s.Track = &track
	if idx := lyrics.ActiveIndex(track.SyncedLyrics, p.currentTime); idx >= 0 {
		line := track.SyncedLyrics[idx]
		s.ActiveLyric = &line
		s.ActiveLyricIndex = idx
	}
	return s
}

// Subscribe returns a channel of snapshots. Slow readers only see the
// latest one. The channel is closed by cancel or Close.
func (p *Player) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subs[id]; ok {
			close(c)
			delete(p.subs, id)
		}
	}
	return ch, cancel
}

func (p *Player) publish() {
	samples := p.pipeline.Last()
	mode := p.pipeline.Mode()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	if len(p.subs) == 0 {
		return
	}
	snap := p.snapshotLocked(samples, mode)
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			// 丢弃旧帧
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
