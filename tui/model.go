// Package tui is the terminal presentation shell of the player.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"VoidFM/core/analysis"
	"VoidFM/core/player"
	"VoidFM/core/visual"
	"VoidFM/logger"
	"VoidFM/model"
)

const seekStep = 5.0 // 秒

// AccentFunc resolves the accent color of a ritual.
type AccentFunc func(ctx context.Context, ritual *model.Ritual) visual.RGB

type snapshotMsg player.Snapshot

// commandErrMsg reports a player command that failed off the UI loop.
type commandErrMsg struct{ err error }

// Model is the bubbletea model.
type Model struct {
	ctx       context.Context
	player    *player.Player
	accent    AccentFunc
	snaps     <-chan player.Snapshot
	cancel    func()
	snap      player.Snapshot
	color     lipgloss.Color
	accentFor string // 已解析强调色的曲目 ID
	plCursor  int
	plScroll  int
	plVisible int
	quitting  bool
	notice    string // 最近一次失败的命令
	width     int
	height    int
}

// NewModel subscribes to the player. accent may be nil.
func NewModel(ctx context.Context, p *player.Player, accent AccentFunc) Model {
	snaps, cancel := p.Subscribe()
	m := Model{
		ctx:       ctx,
		player:    p,
		accent:    accent,
		snaps:     snaps,
		cancel:    cancel,
		color:     lipgloss.Color(visual.Crimson.Hex()),
		plVisible: 5,
	}
	m.apply(p.Snapshot())
	return m
}

// Init starts listening for snapshots and requests the terminal size.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitSnapshot(m.snaps), tea.WindowSize())
}

func waitSnapshot(ch <-chan player.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return tea.Quit()
		}
		return snapshotMsg(snap)
	}
}

// Update handles key presses, snapshots and window resizes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.notice = ""
		cmd := m.handleKey(msg)
		if m.quitting {
			m.cancel()
			return m, tea.Quit
		}
		m.apply(m.player.Snapshot())
		return m, cmd

	case commandErrMsg:
		logger.Warn("Player command failed", logger.ErrorField(msg.err))
		m.notice = msg.err.Error()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.apply(player.Snapshot(msg))
		return m, waitSnapshot(m.snaps)
	}
	return m, nil
}

// apply 记录快照，曲目变化时重新解析强调色
func (m *Model) apply(snap player.Snapshot) {
	if snap.Seq < m.snap.Seq {
		return
	}
	if snap.Index != m.snap.Index && snap.Index >= 0 {
		m.plCursor = snap.Index
		m.adjustScroll()
	}
	m.snap = snap
	id := ""
	if snap.Track != nil {
		id = snap.Track.ID
	}
	if id != m.accentFor {
		m.accentFor = id
		c := visual.Crimson
		if m.accent != nil && snap.Track != nil {
			c = m.accent(m.ctx, snap.Track)
		}
		m.color = lipgloss.Color(c.Hex())
	}
}

// handleKey maps a key to a player command. Transport calls may wait on a
// source load, so they run as commands outside Update.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	p := m.player
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
	case " ":
		return m.command(func(ctx context.Context) error {
			p.TogglePlay(ctx)
			return nil
		})
	case "n", "right":
		return m.command(func(ctx context.Context) error {
			p.Next(ctx)
			return nil
		})
	case "p", "left":
		return m.command(func(ctx context.Context) error {
			p.Previous(ctx)
			return nil
		})
	case "f", "]":
		t := m.snap.CurrentTime + seekStep
		return m.command(func(context.Context) error {
			p.Seek(t)
			return nil
		})
	case "b", "[":
		t := m.snap.CurrentTime - seekStep
		return m.command(func(context.Context) error {
			p.Seek(t)
			return nil
		})
	case "v":
		next := analysis.ModeWaveform
		if m.snap.Mode == analysis.ModeWaveform {
			next = analysis.ModeFrequency
		}
		return m.command(func(context.Context) error {
			return p.SetVisualizerMode(next)
		})
	case "up", "k":
		if m.plCursor > 0 {
			m.plCursor--
			m.adjustScroll()
		}
	case "down", "j":
		if m.plCursor < m.snap.TrackCount-1 {
			m.plCursor++
			m.adjustScroll()
		}
	case "enter":
		if m.snap.TrackCount > 0 {
			index := m.plCursor
			return m.command(func(ctx context.Context) error {
				return p.SelectTrack(ctx, index)
			})
		}
	}
	return nil
}

func (m *Model) command(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return commandErrMsg{err: err}
		}
		return nil
	}
}

// adjustScroll ensures plCursor is visible in the playlist view.
func (m *Model) adjustScroll() {
	if m.plCursor < m.plScroll {
		m.plScroll = m.plCursor
	}
	if m.plCursor >= m.plScroll+m.plVisible {
		m.plScroll = m.plCursor - m.plVisible + 1
	}
}

// Run runs the shell until the user quits.
func Run(ctx context.Context, p *player.Player, accent AccentFunc) error {
	_, err := tea.NewProgram(NewModel(ctx, p, accent), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
