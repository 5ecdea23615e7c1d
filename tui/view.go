package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"VoidFM/core/lyrics"
	"VoidFM/core/player"
)

const (
	panelWidth   = 60 // 66 frame - 2 border - 4 padding
	spectrumRows = 4
	lyricContext = 1 // 当前行上下各显示几行
)

// Unicode block elements for bar height (9 levels including space)
var barBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// View renders the full frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	accent := lipgloss.NewStyle().Foreground(m.color)
	sections := []string{
		titleStyle.Render("V O I D F M"),
		m.renderTrackInfo(accent),
		m.renderTimeStatus(accent),
		"",
		accent.Render(strings.Join(Spectrum(m.snap.Samples, panelWidth, spectrumRows), "\n")),
		SeekBar(m.snap.CurrentTime, m.snap.Duration, panelWidth, accent, dimStyle),
		"",
	}
	sections = append(sections, m.renderLyrics(accent)...)
	sections = append(sections,
		"",
		m.renderPlaylist(accent),
		"",
		m.renderHelp(),
	)
	return frameStyle.Render(strings.Join(sections, "\n"))
}

func (m Model) renderTrackInfo(accent lipgloss.Style) string {
	if m.snap.Track == nil {
		return dimStyle.Render("awaiting transmission...")
	}
	name := m.snap.Track.Title
	if phase := m.snap.Track.EmotionalPhase; phase != "" {
		name += dimStyle.Render("  " + string(phase))
	}
	return accent.Bold(true).Render("◉ ") + name
}

func (m Model) renderHelp() string {
	if m.notice != "" {
		return errorStyle.Render("! " + m.notice)
	}
	return helpStyle.Render("[Spc]⏯ [n/p]Next/Prev [[/]]Seek [↑↓⏎]Pick [v]Mode [q]Quit")
}

func (m Model) renderTimeStatus(accent lipgloss.Style) string {
	status := "■ IDLE"
	switch m.snap.State {
	case player.StatePlaying:
		status = "▶ PLAYING"
	case player.StateEmpty:
		status = "□ EMPTY"
	}
	left := timeStyle.Render(fmt.Sprintf("%s / %s", m.snap.Elapsed, m.snap.Total))
	right := accent.Bold(true).Render(status) + dimStyle.Render("  "+string(m.snap.Mode))
	gap := panelWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderLyrics 同步歌词显示当前行及上下文；否则显示仪式文本
func (m Model) renderLyrics(accent lipgloss.Style) []string {
	track := m.snap.Track
	if track == nil {
		return nil
	}
	if track.HasSyncedLyrics() {
		idx := m.snap.ActiveLyricIndex
		var out []string
		for i := idx - lyricContext; i <= idx+lyricContext; i++ {
			if i < 0 || i >= len(track.SyncedLyrics) {
				out = append(out, "")
				continue
			}
			text := truncate(track.SyncedLyrics[i].Text, panelWidth)
			if i == idx {
				out = append(out, accent.Bold(true).Render(text))
			} else {
				out = append(out, dimStyle.Render(text))
			}
		}
		return out
	}

	var out []string
	for i, line := range track.RitualText {
		if i == 3 {
			out = append(out, dimStyle.Render("…"))
			break
		}
		if lyrics.IsTechnical(line) {
			out = append(out, technicalStyle.Render(truncate(line, panelWidth)))
		} else {
			out = append(out, timeStyle.Render(truncate(line, panelWidth)))
		}
	}
	return out
}

func (m Model) renderPlaylist(accent lipgloss.Style) string {
	tracks := m.player.Playlist()
	if len(tracks) == 0 {
		return dimStyle.Render("no rituals in the catalog")
	}

	var lines []string
	for i := m.plScroll; i < len(tracks) && i < m.plScroll+m.plVisible; i++ {
		prefix := "  "
		if i == m.plCursor {
			prefix = "> "
		}
		line := truncate(fmt.Sprintf("%s%02d. %s", prefix, i+1, tracks[i].Title), panelWidth)
		switch {
		case i == m.snap.Index:
			lines = append(lines, accent.Bold(true).Render(line))
		case i == m.plCursor:
			lines = append(lines, playlistItemStyle.Bold(true).Render(line))
		default:
			lines = append(lines, playlistItemStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// Spectrum renders samples in [0,1] as rows of block characters, top row
// first. Samples are stretched or averaged to fill width columns.
func Spectrum(samples []float64, width, rows int) []string {
	levels := make([]float64, width)
	if len(samples) > 0 {
		for col := 0; col < width; col++ {
			lo := col * len(samples) / width
			hi := (col + 1) * len(samples) / width
			if hi <= lo {
				hi = lo + 1
			}
			sum := 0.0
			for _, v := range samples[lo:hi] {
				if !math.IsNaN(v) {
					sum += v
				}
			}
			levels[col] = clamp01(sum / float64(hi-lo))
		}
	}

	out := make([]string, rows)
	steps := len(barBlocks) - 1
	for row := 0; row < rows; row++ {
		var sb strings.Builder
		base := float64(rows-1-row) / float64(rows)
		for _, level := range levels {
			fill := (level - base) * float64(rows)
			n := int(math.Round(clamp01(fill) * float64(steps)))
			sb.WriteRune(barBlocks[n])
		}
		out[row] = sb.String()
	}
	return out
}

// SeekBar renders progress. An unknown duration renders an empty bar.
func SeekBar(current, duration float64, width int, fill, empty lipgloss.Style) string {
	progress := 0.0
	if duration > 0 && !math.IsInf(duration, 0) {
		progress = clamp01(current / duration)
	}
	filled := int(progress * float64(width))
	return fill.Render(strings.Repeat("━", filled)) + empty.Render(strings.Repeat("─", width-filled))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
