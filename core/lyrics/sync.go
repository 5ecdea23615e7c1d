// Package lyrics resolves the active lyric line for a playback position and
// formats elapsed/total time for display.
package lyrics

import (
	"fmt"
	"math"
	"strings"

	"VoidFM/model"
)

// Resolve returns the last line (by list order) whose time is <= t, or nil
// when t is before the first cue. Lines sharing a timestamp resolve to the
// later one.
func Resolve(lines []model.LyricLine, t float64) *model.LyricLine {
	idx := ActiveIndex(lines, t)
	if idx < 0 {
		return nil
	}
	line := lines[idx]
	return &line
}

// ActiveIndex is Resolve returning the index, -1 when no line qualifies.
// The list is folded in full so unsorted input still yields the last
// qualifying line.
func ActiveIndex(lines []model.LyricLine, t float64) int {
	if math.IsNaN(t) {
		return -1
	}
	idx := -1
	for i, line := range lines {
		if line.Time <= t {
			idx = i
		}
	}
	return idx
}

// IsSorted reports whether the timeline is non-decreasing.
func IsSorted(lines []model.LyricLine) bool {
	for i := 1; i < len(lines); i++ {
		if lines[i].Time < lines[i-1].Time {
			return false
		}
	}
	return true
}

// Tracker remembers the last resolved index so observers can react only
// when the active line changes (e.g. scrolling it into view).
type Tracker struct {
	last int
}

// NewTracker creates a Tracker with no active line.
func NewTracker() *Tracker {
	return &Tracker{last: -1}
}

// Update resolves the active index for t and reports whether it changed.
func (tr *Tracker) Update(lines []model.LyricLine, t float64) (int, bool) {
	idx := ActiveIndex(lines, t)
	changed := idx != tr.last
	tr.last = idx
	return idx, changed
}

// Reset forgets the last active line, used on track change.
func (tr *Tracker) Reset() {
	tr.last = -1
}

// FormatClock renders seconds as zero-padded MM:SS. NaN, Inf and negative
// values render as 00:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// IsTechnical reports whether a ritual text line is a bracketed technical
// annotation (e.g. "[SIGNAL LOST]") rather than verse.
func IsTechnical(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "[")
}
