package lyrics

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"VoidFM/model"
)

// ParseLRC converts LRC text ("[mm:ss.xx] text") into a sorted lyric
// timeline. Lines without a parsable time tag or without text are skipped.
// A line carrying several time tags produces one entry per tag.
func ParseLRC(raw string) []model.LyricLine {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var result []model.LyricLine
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "[") {
			continue
		}

		var stamps []float64
		rest := trimmed
		for strings.HasPrefix(rest, "[") {
			end := strings.Index(rest, "]")
			if end <= 1 {
				break
			}
			secs, err := parseLRCTime(rest[1:end])
			if err != nil {
				// metadata tag such as [ar:Artist]
				break
			}
			stamps = append(stamps, secs)
			rest = rest[end+1:]
		}

		text := strings.TrimSpace(rest)
		if len(stamps) == 0 || text == "" {
			continue
		}
		for _, s := range stamps {
			result = append(result, model.LyricLine{Time: s, Text: text})
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result
}

func parseLRCTime(raw string) (float64, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	var values []float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %q: %w", p, err)
		}
		values = append(values, v)
	}

	var total float64
	if len(values) == 3 {
		total = values[0]*3600 + values[1]*60 + values[2]
	} else {
		total = values[0]*60 + values[1]
	}
	if total < 0 {
		return 0, errors.New("negative time not allowed")
	}
	return total, nil
}
