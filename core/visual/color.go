// Package visual turns sampled analysis data and an accent color into the
// radial four-lobe visualizer frame.
package visual

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// 亮度阈值
const (
	brightThreshold = 200
	nearBlack       = 50
)

// RGB is an opaque 8-bit accent color.
type RGB struct {
	R, G, B uint8
}

// Crimson is the accent used when nothing else resolves or the resolved
// color stays near-black.
var Crimson = RGB{R: 220, G: 20, B: 60}

// Hex renders the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NRGBA returns the color with the given alpha in [0,1].
func (c RGB) NRGBA(alpha float64) color.NRGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * 255))}
}

func (c RGB) max() uint8 {
	m := c.R
	if c.G > m {
		m = c.G
	}
	if c.B > m {
		m = c.B
	}
	return m
}

// Brighten scales a dim color so its brightest channel reaches 255, keeping
// channel ratios. Colors whose brightest channel is already >= 200 are
// returned unchanged. A result that is still near-black on every channel is
// replaced by Crimson.
func Brighten(c RGB) RGB {
	m := c.max()
	if m < brightThreshold && m > 0 {
		c = RGB{R: scale(c.R, m), G: scale(c.G, m), B: scale(c.B, m)}
	}
	if c.R < nearBlack && c.G < nearBlack && c.B < nearBlack {
		return Crimson
	}
	return c
}

// scale multiplies v by 255/peak, floored and clamped.
func scale(v, peak uint8) uint8 {
	return uint8(math.Min(255, math.Floor(float64(v)*255/float64(peak))))
}

// ParseColor accepts "#rgb", "#rrggbb" and "rgb(r, g, b)" / "rgba(r, g, b, a)".
func ParseColor(s string) (RGB, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		open := strings.Index(s, "(")
		end := strings.LastIndex(s, ")")
		if open < 0 || end <= open {
			return RGB{}, false
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return RGB{}, false
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil || v < 0 || v > 255 {
				return RGB{}, false
			}
			ch[i] = uint8(v)
		}
		return RGB{R: ch[0], G: ch[1], B: ch[2]}, true
	}
	return RGB{}, false
}

func parseHex(h string) (RGB, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}
