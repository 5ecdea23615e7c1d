package visual

import "math"

const (
	// LobeWidth is how many leading samples feed one half-lobe.
	LobeWidth = 24
	// LobeCount is the rotational symmetry of the pattern.
	LobeCount = 4

	highlightLevel = 40.0 / 255.0
	minAlpha       = 0.1
)

// Normalize maps a magnitude buffer into [0,1]. Buffers already in range
// pass through; anything larger is divided by its own maximum, so a
// slightly over-range buffer keeps its shape. NaN and negative values
// become 0.
func Normalize(samples []float64) []float64 {
	out := make([]float64, len(samples))
	peak := 0.0
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, -1) || v < 0 {
			v = 0
		}
		if math.IsInf(v, 1) {
			v = math.MaxFloat64
		}
		out[i] = v
		if v > peak {
			peak = v
		}
	}

	if peak <= 1 {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}

// Lobes builds the symmetric angular pattern: the first width samples are
// mirrored (reversed then forward) into one lobe, repeated count times.
// Missing samples are treated as silence.
func Lobes(samples []float64, width, count int) []float64 {
	if width <= 0 || count <= 0 {
		return nil
	}
	norm := Normalize(samples)
	head := make([]float64, width)
	copy(head, norm)

	lobe := make([]float64, 0, width*2)
	for i := width - 1; i >= 0; i-- {
		lobe = append(lobe, head[i])
	}
	lobe = append(lobe, head...)

	pattern := make([]float64, 0, len(lobe)*count)
	for i := 0; i < count; i++ {
		pattern = append(pattern, lobe...)
	}
	return pattern
}

// Geometry fixes the radial dimensions of a frame.
type Geometry struct {
	CenterX, CenterY float64
	InnerRadius      float64
	BaseOffset       float64
	MaxExtra         float64
}

// GeometryFor derives dimensions for a square canvas so the longest bar
// stays inside it.
func GeometryFor(size int) Geometry {
	half := float64(size) / 2
	return Geometry{
		CenterX:     half,
		CenterY:     half,
		InnerRadius: half * 0.5,
		BaseOffset:  math.Max(1, half*0.02),
		MaxExtra:    half * 0.42,
	}
}

// Bar is one radial stroke of the frame.
type Bar struct {
	Angle     float64 // radians
	Magnitude float64 // [0,1]
	Inner     float64
	Outer     float64 // Inner + BaseOffset + Magnitude*MaxExtra
	Alpha     float64
	Highlight bool
}

// Length is the drawn stroke length.
func (b Bar) Length() float64 { return b.Outer - b.Inner }

// Layout places one bar per pattern slot, starting at the upper-left
// diagonal so lobe peaks land on the cardinal directions.
func Layout(pattern []float64, g Geometry) []Bar {
	if len(pattern) == 0 {
		return nil
	}
	step := 2 * math.Pi / float64(len(pattern))
	bars := make([]Bar, len(pattern))
	for i, m := range pattern {
		m = math.Max(0, math.Min(1, m))
		bars[i] = Bar{
			Angle:     float64(i)*step - math.Pi/2 - math.Pi/4,
			Magnitude: m,
			Inner:     g.InnerRadius,
			Outer:     g.InnerRadius + g.BaseOffset + m*g.MaxExtra,
			Alpha:     math.Max(minAlpha, m),
			Highlight: m > highlightLevel,
		}
	}
	return bars
}
