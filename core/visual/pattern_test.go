package visual

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"unit range untouched", []float64{0, 0.5, 1}, []float64{0, 0.5, 1}},
		{"byte scale", []float64{0, 51, 255}, []float64{0, 0.2, 1}},
		{"large scale", []float64{500, 1000}, []float64{0.5, 1}},
		{"slightly over range", []float64{0.5, 1.0, 1.2}, []float64{0.5 / 1.2, 1 / 1.2, 1}},
		{"bad values", []float64{math.NaN(), -3, 0.25}, []float64{0, 0, 0.25}},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		for i := range tt.want {
			if math.Abs(got[i]-tt.want[i]) > 1e-9 {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}

func TestLobesMirrorAndRepeat(t *testing.T) {
	samples := make([]float64, 48)
	for i := range samples {
		samples[i] = float64(i) / 48
	}
	pattern := Lobes(samples, 24, 4)
	if len(pattern) != 24*2*4 {
		t.Fatalf("len = %d", len(pattern))
	}
	for i := 0; i < 24; i++ {
		if pattern[i] != samples[23-i] {
			t.Fatalf("lobe not reversed at %d", i)
		}
		if pattern[24+i] != samples[i] {
			t.Fatalf("lobe not forward at %d", i)
		}
	}
	for k := 1; k < 4; k++ {
		for i := 0; i < 48; i++ {
			if pattern[k*48+i] != pattern[i] {
				t.Fatalf("lobe %d differs at %d", k, i)
			}
		}
	}
}

func TestLobesShortBuffer(t *testing.T) {
	pattern := Lobes([]float64{1}, 24, 4)
	if len(pattern) != 192 {
		t.Fatalf("len = %d", len(pattern))
	}
	if pattern[23] != 1 || pattern[24] != 1 || pattern[0] != 0 {
		t.Errorf("missing samples should be silence: %v", pattern[:26])
	}
}

func TestLayout(t *testing.T) {
	g := GeometryFor(400)
	bars := Layout([]float64{0, 0.5, 1, 2}, g)
	if len(bars) != 4 {
		t.Fatalf("len = %d", len(bars))
	}
	if want := -3 * math.Pi / 4; math.Abs(bars[0].Angle-want) > 1e-9 {
		t.Errorf("first angle = %v, want %v", bars[0].Angle, want)
	}
	if math.Abs(bars[1].Angle-bars[0].Angle-math.Pi/2) > 1e-9 {
		t.Errorf("step = %v", bars[1].Angle-bars[0].Angle)
	}
	if bars[0].Alpha != 0.1 || bars[0].Highlight {
		t.Errorf("silent bar: %+v", bars[0])
	}
	if bars[0].Outer != g.InnerRadius+g.BaseOffset {
		t.Errorf("silent bar length: %+v", bars[0])
	}
	if !bars[1].Highlight || bars[1].Alpha != 0.5 {
		t.Errorf("mid bar: %+v", bars[1])
	}
	if bars[3].Magnitude != 1 {
		t.Errorf("magnitude not clamped: %+v", bars[3])
	}
	if bars[2].Outer > 200 {
		t.Errorf("full bar leaves canvas: %v", bars[2].Outer)
	}
}
