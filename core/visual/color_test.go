package visual

import "testing"

func TestBrightenLeavesBrightColors(t *testing.T) {
	for _, c := range []RGB{{200, 10, 10}, {255, 255, 255}, Crimson, {12, 230, 90}} {
		if got := Brighten(c); got != c {
			t.Errorf("Brighten(%v) = %v, want unchanged", c, got)
		}
		if got := Brighten(Brighten(c)); got != c {
			t.Errorf("Brighten not idempotent for %v", c)
		}
	}
}

func TestBrightenScalesDimColors(t *testing.T) {
	tests := []struct {
		in, want RGB
	}{
		{RGB{10, 10, 10}, RGB{255, 255, 255}},
		{RGB{100, 50, 0}, RGB{255, 127, 0}},
		{RGB{0, 0, 1}, RGB{0, 0, 255}},
		{RGB{0, 0, 0}, Crimson},
		{RGB{20, 10, 5}, RGB{255, 127, 63}},
	}
	for _, tt := range tests {
		if got := Brighten(tt.in); got != tt.want {
			t.Errorf("Brighten(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBrightenRatios(t *testing.T) {
	got := Brighten(RGB{10, 10, 10})
	if got.max() != 255 || got.R != got.G || got.G != got.B {
		t.Errorf("Brighten(10,10,10) = %v", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want RGB
		ok   bool
	}{
		{"#87e8a8", RGB{0x87, 0xe8, 0xa8}, true},
		{"#CCAD73", RGB{0xcc, 0xad, 0x73}, true},
		{"#fff", RGB{255, 255, 255}, true},
		{" rgb(12, 34, 56) ", RGB{12, 34, 56}, true},
		{"rgba(1,2,3,0.5)", RGB{1, 2, 3}, true},
		{"#12345", RGB{}, false},
		{"#gggggg", RGB{}, false},
		{"rgb(300,0,0)", RGB{}, false},
		{"crimson", RGB{}, false},
		{"", RGB{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseColor(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHex(t *testing.T) {
	if got := (RGB{220, 20, 60}).Hex(); got != "#dc143c" {
		t.Errorf("got %s", got)
	}
}
