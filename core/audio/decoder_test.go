package audio

import (
	"errors"
	"testing"
)

func TestRegistryFormat(t *testing.T) {
	r := NewDecoderRegistry()
	tests := []struct {
		locator string
		header  []byte
		want    string
		err     bool
	}{
		{"https://cdn.sanity.io/files/p/d/abc.mp3?dl=1", nil, "mp3", false},
		{"minio://audio/zehir.FLAC", nil, "flac", false},
		{"/music/a.ogg", nil, "ogg", false},
		{"https://cdn.example/file", []byte("RIFF....WAVE"), "wav", false},
		{"blob", []byte("ID3\x04"), "mp3", false},
		{"weird.aac", []byte{0, 0, 0}, "", true},
	}
	for _, tt := range tests {
		got, err := r.Format(tt.locator, tt.header)
		if tt.err {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("%s: expected ErrUnsupportedFormat, got %v", tt.locator, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s: got %q, %v want %q", tt.locator, got, err, tt.want)
		}
	}
}

func TestRegistryDecodeGarbage(t *testing.T) {
	r := NewDecoderRegistry()
	if _, _, err := r.Decode("x.wav", []byte("definitely not riff")); err == nil {
		t.Fatal("expected decode error")
	}
}
