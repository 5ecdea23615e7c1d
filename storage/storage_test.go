package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"VoidFM/config"
)

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KB",
		1536:    "1.5 KB",
		5 << 20: "5.0 MB",
		3 << 30: "3.0 GB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestInferKind(t *testing.T) {
	cases := map[string]string{
		"rituals/zehir.MP3":  "audio",
		"rituals/zehir.flac": "audio",
		"covers/zehir.webp":  "image",
		"lyrics/zehir.lrc":   "lyrics",
		"README":             "other",
	}
	for in, want := range cases {
		if got := InferKind(in); got != want {
			t.Errorf("InferKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	newest := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	stats := Summarize([]ObjectInfo{
		{Key: "a.mp3", Size: 10, LastModified: newest.Add(-time.Hour)},
		{Key: "b.png", Size: 5, LastModified: newest},
		{Key: "c.mp3", Size: 1},
	})
	if stats.TotalObjects != 3 || stats.TotalSize != 16 || !stats.LastModified.Equal(newest) {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.ByKind["audio"] != 2 || stats.ByKind["image"] != 1 {
		t.Fatalf("by kind = %v", stats.ByKind)
	}
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	PrintTree(&buf, "", []ObjectInfo{
		{Key: "top.mp3", Size: 1},
		{Key: "rituals/zehir.mp3", Size: 2048},
		{Key: "rituals/covers/zehir.png", Size: 3},
	})
	out := buf.String()
	for _, want := range []string{"📄 top.mp3", "📁 rituals/", "📄 zehir.mp3 (2.0 KB)", "📁 rituals/covers/", "📄 zehir.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "rituals/\n") > strings.Index(out, "rituals/covers/") {
		t.Errorf("parent should print before child:\n%s", out)
	}
}

func TestNewMinioStoreDisabled(t *testing.T) {
	if _, err := NewMinioStore(&config.Config{}); err != ErrNotConfigured {
		t.Fatalf("err = %v", err)
	}
}

func TestNewMinioStore(t *testing.T) {
	s, err := NewMinioStore(&config.Config{MinioEndpoint: "localhost:9000", MinioBucket: "voidfm"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Bucket() != "voidfm" {
		t.Fatalf("bucket = %q", s.Bucket())
	}
}
