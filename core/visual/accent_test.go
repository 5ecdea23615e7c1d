package visual

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"VoidFM/model"
)

type stubOpener struct {
	data  []byte
	err   error
	calls int
}

func (s *stubOpener) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func coverPNG(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	alt := color.RGBA{R: c.R + 5, G: c.G - 10, B: c.B - 10, A: 255}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%4 == 0 {
				img.Set(x, y, alt)
			} else {
				img.Set(x, y, c)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var defaultOverrides = map[string]string{
	"zehir":     "#87e8a8",
	"hatalarım": "#ccad73",
	"hatalarim": "#ccad73",
}

func TestResolveOverrideWins(t *testing.T) {
	r := NewResolver(defaultOverrides, nil)
	ritual := &model.Ritual{Title: "ZEHİR / Zehir (live)", Palette: model.Palette{PrimaryColor: "#ffffff"}}
	if got := r.Resolve(context.Background(), ritual); got.Hex() != "#87e8a8" {
		t.Errorf("got %s", got.Hex())
	}
	if got := r.Resolve(context.Background(), &model.Ritual{Title: "Hatalarim"}); got.Hex() != "#ccad73" {
		t.Errorf("got %s", got.Hex())
	}
}

func TestResolvePaletteOrder(t *testing.T) {
	r := NewResolver(nil, nil)
	ctx := context.Background()

	ritual := &model.Ritual{Title: "x", Palette: model.Palette{
		SecondaryColor:   "#00ff00",
		DarkVibrantColor: "#ff0000",
		MutedColor:       "#0000ff",
	}}
	if got := r.Resolve(ctx, ritual); got != (RGB{255, 0, 0}) {
		t.Errorf("darkVibrant should beat secondary, got %v", got)
	}

	ritual.Palette.DarkVibrantColor = ""
	if got := r.Resolve(ctx, ritual); got != (RGB{0, 255, 0}) {
		t.Errorf("secondary should beat muted, got %v", got)
	}

	ritual.Palette.PrimaryColor = "not a color"
	if got := r.Resolve(ctx, ritual); got != (RGB{0, 255, 0}) {
		t.Errorf("unparsable candidates are skipped, got %v", got)
	}
}

func TestResolveBrightensSwatch(t *testing.T) {
	r := NewResolver(nil, nil)
	got := r.Resolve(context.Background(), &model.Ritual{Palette: model.Palette{PrimaryColor: "#640000"}})
	if got != (RGB{255, 0, 0}) {
		t.Errorf("got %v", got)
	}
}

func TestResolveFallback(t *testing.T) {
	r := NewResolver(nil, nil)
	if got := r.Resolve(context.Background(), nil); got != Crimson {
		t.Errorf("nil ritual: got %v", got)
	}
	if got := r.Resolve(context.Background(), &model.Ritual{Title: "bare", CoverImage: "cover.png"}); got != Crimson {
		t.Errorf("no opener: got %v", got)
	}
}

func TestResolveCoverDerivation(t *testing.T) {
	op := &stubOpener{data: coverPNG(t, color.RGBA{R: 20, G: 200, B: 230, A: 255})}
	r := NewResolver(nil, op)
	ritual := &model.Ritual{Title: "cover only", CoverImage: "https://cdn.example/cover.png"}

	got := r.Resolve(context.Background(), ritual)
	if got.B <= 200 || got.R >= 60 {
		t.Errorf("expected cyan-ish cover accent, got %v", got)
	}
	r.Resolve(context.Background(), ritual)
	if op.calls != 1 {
		t.Errorf("cover should be derived once, opened %d times", op.calls)
	}
}

func TestResolveCoverFailureIsCached(t *testing.T) {
	op := &stubOpener{err: errors.New("offline")}
	r := NewResolver(nil, op)
	ritual := &model.Ritual{CoverImage: "minio://covers/a.jpg"}
	for i := 0; i < 3; i++ {
		if got := r.Resolve(context.Background(), ritual); got != Crimson {
			t.Fatalf("got %v", got)
		}
	}
	if op.calls != 1 {
		t.Errorf("failed derivation retried %d times", op.calls)
	}
}
