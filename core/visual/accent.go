package visual

import (
	"context"
	"errors"
	"image"
	_ "image/jpeg" // cover decoders
	_ "image/png"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/EdlinOrg/prominentcolor"
	_ "golang.org/x/image/webp"

	"VoidFM/logger"
	"VoidFM/model"
)

// Opener fetches the bytes behind a cover locator (URL, minio:// key or path).
type Opener interface {
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
}

type override struct {
	keyword string
	color   RGB
}

// Resolver picks one accent color per ritual: title override, then palette
// swatches in preference order, then the dominant cover color, then Crimson.
type Resolver struct {
	overrides []override
	opener    Opener

	mu     sync.Mutex
	covers map[string]*RGB // nil entry: derivation failed, don't retry
}

// NewResolver builds a Resolver. Unparsable override colors are ignored.
// A nil opener disables cover derivation.
func NewResolver(overrides map[string]string, opener Opener) *Resolver {
	r := &Resolver{opener: opener, covers: make(map[string]*RGB)}
	for k, v := range overrides {
		c, ok := ParseColor(v)
		if !ok || k == "" {
			logger.Warn("Ignoring accent override", logger.String("keyword", k), logger.String("color", v))
			continue
		}
		r.overrides = append(r.overrides, override{keyword: strings.ToLower(k), color: c})
	}
	sort.Slice(r.overrides, func(i, j int) bool {
		if len(r.overrides[i].keyword) != len(r.overrides[j].keyword) {
			return len(r.overrides[i].keyword) > len(r.overrides[j].keyword)
		}
		return r.overrides[i].keyword < r.overrides[j].keyword
	})
	return r
}

// Resolve returns the brightened accent for the ritual. A nil ritual yields
// Crimson.
func (r *Resolver) Resolve(ctx context.Context, ritual *model.Ritual) RGB {
	return Brighten(r.pick(ctx, ritual))
}

func (r *Resolver) pick(ctx context.Context, ritual *model.Ritual) RGB {
	if ritual == nil {
		return Crimson
	}

	title := strings.ToLower(ritual.Title)
	for _, o := range r.overrides {
		if strings.Contains(title, o.keyword) {
			return o.color
		}
	}

	for _, candidate := range ritual.Palette.Candidates() {
		if candidate == "" {
			continue
		}
		if c, ok := ParseColor(candidate); ok {
			return c
		}
	}

	if c, ok := r.coverColor(ctx, ritual.CoverImage); ok {
		return c
	}
	return Crimson
}

func (r *Resolver) coverColor(ctx context.Context, locator string) (RGB, bool) {
	if r.opener == nil || locator == "" {
		return RGB{}, false
	}

	r.mu.Lock()
	cached, seen := r.covers[locator]
	r.mu.Unlock()
	if seen {
		if cached == nil {
			return RGB{}, false
		}
		return *cached, true
	}

	var result *RGB
	if c, err := r.derive(ctx, locator); err != nil {
		logger.Warn("Cover color derivation failed", logger.String("cover", locator), logger.ErrorField(err))
	} else {
		result = &c
	}

	r.mu.Lock()
	r.covers[locator] = result
	r.mu.Unlock()

	if result == nil {
		return RGB{}, false
	}
	return *result, true
}

func (r *Resolver) derive(ctx context.Context, locator string) (RGB, error) {
	rc, err := r.opener.Open(ctx, locator)
	if err != nil {
		return RGB{}, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return RGB{}, err
	}
	return DominantColor(img)
}

// DominantColor reduces the whole image to a single representative color.
func DominantColor(img image.Image) (RGB, error) {
	colors, err := prominentcolor.KmeansWithAll(1, img, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, nil)
	if err != nil {
		return RGB{}, err
	}
	if len(colors) == 0 {
		return RGB{}, errors.New("no color clusters")
	}
	c := colors[0].Color
	return RGB{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B)}, nil
}
