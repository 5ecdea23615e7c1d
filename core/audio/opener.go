package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ObjectStore opens objects by key, e.g. a minio bucket.
type ObjectStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Opener resolves audio and cover locators: http(s) URLs, minio://key
// objects and local paths (optionally file://).
type Opener struct {
	Client  *http.Client
	Store   ObjectStore
	BaseDir string
}

// NewOpener creates an Opener. store may be nil.
func NewOpener(store ObjectStore, baseDir string) *Opener {
	return &Opener{
		Client:  &http.Client{Timeout: 60 * time.Second},
		Store:   store,
		BaseDir: baseDir,
	}
}

// Open returns a reader for the locator.
func (o *Opener) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	switch {
	case locator == "":
		return nil, ErrNoSource
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return o.openHTTP(ctx, locator)
	case strings.HasPrefix(locator, "minio://"):
		if o.Store == nil {
			return nil, errors.New("object storage not configured")
		}
		return o.Store.Open(ctx, strings.TrimPrefix(locator, "minio://"))
	default:
		path := strings.TrimPrefix(locator, "file://")
		if !filepath.IsAbs(path) && o.BaseDir != "" {
			path = filepath.Join(o.BaseDir, path)
		}
		return os.Open(path)
	}
}

func (o *Opener) openHTTP(ctx context.Context, locator string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", locator, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s returned status %d", locator, resp.StatusCode)
	}
	return resp.Body, nil
}
