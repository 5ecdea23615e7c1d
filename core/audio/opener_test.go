package audio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memStore map[string]string

func (m memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func readAll(t *testing.T, rc io.ReadCloser, err error) string {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestOpener(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "remote")
	}))
	defer srv.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "local.mp3"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}

	o := NewOpener(memStore{"audio/a.mp3": "object"}, dir)
	ctx := context.Background()

	rc, err := o.Open(ctx, srv.URL+"/a.mp3")
	if got := readAll(t, rc, err); got != "remote" {
		t.Errorf("http: %q", got)
	}
	rc, err = o.Open(ctx, "minio://audio/a.mp3")
	if got := readAll(t, rc, err); got != "object" {
		t.Errorf("minio: %q", got)
	}
	rc, err = o.Open(ctx, "local.mp3")
	if got := readAll(t, rc, err); got != "local" {
		t.Errorf("file: %q", got)
	}

	if _, err := o.Open(ctx, srv.URL+"/missing"); err == nil {
		t.Error("expected status error")
	}
	if _, err := o.Open(ctx, ""); !errors.Is(err, ErrNoSource) {
		t.Errorf("empty locator: %v", err)
	}
	if _, err := NewOpener(nil, "").Open(ctx, "minio://x"); err == nil {
		t.Error("expected error without store")
	}
}
