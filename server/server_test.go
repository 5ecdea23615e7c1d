package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"VoidFM/catalog"
	"VoidFM/config"
	"VoidFM/core/analysis"
	"VoidFM/core/audio"
	"VoidFM/core/player"
	"VoidFM/core/visual"
	"VoidFM/model"

	"github.com/gorilla/websocket"
)

type stubCatalog struct {
	catalog.Empty
	rituals []model.Ritual
}

func (s stubCatalog) Rituals(context.Context) ([]model.Ritual, error) { return s.rituals, nil }

func (s stubCatalog) RitualBySlug(ctx context.Context, slug string) (*model.Ritual, error) {
	for i := range s.rituals {
		if s.rituals[i].Slug == slug {
			return &s.rituals[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

func testRituals() []model.Ritual {
	return []model.Ritual{
		{ID: "1", Title: "Zehir", Slug: "zehir", AudioURL: "zehir.mp3",
			SyncedLyrics: model.LyricLines{{Time: 0, Text: "first"}, {Time: 5, Text: "second"}}},
		{ID: "2", Title: "Ash", Slug: "ash", AudioURL: "ash.mp3", Palette: model.Palette{PrimaryColor: "#4080c0"}},
	}
}

type fixture struct {
	srv    *Server
	el     *audio.HeadlessElement
	player *player.Player
	http   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{BroadcastRate: 50}
	el := audio.NewHeadlessElement()
	p := player.New(el, analysis.NewPipeline(256, 48, analysis.ModeFrequency), analysis.NewLoop(60))
	rituals := testRituals()
	p.SetPlaylist(context.Background(), rituals)

	srv := New(cfg, stubCatalog{rituals: rituals}, p, visual.NewResolver(config.DefaultAccentOverrides(), nil))
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Hub().Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		p.Close(context.Background())
	})
	return &fixture{srv: srv, el: el, player: p, http: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.http.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func decodeView(t *testing.T, body []byte) PlayerView {
	t.Helper()
	var v PlayerView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/rituals", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var rituals []model.Ritual
	if err := json.Unmarshal(body, &rituals); err != nil || len(rituals) != 2 {
		t.Fatalf("rituals = %s (%v)", body, err)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}

	resp, _ = f.do(t, http.MethodGet, "/api/rituals/ash", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("by slug status = %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodGet, "/api/rituals/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing slug status = %d", resp.StatusCode)
	}

	// 未配置的查询回退为空值
	resp, body = f.do(t, http.MethodGet, "/api/lore", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("lore = %d %s", resp.StatusCode, body)
	}
	resp, body = f.do(t, http.MethodGet, "/api/settings", "")
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "{}" {
		t.Fatalf("settings = %d %s", resp.StatusCode, body)
	}
	resp, _ = f.do(t, http.MethodGet, "/api/pages/about", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("page status = %d", resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodOptions, "/api/rituals", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
}

func TestPlayerEndpoints(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/player", "")
	v := decodeView(t, body)
	if v.State != player.StateIdle || v.Index != 0 || v.Playing || v.TrackCount != 2 {
		t.Fatalf("initial = %+v", v.Snapshot)
	}
	if v.Accent != "#87e8a8" {
		t.Fatalf("accent = %q", v.Accent)
	}

	_, body = f.do(t, http.MethodPost, "/api/player/toggle", "")
	if v = decodeView(t, body); !v.Playing {
		t.Fatal("toggle should start playback")
	}

	_, body = f.do(t, http.MethodPost, "/api/player/next", "")
	if v = decodeView(t, body); v.Index != 1 || !v.Playing || v.Accent != "#55aaff" {
		t.Fatalf("after next = %+v accent %q", v.Snapshot, v.Accent)
	}

	_, body = f.do(t, http.MethodPost, "/api/player/previous", "")
	if v = decodeView(t, body); v.Index != 0 {
		t.Fatalf("after previous index = %d", v.Index)
	}

	resp, _ := f.do(t, http.MethodPost, "/api/player/select/7", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("out of range select status = %d", resp.StatusCode)
	}
	_, body = f.do(t, http.MethodPost, "/api/player/select/1", "")
	if v = decodeView(t, body); v.Index != 1 || !v.Playing {
		t.Fatalf("after select = %+v", v.Snapshot)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/player/seek", `{"nope":1}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad seek status = %d", resp.StatusCode)
	}
	resp, _ = f.do(t, http.MethodPost, "/api/player/seek", `{"time":3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seek status = %d", resp.StatusCode)
	}

	resp, _ = f.do(t, http.MethodPost, "/api/player/mode", `{"mode":"spiral"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad mode status = %d", resp.StatusCode)
	}
	_, body = f.do(t, http.MethodPost, "/api/player/mode", `{"mode":"waveform"}`)
	if v = decodeView(t, body); v.Mode != analysis.ModeWaveform {
		t.Fatalf("mode = %q", v.Mode)
	}
}

func TestVisualizerPNG(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/player/visualizer.png?size=10", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != minVisualizerSize {
		t.Fatalf("size = %d, want clamp to %d", b.Dx(), minVisualizerSize)
	}

	resp, _ = f.do(t, http.MethodGet, "/api/player/visualizer.png?size=abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad size status = %d", resp.StatusCode)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn, want MessageType) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s: %v", want, err)
		}
		if msg.Type == want {
			return msg
		}
	}
}

func TestWebSocketIntents(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws/player"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	first := readMessage(t, conn, MsgTypeSnapshot)
	v := decodeView(t, first.Data)
	if v.Index != 0 || v.Playing {
		t.Fatalf("first snapshot = %+v", v.Snapshot)
	}

	if err := conn.WriteJSON(WSMessage{Type: MsgTypeSelect, Data: json.RawMessage(`{"index":1}`)}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		v = decodeView(t, readMessage(t, conn, MsgTypeSnapshot).Data)
		if v.Index == 1 && v.Playing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never saw selected track: %+v", v.Snapshot)
		}
	}

	if err := conn.WriteJSON(WSMessage{Type: "dance"}); err != nil {
		t.Fatal(err)
	}
	readMessage(t, conn, MsgTypeError)

	if err := conn.WriteJSON(WSMessage{Type: MsgTypePing}); err != nil {
		t.Fatal(err)
	}
	readMessage(t, conn, MsgTypePong)

	if f.srv.Hub().ClientCount() != 1 {
		t.Fatalf("clients = %d", f.srv.Hub().ClientCount())
	}
}

func TestWebSocketHubNotRunning(t *testing.T) {
	el := audio.NewHeadlessElement()
	p := player.New(el, analysis.NewPipeline(256, 48, analysis.ModeFrequency), analysis.NewLoop(60))
	defer p.Close(context.Background())
	srv := New(&config.Config{}, catalog.Empty{}, p, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/player", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
