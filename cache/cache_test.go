package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"VoidFM/config"
	"VoidFM/core/player"
)

// These tests need a real server: REDIS_TEST_HOST=127.0.0.1 go test ./cache
func connectForTest(t *testing.T) {
	t.Helper()
	host := os.Getenv("REDIS_TEST_HOST")
	if host == "" {
		t.Skip("REDIS_TEST_HOST not set")
	}
	cfg := &config.Config{RedisHost: host, RedisPort: "6379", RedisDB: 15}
	if err := ConnectRedis(cfg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { CloseRedis() })
}

func TestEnabled(t *testing.T) {
	if Enabled(&config.Config{}) {
		t.Fatal("empty host should disable redis")
	}
	if err := ConnectRedis(&config.Config{}); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestNilClientErrors(t *testing.T) {
	ctx := context.Background()
	s := &JSONStore{}
	if _, err := s.GetJSON(ctx, "k", new(int)); err == nil {
		t.Error("expected error")
	}
	r := &ResumeCache{}
	if err := r.SavePosition(ctx, player.Position{Slug: "a"}); err == nil {
		t.Error("expected error")
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	connectForTest(t)
	ctx := context.Background()
	s := NewJSONStore(nil)

	if err := s.SetJSON(ctx, "test:doc", map[string]int{"n": 3}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	ok, err := s.GetJSON(ctx, "test:doc", &got)
	if err != nil || !ok || got["n"] != 3 {
		t.Fatalf("got %v %v %v", got, ok, err)
	}
	if err := s.Delete(ctx, "test:doc"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.GetJSON(ctx, "test:doc", &got); ok {
		t.Fatal("key should be gone")
	}
}

func TestResumeCache(t *testing.T) {
	connectForTest(t)
	ctx := context.Background()
	c := NewResumeCache()
	if err := c.SavePosition(ctx, player.Position{Slug: "zehir", Time: 42.25}); err != nil {
		t.Fatal(err)
	}
	pos, err := c.LoadPosition(ctx)
	if err != nil || pos == nil || pos.Slug != "zehir" || pos.Time != 42.25 {
		t.Fatalf("got %+v, %v", pos, err)
	}
}
