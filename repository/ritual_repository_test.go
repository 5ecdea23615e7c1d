package repository

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"VoidFM/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	if err := gdb.AutoMigrate(&model.Ritual{}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestRitualRepository(t *testing.T) {
	repo := NewGormRitualRepository(newTestDB(t))
	ctx := context.Background()

	rituals := []model.Ritual{
		{ID: "a", Title: "Zehir", Slug: "zehir", ReleaseDate: "2024-03-01", AudioURL: "https://x/z.mp3",
			RitualText:   model.StringList{"[SIGNAL]", "verse"},
			SyncedLyrics: model.LyricLines{{Time: 0, Text: "one"}, {Time: 3.5, Text: "two"}},
			Palette:      model.Palette{PrimaryColor: "#87e8a8"}},
		{ID: "b", Title: "Hatalarım", Slug: "hatalarim", ReleaseDate: "2024-09-01"},
		{ID: "c", Title: "Old", Slug: "old", ReleaseDate: "2021-01-01"},
	}
	for i := range rituals {
		if err := repo.Upsert(ctx, &rituals[i]); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.Rituals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Slug != "hatalarim" || list[2].Slug != "old" {
		t.Fatalf("order = %v", list)
	}

	z, err := repo.GetBySlug(ctx, "zehir")
	if err != nil || z == nil {
		t.Fatalf("got %v, %v", z, err)
	}
	if len(z.SyncedLyrics) != 2 || z.SyncedLyrics[1].Time != 3.5 || z.RitualText[0] != "[SIGNAL]" || z.PrimaryColor != "#87e8a8" {
		t.Fatalf("json columns not round-tripped: %+v", z)
	}

	missing, err := repo.GetBySlug(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("got %v, %v", missing, err)
	}

	// upsert overwrites
	rituals[0].Title = "Zehir (remaster)"
	if err := repo.Upsert(ctx, &rituals[0]); err != nil {
		t.Fatal(err)
	}
	z, _ = repo.GetBySlug(ctx, "zehir")
	if z.Title != "Zehir (remaster)" {
		t.Fatalf("title = %q", z.Title)
	}

	removed, err := repo.DeleteMissing(ctx, []string{"a", "b"})
	if err != nil || removed != 1 {
		t.Fatalf("removed %d, %v", removed, err)
	}
	if n, _ := repo.Count(ctx); n != 2 {
		t.Fatalf("count = %d", n)
	}
}
