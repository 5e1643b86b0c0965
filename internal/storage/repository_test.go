package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"dreams/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "dreams.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func payload(name, date string, emotions ...string) core.DreamPayload {
	return core.DreamPayload{Name: name, DreamDate: &date, Emotions: emotions}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	sleep := 7.5
	p := payload("Flying", "2024-02-10", "joy", "awe")
	p.Description = "over the sea"
	p.Lucidity = true
	p.SleepDuration = &sleep

	created, err := repo.CreateDream(ctx, p)
	if err != nil {
		t.Fatalf("CreateDream: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an id")
	}

	got, err := repo.GetDream(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDream: %v", err)
	}
	if got.Name != "Flying" || got.Description != "over the sea" || !got.Lucidity || got.Recurring {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.SleepDuration == nil || *got.SleepDuration != 7.5 || got.RoomTemp != nil {
		t.Fatalf("numbers = %v %v", got.SleepDuration, got.RoomTemp)
	}
	if len(got.Emotions) != 2 || got.Emotions[0] != "joy" || got.Emotions[1] != "awe" {
		t.Fatalf("emotions must keep authored order, got %v", got.Emotions)
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetDream(context.Background(), 404)
	if !core.IsNotFound(err) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestRepositoryListMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, d := range []string{"2024-01-31", "2024-02-01", "2024-02-29", "2024-03-01", "2023-02-10"} {
		if _, err := repo.CreateDream(ctx, payload("d "+d, d)); err != nil {
			t.Fatalf("create %s: %v", d, err)
		}
	}

	feb, err := repo.ListMonth(ctx, 2024, 2)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(feb) != 2 {
		t.Fatalf("february 2024 has %d dreams, want 2", len(feb))
	}
	if *feb[0].DreamDate != "2024-02-01" || *feb[1].DreamDate != "2024-02-29" {
		t.Fatalf("unexpected dates %s %s", *feb[0].DreamDate, *feb[1].DreamDate)
	}

	dec, err := repo.ListMonth(ctx, 2024, 12)
	if err != nil || len(dec) != 0 {
		t.Fatalf("december = %v, %v", dec, err)
	}
	if dec == nil {
		t.Fatal("empty month should be an empty list")
	}

	if _, err := repo.ListMonth(ctx, 2024, 0); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("month 0: got %v", err)
	}
}

func TestRepositoryUpdateReplacesEmotions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, _ := repo.CreateDream(ctx, payload("old", "2024-05-01", "fear", "anger"))
	updated, err := repo.UpdateDream(ctx, created.ID, payload("new", "2024-05-02", "calm"))
	if err != nil {
		t.Fatalf("UpdateDream: %v", err)
	}
	if updated.Name != "new" || *updated.DreamDate != "2024-05-02" {
		t.Fatalf("update = %+v", updated)
	}

	got, _ := repo.GetDream(ctx, created.ID)
	if len(got.Emotions) != 1 || got.Emotions[0] != "calm" {
		t.Fatalf("emotions after update = %v", got.Emotions)
	}
	fear, _ := repo.ListByEmotion(ctx, "fear")
	if len(fear) != 0 {
		t.Fatalf("old emotions still indexed: %+v", fear)
	}

	_, err = repo.UpdateDream(ctx, 999, payload("x", "2024-05-02"))
	if !core.IsNotFound(err) {
		t.Fatalf("update missing: got %v", err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, _ := repo.CreateDream(ctx, payload("gone", "2024-05-01", "fear"))
	deleted, err := repo.DeleteDream(ctx, created.ID)
	if err != nil {
		t.Fatalf("DeleteDream: %v", err)
	}
	if deleted.Name != "gone" || len(deleted.Emotions) != 1 {
		t.Fatalf("deleted = %+v", deleted)
	}
	if _, err := repo.GetDream(ctx, created.ID); !core.IsNotFound(err) {
		t.Fatalf("get after delete: %v", err)
	}

	var orphans int
	if err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM emotions").Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Fatalf("%d emotions left after delete", orphans)
	}

	if _, err := repo.DeleteDream(ctx, created.ID); !core.IsNotFound(err) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRepositoryListByEmotion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i, emotions := range [][]string{{"joy"}, {"Joy"}, {"fear", "joy"}, {}} {
		if _, err := repo.CreateDream(ctx, payload(fmt.Sprintf("d%d", i), fmt.Sprintf("2024-0%d-01", i+1), emotions...)); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.ListByEmotion(ctx, "joy")
	if err != nil {
		t.Fatalf("ListByEmotion: %v", err)
	}
	if len(got) != 2 || got[0].Name != "d0" || got[1].Name != "d2" {
		t.Fatalf("by emotion = %+v", got)
	}
	if len(got[1].Emotions) != 2 {
		t.Fatalf("listed record should carry all its emotions: %v", got[1].Emotions)
	}
}

func TestRepositoryNormalizesDate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	created, err := repo.CreateDream(ctx, payload("ts", "2024-07-04T22:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if *created.DreamDate != "2024-07-04" {
		t.Fatalf("date = %s", *created.DreamDate)
	}
	july, _ := repo.ListMonth(ctx, 2024, 7)
	if len(july) != 1 {
		t.Fatalf("normalized date not found in its month")
	}
}

func TestMigrationsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dreams.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	repo.Close()

	// reopening runs migrations again without error
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	repo.Close()

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("schema version = %d dirty=%v", version, dirty)
	}
}
