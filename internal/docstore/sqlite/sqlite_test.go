package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/curatorhq/curator/internal/config"
	"github.com/curatorhq/curator/internal/docstore"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "curator.db"), "curator.files")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRejectsBadCollection(t *testing.T) {
	_, err := New(":memory:", "nodot")
	if !errors.Is(err, config.ErrConfigInvalid) {
		t.Fatalf("want ErrConfigInvalid, got %v", err)
	}
}

func TestPutGetUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	t0 := time.Now().UTC().Truncate(time.Second)

	rec := &docstore.FileRecord{
		Path:      "/docs/note.md",
		Checksum:  "deadbeef",
		SizeBytes: 10,
		ModTimes:  []time.Time{t0},
		Angles:    []float64{0.0},
		Directory: "/docs",
		Priority:  1.5,
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("Put should assign an ID")
	}

	got, err := store.Get(ctx, "/docs/note.md")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Checksum != "deadbeef" || got.Priority != 1.5 {
		t.Errorf("unexpected record: %+v", got)
	}
	if len(got.ModTimes) != 1 || !got.ModTimes[0].Equal(t0) {
		t.Errorf("mod times not preserved: %v", got.ModTimes)
	}

	// Upsert by path appends history.
	rec.Checksum = "cafebabe"
	rec.ModTimes = append(rec.ModTimes, t0.Add(time.Minute))
	rec.Angles = append(rec.Angles, 0.7)
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err = store.Get(ctx, "/docs/note.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Checksum != "cafebabe" || len(got.Angles) != 2 || got.Angles[1] != 0.7 {
		t.Errorf("upsert not applied: %+v", got)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("upsert should not grow the table, count=%d", n)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "/missing")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestFindFiltersAndDeleteWhere(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	put := func(path string, priority float64, mod time.Time) {
		t.Helper()
		err := store.Put(ctx, &docstore.FileRecord{
			Path:      path,
			Checksum:  "x",
			ModTimes:  []time.Time{mod},
			Angles:    []float64{0},
			Directory: filepath.Dir(path),
			Priority:  priority,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	put("/docs/old.txt", 0.2, now.Add(-48*time.Hour))
	put("/docs/new.txt", 2.0, now)
	put("/music/song.mp3", 1.0, now)

	byPrefix, err := store.Find(ctx, docstore.Filter{PathPrefix: "/docs/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byPrefix) != 2 {
		t.Errorf("prefix find: got %d records", len(byPrefix))
	}

	stale, err := store.Find(ctx, docstore.Filter{ModifiedBefore: now.Add(-time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].Path != "/docs/old.txt" {
		t.Errorf("stale find: got %+v", stale)
	}

	deleted, err := store.DeleteWhere(ctx, docstore.Filter{MaxPriorityBelow: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deletion, got %d", deleted)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("count after delete = %d, want 2", n)
	}

	deleted, err = store.DeleteWhere(ctx, docstore.Filter{Paths: []string{"/music/song.mp3"}})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("path-set delete removed %d", deleted)
	}
}
