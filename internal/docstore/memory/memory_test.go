package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/curatorhq/curator/internal/docstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	now := time.Now()
	rec := &docstore.FileRecord{
		Path:      "/tmp/a.txt",
		Checksum:  "abc",
		SizeBytes: 5,
		ModTimes:  []time.Time{now},
		Angles:    []float64{0.0},
		Priority:  1.0,
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "/tmp/a.txt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Checksum != "abc" || len(got.ModTimes) != 1 {
		t.Errorf("unexpected record: %+v", got)
	}

	// Mutating the returned record must not affect the stored copy.
	got.Angles[0] = 99
	again, _ := store.Get(ctx, "/tmp/a.txt")
	if again.Angles[0] != 0.0 {
		t.Error("Get should return a deep copy")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	_, err := New().Get(context.Background(), "/nope")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestPutRejectsLengthMismatch(t *testing.T) {
	rec := &docstore.FileRecord{
		Path:     "/tmp/a.txt",
		ModTimes: []time.Time{time.Now()},
		Angles:   []float64{0.1, 0.2},
	}
	if err := New().Put(context.Background(), rec); err == nil {
		t.Fatal("mismatched mod_time/angle lengths should be rejected")
	}
}

func TestFindAndDeleteWhere(t *testing.T) {
	ctx := context.Background()
	store := New()
	now := time.Now()

	for _, spec := range []struct {
		path     string
		priority float64
	}{
		{"/docs/a.txt", 2.0},
		{"/docs/b.txt", 0.5},
		{"/music/c.mp3", 1.0},
	} {
		err := store.Put(ctx, &docstore.FileRecord{
			Path:     spec.path,
			Checksum: "x",
			ModTimes: []time.Time{now},
			Angles:   []float64{0},
			Priority: spec.priority,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	found, err := store.Find(ctx, docstore.Filter{PathPrefix: "/docs/"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0].Path != "/docs/a.txt" {
		t.Errorf("prefix find returned %v", found)
	}

	deleted, err := store.DeleteWhere(ctx, docstore.Filter{MaxPriorityBelow: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 low-priority deletion, got %d", deleted)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("expected 2 remaining, got %d", n)
	}
}
