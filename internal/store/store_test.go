package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore opens a fresh store backed by a temporary database file.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gallery.db")
	s, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

// testImage returns image artifact metadata with a unique-ish id.
func testImage(id string, createdAt time.Time) Artifact {
	return Artifact{
		ID:          id,
		Prompt:      "a lighthouse in a storm",
		Type:        TypeImage,
		AspectRatio: "1:1",
		CreatedAt:   createdAt,
	}
}

func TestNewCreatesSchema(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	// A fresh store lists empty, not error.
	artifacts, err := s.GetAllImages(context.Background())
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("fresh store has %d artifacts, want 0", len(artifacts))
	}

	folders, err := s.ListFolders(context.Background())
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if len(folders) != 0 {
		t.Errorf("fresh store has %d folders, want 0", len(folders))
	}
}

func TestNewFailsForBadPath(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "/nonexistent-dir/sub/gallery.db")
	if err == nil {
		t.Fatal("New() should fail when the parent directory does not exist")
	}
}

func TestUsageReflectsWrites(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	before := s.Usage()

	blob := make([]byte, 64*1024)
	if err := s.SaveImage(ctx, testImage("usage-1", time.Now()), blob, blob[:1024]); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	after := s.Usage()
	if after.Used <= before.Used {
		t.Errorf("Used did not grow after a 64KiB write: before=%d after=%d", before.Used, after.Used)
	}
	if after.Quota < after.Used {
		t.Errorf("Quota (%d) should be at least Used (%d)", after.Quota, after.Used)
	}
}

func TestThumbAndFullKeys(t *testing.T) {
	t.Parallel()

	if got := ThumbKey("abc"); got != "abc-thumb" {
		t.Errorf("ThumbKey() = %q, want abc-thumb", got)
	}
	if got := FullKey("abc"); got != "abc-full" {
		t.Errorf("FullKey() = %q, want abc-full", got)
	}
}
