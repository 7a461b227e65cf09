package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestSaveImageRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	full := bytes.Repeat([]byte{0xAB}, 4096)
	thumb := bytes.Repeat([]byte{0xCD}, 512)

	if err := s.SaveImage(ctx, testImage("img-1", time.Now()), full, thumb); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	artifacts, err := s.GetAllImages(ctx)
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("len(artifacts) = %d, want 1", len(artifacts))
	}
	if artifacts[0].ID != "img-1" {
		t.Errorf("artifact id = %q, want img-1", artifacts[0].ID)
	}

	// Blob sizes must equal exactly what was passed in.
	gotFull, err := s.GetFullImageBlob(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetFullImageBlob() error = %v", err)
	}
	if !bytes.Equal(gotFull, full) {
		t.Errorf("full blob mismatch: got %d bytes, want %d", len(gotFull), len(full))
	}

	gotThumb, err := s.GetThumbnailBlob(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetThumbnailBlob() error = %v", err)
	}
	if !bytes.Equal(gotThumb, thumb) {
		t.Errorf("thumbnail blob mismatch: got %d bytes, want %d", len(gotThumb), len(thumb))
	}
}

func TestSaveImageRejectsMissingBlobs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveImage(ctx, testImage("img-1", time.Now()), nil, []byte("thumb")); err == nil {
		t.Error("SaveImage() should reject a missing full blob")
	}
	if err := s.SaveImage(ctx, testImage("img-2", time.Now()), []byte("full"), nil); err == nil {
		t.Error("SaveImage() should reject a missing thumbnail blob")
	}

	// Nothing half-written may be visible.
	artifacts, err := s.GetAllImages(ctx)
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("rejected saves left %d artifacts behind", len(artifacts))
	}
}

func TestSaveImageRejectsUnknownFolder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	meta := testImage("img-1", time.Now())
	missing := "no-such-folder"
	meta.FolderID = &missing

	err := s.SaveImage(ctx, meta, []byte("full"), []byte("thumb"))
	if !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("SaveImage() error = %v, want ErrFolderNotFound", err)
	}

	// The transaction rolled back: no artifact, no orphaned blobs.
	if blob, _ := s.GetFullImageBlob(ctx, "img-1"); blob != nil {
		t.Error("rolled-back save left a blob row behind")
	}
}

func TestSaveVideoURLOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	meta := Artifact{
		ID:          "vid-1",
		Prompt:      "waves crashing at dusk",
		Type:        TypeVideo,
		AspectRatio: "16:9",
		ExternalURL: "https://cdn.example.com/results/vid-1.mp4",
		CreatedAt:   time.Now(),
	}
	if err := s.SaveVideo(ctx, meta); err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	got, err := s.GetArtifact(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.ExternalURL != meta.ExternalURL {
		t.Errorf("ExternalURL = %q, want %q", got.ExternalURL, meta.ExternalURL)
	}

	// Video artifacts own zero blob rows.
	if blob, _ := s.GetFullImageBlob(ctx, "vid-1"); blob != nil {
		t.Error("video artifact should have no full blob")
	}
	if blob, _ := s.GetThumbnailBlob(ctx, "vid-1"); blob != nil {
		t.Error("video artifact should have no thumbnail blob")
	}
}

func TestSaveVideoRequiresURL(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	meta := Artifact{ID: "vid-1", Prompt: "p", Type: TypeVideo, AspectRatio: "16:9", CreatedAt: time.Now()}
	if err := s.SaveVideo(context.Background(), meta); err == nil {
		t.Error("SaveVideo() should reject an empty external URL")
	}
}

func TestGetAllImagesNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		meta := testImage(id, base.Add(time.Duration(i)*time.Hour))
		if err := s.SaveImage(ctx, meta, []byte("full"), []byte("thumb")); err != nil {
			t.Fatalf("SaveImage(%s) error = %v", id, err)
		}
	}

	artifacts, err := s.GetAllImages(ctx)
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}

	want := []string{"new", "mid", "old"}
	if len(artifacts) != len(want) {
		t.Fatalf("len(artifacts) = %d, want %d", len(artifacts), len(want))
	}
	for i, id := range want {
		if artifacts[i].ID != id {
			t.Errorf("artifacts[%d].ID = %q, want %q", i, artifacts[i].ID, id)
		}
	}
}

func TestDeleteImage(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveImage(ctx, testImage("img-1", time.Now()), []byte("full"), []byte("thumb")); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	if err := s.DeleteImage(ctx, "img-1"); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}

	// Both blob lookups return nil, and the artifact no longer lists.
	if blob, err := s.GetFullImageBlob(ctx, "img-1"); err != nil || blob != nil {
		t.Errorf("GetFullImageBlob() = (%v, %v), want (nil, nil)", blob, err)
	}
	if blob, err := s.GetThumbnailBlob(ctx, "img-1"); err != nil || blob != nil {
		t.Errorf("GetThumbnailBlob() = (%v, %v), want (nil, nil)", blob, err)
	}

	artifacts, err := s.GetAllImages(ctx)
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("deleted artifact still listed (%d remaining)", len(artifacts))
	}

	if err := s.DeleteImage(ctx, "img-1"); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("second DeleteImage() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestClearAllPreservesFolders(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Favorites")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		meta := testImage(id, time.Now())
		meta.FolderID = &folder.ID
		if err := s.SaveImage(ctx, meta, []byte("full"), []byte("thumb")); err != nil {
			t.Fatalf("SaveImage(%s) error = %v", id, err)
		}
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	artifacts, err := s.GetAllImages(ctx)
	if err != nil {
		t.Fatalf("GetAllImages() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("ClearAll left %d artifacts", len(artifacts))
	}

	folders, err := s.ListFolders(ctx)
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if len(folders) != 1 {
		t.Errorf("ClearAll should not touch folders, got %d", len(folders))
	}
}

func TestUpdateImageFolder(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	folder, err := s.CreateFolder(ctx, "Portraits")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if err := s.SaveImage(ctx, testImage("img-1", time.Now()), []byte("full"), []byte("thumb")); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}

	if err := s.UpdateImageFolder(ctx, "img-1", &folder.ID); err != nil {
		t.Fatalf("UpdateImageFolder() error = %v", err)
	}

	got, err := s.GetArtifact(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.FolderID == nil || *got.FolderID != folder.ID {
		t.Errorf("FolderID = %v, want %s", got.FolderID, folder.ID)
	}

	// Back to unfiled.
	if err := s.UpdateImageFolder(ctx, "img-1", nil); err != nil {
		t.Fatalf("UpdateImageFolder(nil) error = %v", err)
	}
	got, err = s.GetArtifact(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetArtifact() error = %v", err)
	}
	if got.FolderID != nil {
		t.Errorf("FolderID = %v, want nil", *got.FolderID)
	}

	// Unknown folder and unknown artifact are distinct failures.
	missing := "no-such-folder"
	if err := s.UpdateImageFolder(ctx, "img-1", &missing); !errors.Is(err, ErrFolderNotFound) {
		t.Errorf("error = %v, want ErrFolderNotFound", err)
	}
	if err := s.UpdateImageFolder(ctx, "ghost", &folder.ID); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("error = %v, want ErrArtifactNotFound", err)
	}
}

func TestGetArtifactNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.GetArtifact(context.Background(), "ghost")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("GetArtifact() error = %v, want ErrArtifactNotFound", err)
	}
}

func TestCountArtifacts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveImage(ctx, testImage("img-1", time.Now()), []byte("full"), []byte("thumb")); err != nil {
		t.Fatalf("SaveImage() error = %v", err)
	}
	video := Artifact{
		ID: "vid-1", Prompt: "p", Type: TypeVideo, AspectRatio: "16:9",
		ExternalURL: "https://cdn.example.com/vid-1.mp4", CreatedAt: time.Now(),
	}
	if err := s.SaveVideo(ctx, video); err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	total, err := s.CountArtifacts(ctx)
	if err != nil {
		t.Fatalf("CountArtifacts() error = %v", err)
	}
	if total != 2 {
		t.Errorf("CountArtifacts() = %d, want 2", total)
	}
}
