// Package gallery composes the persisted artifact list with the
// orchestrator's pending placeholders into the view the frontend renders.
// Thumbnails are exposed through revocable blob URLs rather than raw database
// keys.
package gallery

import (
	"context"
	"sort"
	"time"

	"gen-gallery/internal/bloburl"
	"gen-gallery/internal/generate"
	"gen-gallery/internal/store"
)

// Entry kinds.
const (
	KindPlaceholder = "placeholder"
	KindArtifact    = "artifact"
)

// Entry is one gallery slot: either a pending placeholder or a persisted
// artifact.
type Entry struct {
	Kind         string             `json:"kind"`
	ID           string             `json:"id"`
	Prompt       string             `json:"prompt"`
	Type         store.ArtifactType `json:"type"`
	AspectRatio  string             `json:"aspectRatio,omitempty"`
	FolderID     *string            `json:"folderId,omitempty"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty"`
	ExternalURL  string             `json:"externalUrl,omitempty"`
	JobID        string             `json:"jobId,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// FolderCount pairs a folder with how many artifacts it holds.
type FolderCount struct {
	store.Folder
	Count int `json:"count"`
}

// Taxonomy is the folder list with membership counts. Counts are computed by
// filtering the artifact list on every call instead of maintaining stored
// counters that could drift from actual membership.
type Taxonomy struct {
	Folders []FolderCount `json:"folders"`
	Unfiled int           `json:"unfiled"`
	Total   int           `json:"total"`
}

// PlaceholderSource supplies the unresolved generation slots.
type PlaceholderSource interface {
	Placeholders() []generate.Placeholder
}

// Service builds gallery views.
type Service struct {
	store        *store.Store
	placeholders PlaceholderSource
	blobs        *bloburl.Cache
}

func New(st *store.Store, placeholders PlaceholderSource, blobs *bloburl.Cache) *Service {
	return &Service{store: st, placeholders: placeholders, blobs: blobs}
}

// Entries returns the gallery, newest first. folderID nil means all artifacts;
// a non-nil empty string selects unfiled artifacts only. Placeholders are
// always included so pending slots stay visible while browsing.
func (s *Service) Entries(ctx context.Context, folderID *string) ([]Entry, error) {
	artifacts, err := s.store.GetAllImages(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(artifacts))
	for _, p := range s.placeholders.Placeholders() {
		entries = append(entries, Entry{
			Kind:        KindPlaceholder,
			ID:          p.ID,
			Prompt:      p.Prompt,
			Type:        p.Type,
			AspectRatio: p.AspectRatio,
			JobID:       p.JobID,
			CreatedAt:   p.CreatedAt,
		})
	}
	for _, a := range artifacts {
		if !matchesFolder(a, folderID) {
			continue
		}
		entries = append(entries, s.artifactEntry(a))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			if entries[i].Kind != entries[j].Kind {
				return entries[i].Kind == KindPlaceholder
			}
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (s *Service) artifactEntry(a store.Artifact) Entry {
	e := Entry{
		Kind:        KindArtifact,
		ID:          a.ID,
		Prompt:      a.Prompt,
		Type:        a.Type,
		AspectRatio: a.AspectRatio,
		FolderID:    a.FolderID,
		ExternalURL: a.ExternalURL,
		CreatedAt:   a.CreatedAt,
	}
	if a.Type == store.TypeImage {
		e.ThumbnailURL = s.blobs.Acquire(store.ThumbKey(a.ID)).URL()
	}
	return e
}

func matchesFolder(a store.Artifact, folderID *string) bool {
	if folderID == nil {
		return true
	}
	if *folderID == "" {
		return a.FolderID == nil
	}
	return a.FolderID != nil && *a.FolderID == *folderID
}

// Folders returns the taxonomy with per-folder counts.
func (s *Service) Folders(ctx context.Context) (Taxonomy, error) {
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return Taxonomy{}, err
	}
	artifacts, err := s.store.GetAllImages(ctx)
	if err != nil {
		return Taxonomy{}, err
	}

	counts := make(map[string]int, len(folders))
	unfiled := 0
	for _, a := range artifacts {
		if a.FolderID == nil {
			unfiled++
			continue
		}
		counts[*a.FolderID]++
	}

	tax := Taxonomy{
		Folders: make([]FolderCount, 0, len(folders)),
		Unfiled: unfiled,
		Total:   len(artifacts),
	}
	for _, f := range folders {
		tax.Folders = append(tax.Folders, FolderCount{Folder: f, Count: counts[f.ID]})
	}
	return tax, nil
}

// Delete removes one artifact and revokes its blob URLs.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteImage(ctx, id); err != nil {
		return err
	}
	s.blobs.RevokeKey(store.ThumbKey(id))
	s.blobs.RevokeKey(store.FullKey(id))
	return nil
}

// ClearAll wipes every artifact and revokes every outstanding blob URL.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	s.blobs.Reset()
	return nil
}
