package store

import "time"

// ArtifactType distinguishes generated images from generated videos.
type ArtifactType string

const (
	// TypeImage is an artifact whose bytes are stored locally.
	TypeImage ArtifactType = "image"
	// TypeVideo is an artifact referenced by external URL only.
	TypeVideo ArtifactType = "video"
)

// Artifact is one generated image or video result, the unit of persistence.
// Image artifacts own exactly two blob rows (full + thumbnail); video
// artifacts own zero and carry ExternalURL instead.
type Artifact struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Type        ArtifactType `json:"type"`
	AspectRatio string       `json:"aspectRatio"`
	FolderID    *string      `json:"folderId"`
	ExternalURL string       `json:"externalUrl,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Folder is a user-defined grouping of artifacts. Deleting a folder
// reassigns its artifacts to unfiled rather than deleting them.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

// StorageUsage reports bytes used by the gallery database and the quota
// of the volume backing it.
type StorageUsage struct {
	Used  int64 `json:"used"`
	Quota int64 `json:"quota"`
}

// Blob row keys. A blob row and its owning artifact are created and
// destroyed together, never independently.

// ThumbKey returns the blob key for an artifact's thumbnail bytes.
func ThumbKey(artifactID string) string { return artifactID + "-thumb" }

// FullKey returns the blob key for an artifact's full-resolution bytes.
func FullKey(artifactID string) string { return artifactID + "-full" }
