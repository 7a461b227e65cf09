package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gen-gallery/internal/metrics"
)

// ErrFolderNotFound is returned when an operation references a folder id
// that does not exist.
var ErrFolderNotFound = errors.New("folder not found")

// ErrArtifactNotFound is returned when an operation references an artifact
// id that does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// SaveImage persists an image artifact and both of its blobs in one
// transaction. meta.Type must be TypeImage and both blobs must be
// non-empty; a partial write is never visible.
func (s *Store) SaveImage(ctx context.Context, meta Artifact, fullBlob, thumbBlob []byte) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_image", start, err) }()

	if meta.Type != TypeImage {
		err = fmt.Errorf("SaveImage called with artifact type %q", meta.Type)
		return err
	}
	if len(fullBlob) == 0 || len(thumbBlob) == 0 {
		err = fmt.Errorf("image artifact %s requires both full and thumbnail blobs", meta.ID)
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if meta.FolderID != nil {
			if txErr := folderExists(tx, *meta.FolderID); txErr != nil {
				return txErr
			}
		}

		_, txErr := tx.Exec(`
			INSERT INTO artifacts (id, prompt, type, aspect_ratio, folder_id, external_url, created_at)
			VALUES (?, ?, ?, ?, ?, NULL, ?)`,
			meta.ID, meta.Prompt, meta.Type, meta.AspectRatio, meta.FolderID, meta.CreatedAt.Unix(),
		)
		if txErr != nil {
			return fmt.Errorf("failed to insert artifact %s: %w", meta.ID, txErr)
		}

		for _, blob := range []struct {
			key  string
			data []byte
		}{
			{FullKey(meta.ID), fullBlob},
			{ThumbKey(meta.ID), thumbBlob},
		} {
			if _, txErr := tx.Exec(
				"INSERT INTO blobs (key, artifact_id, size, data) VALUES (?, ?, ?, ?)",
				blob.key, meta.ID, len(blob.data), blob.data,
			); txErr != nil {
				return fmt.Errorf("failed to insert blob %s: %w", blob.key, txErr)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// SaveVideo persists a URL-only video artifact. Video bytes are not owned
// locally, so no blob rows are written.
func (s *Store) SaveVideo(ctx context.Context, meta Artifact) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_video", start, err) }()

	if meta.Type != TypeVideo {
		err = fmt.Errorf("SaveVideo called with artifact type %q", meta.Type)
		return err
	}
	if meta.ExternalURL == "" {
		err = fmt.Errorf("video artifact %s requires an external URL", meta.ID)
		return err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if meta.FolderID != nil {
			if txErr := folderExists(tx, *meta.FolderID); txErr != nil {
				return txErr
			}
		}

		_, txErr := tx.Exec(`
			INSERT INTO artifacts (id, prompt, type, aspect_ratio, folder_id, external_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			meta.ID, meta.Prompt, meta.Type, meta.AspectRatio, meta.FolderID, meta.ExternalURL, meta.CreatedAt.Unix(),
		)
		if txErr != nil {
			return fmt.Errorf("failed to insert artifact %s: %w", meta.ID, txErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// GetAllImages returns all artifacts newest-first. Full-resolution bytes
// are never loaded here; they are fetched on demand to bound memory as the
// gallery grows.
func (s *Store) GetAllImages(ctx context.Context) ([]Artifact, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_all_images", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, type, aspect_ratio, folder_id, external_url, created_at
		FROM artifacts
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		a, scanErr := scanArtifact(rows)
		if scanErr != nil {
			err = scanErr
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return artifacts, nil
}

// GetArtifact returns a single artifact by id, or ErrArtifactNotFound.
func (s *Store) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, type, aspect_ratio, folder_id, external_url, created_at
		FROM artifacts WHERE id = ?`, id)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetFullImageBlob returns the full-resolution bytes for an artifact, or
// nil when no such blob exists.
func (s *Store) GetFullImageBlob(ctx context.Context, id string) ([]byte, error) {
	return s.getBlob(ctx, "get_full_blob", FullKey(id))
}

// GetThumbnailBlob returns the thumbnail bytes for an artifact, or nil
// when no such blob exists.
func (s *Store) GetThumbnailBlob(ctx context.Context, id string) ([]byte, error) {
	return s.getBlob(ctx, "get_thumbnail_blob", ThumbKey(id))
}

// GetBlobByKey returns blob bytes for a raw blob key, as resolved from a
// display URL token.
func (s *Store) GetBlobByKey(ctx context.Context, key string) ([]byte, error) {
	return s.getBlob(ctx, "get_blob", key)
}

func (s *Store) getBlob(ctx context.Context, operation, key string) ([]byte, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(operation, start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var data []byte
	err = s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// DeleteImage removes an artifact and its blob rows in one transaction.
// Any cached display URL for the id must be revoked by the caller.
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_image", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, txErr := tx.Exec("DELETE FROM artifacts WHERE id = ?", id)
		if txErr != nil {
			return fmt.Errorf("failed to delete artifact %s: %w", id, txErr)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrArtifactNotFound
		}

		if _, txErr := tx.Exec("DELETE FROM blobs WHERE artifact_id = ?", id); txErr != nil {
			return fmt.Errorf("failed to delete blobs for %s: %w", id, txErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// ClearAll empties the artifact and blob tables transactionally. Folders
// are untouched.
func (s *Store) ClearAll(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("clear_all", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, txErr := tx.Exec("DELETE FROM blobs"); txErr != nil {
			return fmt.Errorf("failed to clear blobs: %w", txErr)
		}
		if _, txErr := tx.Exec("DELETE FROM artifacts"); txErr != nil {
			return fmt.Errorf("failed to clear artifacts: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// UpdateImageFolder moves an artifact into folderID, or to unfiled when
// folderID is nil. The folder must exist.
func (s *Store) UpdateImageFolder(ctx context.Context, id string, folderID *string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_folder", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if folderID != nil {
			if txErr := folderExists(tx, *folderID); txErr != nil {
				return txErr
			}
		}

		result, txErr := tx.Exec("UPDATE artifacts SET folder_id = ? WHERE id = ?", folderID, id)
		if txErr != nil {
			return fmt.Errorf("failed to update folder for %s: %w", id, txErr)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrArtifactNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// CountArtifacts updates the per-type artifact gauges and returns the
// total count.
func (s *Store) CountArtifacts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM artifacts GROUP BY type")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	counts := map[string]int{"image": 0, "video": 0}
	total := 0
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return 0, err
		}
		counts[t] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for t, n := range counts {
		metrics.StoreArtifactsTotal.WithLabelValues(t).Set(float64(n))
	}
	return total, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanArtifact.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row scanner) (Artifact, error) {
	var a Artifact
	var folderID sql.NullString
	var externalURL sql.NullString
	var createdAt int64

	if err := row.Scan(&a.ID, &a.Prompt, &a.Type, &a.AspectRatio, &folderID, &externalURL, &createdAt); err != nil {
		return Artifact{}, err
	}

	if folderID.Valid {
		a.FolderID = &folderID.String
	}
	if externalURL.Valid {
		a.ExternalURL = externalURL.String
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return a, nil
}

// folderExists verifies a folder id inside a transaction.
func folderExists(tx *sql.Tx, id string) error {
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM folders WHERE id = ?", id).Scan(&count); err != nil {
		return fmt.Errorf("failed to check folder %s: %w", id, err)
	}
	if count == 0 {
		return ErrFolderNotFound
	}
	return nil
}
