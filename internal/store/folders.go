package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateFolder creates a folder at the end of the display order.
func (s *Store) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_folder", start, err) }()

	folder := &Folder{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		// New folders append to the display order.
		var maxOrder sql.NullInt64
		if txErr := tx.QueryRow("SELECT MAX(sort_order) FROM folders").Scan(&maxOrder); txErr != nil {
			return fmt.Errorf("failed to determine folder order: %w", txErr)
		}
		folder.SortOrder = int(maxOrder.Int64) + 1

		_, txErr := tx.Exec(
			"INSERT INTO folders (id, name, sort_order, created_at) VALUES (?, ?, ?, ?)",
			folder.ID, folder.Name, folder.SortOrder, folder.CreatedAt.Unix(),
		)
		if txErr != nil {
			return fmt.Errorf("failed to insert folder: %w", txErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.refreshUsage()
	return folder, nil
}

// ListFolders returns all folders in display order.
func (s *Store) ListFolders(ctx context.Context) ([]Folder, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_folders", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sort_order, created_at FROM folders ORDER BY sort_order")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []Folder
	for rows.Next() {
		var f Folder
		var createdAt int64
		if scanErr := rows.Scan(&f.ID, &f.Name, &f.SortOrder, &createdAt); scanErr != nil {
			err = scanErr
			return nil, err
		}
		f.CreatedAt = time.Unix(createdAt, 0).UTC()
		folders = append(folders, f)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return folders, nil
}

// RenameFolder changes a folder's display name.
func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("rename_folder", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		result, txErr := tx.Exec("UPDATE folders SET name = ? WHERE id = ?", name, id)
		if txErr != nil {
			return fmt.Errorf("failed to rename folder %s: %w", id, txErr)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrFolderNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}

// ReorderFolders assigns display order following the given id sequence.
// Every existing folder must appear exactly once.
func (s *Store) ReorderFolders(ctx context.Context, ids []string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("reorder_folders", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if txErr := tx.QueryRow("SELECT COUNT(*) FROM folders").Scan(&count); txErr != nil {
			return fmt.Errorf("failed to count folders: %w", txErr)
		}
		if count != len(ids) {
			return fmt.Errorf("reorder must include all %d folders, got %d", count, len(ids))
		}

		for i, id := range ids {
			result, txErr := tx.Exec("UPDATE folders SET sort_order = ? WHERE id = ?", i+1, id)
			if txErr != nil {
				return fmt.Errorf("failed to reorder folder %s: %w", id, txErr)
			}
			if rows, _ := result.RowsAffected(); rows == 0 {
				return ErrFolderNotFound
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

// DeleteFolder removes a folder and reassigns its artifacts to unfiled in
// the same transaction. Artifacts are never deleted by folder deletion.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_folder", start, err) }()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		// Cascade-to-unfiled, not cascade-delete.
		if _, txErr := tx.Exec("UPDATE artifacts SET folder_id = NULL WHERE folder_id = ?", id); txErr != nil {
			return fmt.Errorf("failed to unfile artifacts for folder %s: %w", id, txErr)
		}

		result, txErr := tx.Exec("DELETE FROM folders WHERE id = ?", id)
		if txErr != nil {
			return fmt.Errorf("failed to delete folder %s: %w", id, txErr)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrFolderNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshUsage()
	return nil
}
