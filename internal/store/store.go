package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
)

// Default timeout for store operations
const defaultTimeout = 5 * time.Second

// Store is the durable local gallery database. Each exported method is one
// atomic transaction; cross-method sequences are not globally locked, which
// is acceptable for a single-user gallery and deliberately not engineered
// away.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	usage   StorageUsage
	usageMu sync.RWMutex
}

// New opens (or creates) the gallery database at dbPath and initializes
// the schema. dbPath must be the full path to the database file and its
// parent directory must already exist and be writable; a failure here is
// fatal for the gallery feature for the session.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Gallery database path: %s", dbPath)

	// WAL mode and busy_timeout prevent "database is locked" errors when
	// generation workers and gallery reads interleave.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	s.refreshUsage()
	logging.Info("Gallery database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Artifact metadata table
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		type TEXT NOT NULL,
		aspect_ratio TEXT NOT NULL,
		folder_id TEXT REFERENCES folders(id),
		external_url TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at);
	CREATE INDEX IF NOT EXISTS idx_artifacts_folder_id ON artifacts(folder_id);

	-- Blob table, keyed "<id>-thumb" / "<id>-full"
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		artifact_id TEXT NOT NULL,
		size INTEGER NOT NULL,
		data BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_blobs_artifact_id ON blobs(artifact_id);

	-- Folder table
	CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_folders_sort_order ON folders(sort_order);
	`

	_, err = s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a single transaction, committing on nil error and
// rolling back otherwise. One logical store operation maps to exactly one
// call of withTx so a mid-write failure can never leave an artifact with
// missing blobs or orphaned blobs with no owner.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txStart := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		metrics.StoreTransactionDuration.WithLabelValues("rollback").Observe(time.Since(txStart).Seconds())
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.StoreTransactionDuration.WithLabelValues("commit").Observe(time.Since(txStart).Seconds())
	return tx.Commit()
}

// recordQuery records store query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.StoreQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateConnMetrics updates database connection metrics
func (s *Store) UpdateConnMetrics() {
	stats := s.db.Stats()
	metrics.StoreConnectionsOpen.Set(float64(stats.OpenConnections))
}
