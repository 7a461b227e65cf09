package store

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
)

// Usage returns the cached storage usage snapshot. The snapshot is
// refreshed after every mutating store call.
func (s *Store) Usage() StorageUsage {
	s.usageMu.RLock()
	defer s.usageMu.RUnlock()
	return s.usage
}

// refreshUsage recomputes bytes used by the database files and the quota
// of the backing volume, and publishes both as gauges.
func (s *Store) refreshUsage() {
	var used int64
	// WAL mode keeps live data across three files.
	for _, path := range []string{s.dbPath, s.dbPath + "-wal", s.dbPath + "-shm"} {
		if info, err := os.Stat(path); err == nil {
			used += info.Size()
		}
	}

	var quota int64
	var stat unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(s.dbPath), &stat); err != nil {
		logging.Debug("statfs failed for %s: %v", filepath.Dir(s.dbPath), err)
	} else {
		// Quota is what this database could grow to: current size plus the
		// space still available to unprivileged writes.
		quota = used + int64(stat.Bavail)*int64(stat.Bsize)
	}

	s.usageMu.Lock()
	s.usage = StorageUsage{Used: used, Quota: quota}
	s.usageMu.Unlock()

	metrics.StoreBytesUsed.Set(float64(used))
	metrics.StoreBytesQuota.Set(float64(quota))
}
