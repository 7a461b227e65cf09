//go:build !cgo

package thumbnail

import "fmt"

// InitVips reports libvips as unavailable in cgo-free builds; callers fall
// back to the pure-Go imaging path.
func InitVips() error {
	return fmt.Errorf("libvips support requires cgo; built with CGO_ENABLED=0")
}

// ShutdownVips is a no-op in cgo-free builds.
func ShutdownVips() {}

// IsVipsAvailable always reports false in cgo-free builds.
func IsVipsAvailable() bool {
	return false
}

// generateWithVips is never reachable in cgo-free builds because
// IsVipsAvailable returns false.
func generateWithVips(data []byte, maxEdge, quality int) ([]byte, error) {
	return nil, fmt.Errorf("libvips support requires cgo; built with CGO_ENABLED=0")
}
