// Package store provides the durable local gallery database.
//
// It persists:
//   - Artifact metadata (generated images and videos, folder membership)
//   - Blob rows holding full-resolution and thumbnail bytes for images
//   - User-defined folders with a display order
//
// The database uses WAL mode, and every exported operation is scoped to a
// single transaction so an artifact and its blobs are always created and
// destroyed together.
package store
