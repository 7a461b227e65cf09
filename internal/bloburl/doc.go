// Package bloburl mints ephemeral, revocable display URLs for stored
// blobs.
//
// Each URL is an unguessable token under a fixed path prefix, tracked by
// a handle whose Release revokes it exactly once. The cache holds no blob
// bytes; resolution returns the blob key and the HTTP layer streams the
// bytes from the store.
package bloburl
