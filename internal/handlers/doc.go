// Package handlers implements the HTTP API: generation submit/poll/cancel,
// gallery browsing, folder management, blob serving, storage usage, and
// health endpoints.
package handlers
