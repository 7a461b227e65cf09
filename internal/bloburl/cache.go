package bloburl

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"gen-gallery/internal/logging"
	"gen-gallery/internal/metrics"
)

// Handle is a scoped display URL for one blob key. Release revokes the
// URL; releasing more than once is a no-op so revocation stays
// exactly-once per minted URL.
type Handle struct {
	cache *Cache
	token string
	key   string
	url   string

	mu       sync.Mutex
	released bool
}

// URL returns the browser-visible URL for the blob.
func (h *Handle) URL() string { return h.url }

// Key returns the blob key the handle was minted for.
func (h *Handle) Key() string { return h.key }

// Release revokes the URL. After Release the URL no longer resolves.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	h.mu.Unlock()

	h.cache.drop(h)
}

// Cache is an in-memory map from blob keys to revocable display URLs.
// URLs are unguessable tokens served under a fixed path prefix; the blob
// bytes themselves stay in the store and are streamed on resolution.
type Cache struct {
	mu       sync.Mutex
	basePath string
	byToken  map[string]*Handle
	byKey    map[string]*Handle

	created int64
	revoked int64
}

// NewCache creates a cache whose URLs live under basePath
// (e.g. "/api/blob/").
func NewCache(basePath string) *Cache {
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return &Cache{
		basePath: basePath,
		byToken:  make(map[string]*Handle),
		byKey:    make(map[string]*Handle),
	}
}

// Acquire returns the live handle for key, minting a URL on first use.
// Thumbnail URLs are acquired eagerly per loaded artifact; full-resolution
// URLs should be acquired only when a detail view opens.
func (c *Cache) Acquire(key string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.byKey[key]; ok {
		return h
	}

	token := uuid.NewString()
	h := &Handle{
		cache: c,
		token: token,
		key:   key,
		url:   c.basePath + token,
	}
	c.byToken[token] = h
	c.byKey[key] = h
	c.created++
	metrics.BlobURLsActive.Inc()

	logging.Debug("blob URL minted for %s", key)
	return h
}

// Resolve maps a URL token back to its blob key. Revoked or unknown
// tokens do not resolve.
func (c *Cache) Resolve(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.byToken[token]
	if !ok {
		return "", false
	}
	return h.key, true
}

// RevokeKey releases the handle for key, if one is live. Used when an
// artifact is deleted and its display URLs must stop resolving.
func (c *Cache) RevokeKey(key string) {
	c.mu.Lock()
	h, ok := c.byKey[key]
	c.mu.Unlock()

	if ok {
		h.Release()
	}
}

// Reset releases every live handle. Called on clearAll and on teardown of
// the consuming view.
func (c *Cache) Reset() {
	c.mu.Lock()
	handles := make([]*Handle, 0, len(c.byKey))
	for _, h := range c.byKey {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
}

// Stats returns the lifetime created and revoked counts plus the number
// of currently live URLs. Tests assert created == revoked after teardown.
func (c *Cache) Stats() (created, revoked int64, active int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created, c.revoked, len(c.byToken)
}

// drop removes a released handle from both indexes.
func (c *Cache) drop(h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byToken[h.token]; !ok {
		return
	}
	delete(c.byToken, h.token)
	// Only unmap the key if it still points at this handle; a new handle
	// may have been minted for the same key since.
	if cur, ok := c.byKey[h.key]; ok && cur == h {
		delete(c.byKey, h.key)
	}
	c.revoked++
	metrics.BlobURLsActive.Dec()
	metrics.BlobURLsRevokedTotal.Inc()

	logging.Debug("blob URL revoked for %s", h.key)
}
