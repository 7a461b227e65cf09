package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gen-gallery/internal/store"
	"gen-gallery/internal/thumbnail"
)

// GetBlob serves blob bytes for a minted display URL token. Tokens that were
// never minted or have been revoked return 404; a revoked token never comes
// back.
func (h *Handlers) GetBlob(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	key, ok := h.blobs.Resolve(token)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data, err := h.store.GetBlobByKey(r.Context(), key)
	if err != nil {
		writeJSONError(w, "Failed to read blob", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	serveImageBytes(w, data)
}

// GetFullImage serves the full-resolution bytes for an artifact id directly,
// bypassing the token indirection. Used for downloads.
func (h *Handlers) GetFullImage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.store.GetArtifact(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrArtifactNotFound) {
			http.NotFound(w, r)
			return
		}
		writeJSONError(w, "Failed to read artifact", http.StatusInternalServerError)
		return
	}

	data, err := h.store.GetFullImageBlob(r.Context(), id)
	if err != nil {
		writeJSONError(w, "Failed to read image", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	serveImageBytes(w, data)
}

// GetFullImageURL lazily mints a revocable display URL for the full-resolution
// blob. Deleting the artifact revokes it.
func (h *Handlers) GetFullImageURL(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	artifact, err := h.store.GetArtifact(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrArtifactNotFound) {
			http.NotFound(w, r)
			return
		}
		writeJSONError(w, "Failed to read artifact", http.StatusInternalServerError)
		return
	}
	if artifact.Type != store.TypeImage {
		writeJSONError(w, "Artifact has no stored image bytes", http.StatusBadRequest)
		return
	}

	handle := h.blobs.Acquire(store.FullKey(id))
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"url": handle.URL()})
}

func serveImageBytes(w http.ResponseWriter, data []byte) {
	contentType := "application/octet-stream"
	if format := thumbnail.SniffFormat(data); format != "unknown" {
		contentType = "image/" + format
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.Write(data)
}
