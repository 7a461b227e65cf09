package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gen-gallery/internal/gallery"
	"gen-gallery/internal/store"
)

// GetGallery returns gallery entries, newest first. The folder query parameter
// filters: absent returns everything, "unfiled" returns artifacts without a
// folder, any other value selects that folder id.
func (h *Handlers) GetGallery(w http.ResponseWriter, r *http.Request) {
	var folderID *string
	if folder := r.URL.Query().Get("folder"); folder != "" {
		if folder == "unfiled" {
			empty := ""
			folderID = &empty
		} else {
			folderID = &folder
		}
	}

	entries, err := h.gallery.Entries(r.Context(), folderID)
	if err != nil {
		writeJSONError(w, "Failed to load gallery", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []gallery.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}

// DeleteArtifact removes one artifact and revokes its display URLs.
func (h *Handlers) DeleteArtifact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.gallery.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrArtifactNotFound) {
			writeJSONError(w, "Artifact not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to delete artifact", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "deleted")
}

// MoveArtifactRequest assigns an artifact to a folder; a null folderId moves
// it back to unfiled.
type MoveArtifactRequest struct {
	FolderID *string `json:"folderId"`
}

// MoveArtifact updates an artifact's folder membership.
func (h *Handlers) MoveArtifact(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req MoveArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateImageFolder(r.Context(), id, req.FolderID); err != nil {
		switch {
		case errors.Is(err, store.ErrArtifactNotFound):
			writeJSONError(w, "Artifact not found", http.StatusNotFound)
		case errors.Is(err, store.ErrFolderNotFound):
			writeJSONError(w, "Folder not found", http.StatusNotFound)
		default:
			writeJSONError(w, "Failed to move artifact", http.StatusInternalServerError)
		}
		return
	}
	writeJSONStatus(w, "moved")
}

// ClearGallery deletes every artifact and revokes all outstanding display
// URLs. Folders are preserved.
func (h *Handlers) ClearGallery(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.ClearAll(r.Context()); err != nil {
		writeJSONError(w, "Failed to clear gallery", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "cleared")
}
