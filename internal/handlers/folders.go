package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"gen-gallery/internal/store"
)

// FolderRequest carries a folder name for create and rename.
type FolderRequest struct {
	Name string `json:"name"`
}

// ReorderRequest lists every folder id in the desired display order.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// ListFolders returns the folder taxonomy with per-folder artifact counts.
func (h *Handlers) ListFolders(w http.ResponseWriter, r *http.Request) {
	tax, err := h.gallery.Folders(r.Context())
	if err != nil {
		writeJSONError(w, "Failed to list folders", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, tax)
}

// CreateFolder creates a folder at the end of the display order.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSONError(w, "Folder name is required", http.StatusBadRequest)
		return
	}

	folder, err := h.store.CreateFolder(r.Context(), req.Name)
	if err != nil {
		writeJSONError(w, "Failed to create folder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, folder)
}

// RenameFolder changes a folder's display name.
func (h *Handlers) RenameFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSONError(w, "Folder name is required", http.StatusBadRequest)
		return
	}

	if err := h.store.RenameFolder(r.Context(), id, req.Name); err != nil {
		if errors.Is(err, store.ErrFolderNotFound) {
			writeJSONError(w, "Folder not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to rename folder", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "renamed")
}

// ReorderFolders applies a complete new display order.
func (h *Handlers) ReorderFolders(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.store.ReorderFolders(r.Context(), req.IDs); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, "reordered")
}

// DeleteFolder removes a folder; its artifacts become unfiled.
func (h *Handlers) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.store.DeleteFolder(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrFolderNotFound) {
			writeJSONError(w, "Folder not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to delete folder", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "deleted")
}
