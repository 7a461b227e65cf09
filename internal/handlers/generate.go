package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"gen-gallery/internal/generate"
	"gen-gallery/internal/store"
)

// GenerateRequest is the submit payload. EditImage carries base64 source bytes
// for image-to-image edits.
type GenerateRequest struct {
	Type        string  `json:"type"`
	Prompt      string  `json:"prompt"`
	Count       int     `json:"count,omitempty"`
	AspectRatio string  `json:"aspectRatio,omitempty"`
	FolderID    *string `json:"folderId,omitempty"`
	EditImage   string  `json:"editImage,omitempty"`
}

// Generate submits a new generation job and returns its initial snapshot.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var editImage []byte
	if req.EditImage != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.EditImage)
		if err != nil {
			writeJSONError(w, "Invalid edit image encoding", http.StatusBadRequest)
			return
		}
		editImage = decoded
	}

	job, err := h.orch.Submit(generate.Request{
		Type:        store.ArtifactType(req.Type),
		Prompt:      req.Prompt,
		Count:       req.Count,
		AspectRatio: req.AspectRatio,
		FolderID:    req.FolderID,
		EditImage:   editImage,
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, job.View())
}

// GetGeneration returns the current snapshot of a job.
func (h *Handlers) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, err := h.orch.Job(id)
	if err != nil {
		writeJSONError(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, view)
}

// CancelGeneration requests cooperative cancellation of a running job.
func (h *Handlers) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.orch.Cancel(id); err != nil {
		if errors.Is(err, generate.ErrJobNotFound) {
			writeJSONError(w, "Job not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "Failed to cancel job", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "cancelling")
}
