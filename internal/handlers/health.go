package handlers

import (
	"net/http"
	"runtime"
	"time"

	"gen-gallery/internal/breaker"
	"gen-gallery/internal/generate"
	"gen-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Ready     bool   `json:"ready"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Artifacts int    `json:"artifacts"`

	// Remote service breaker states
	Breakers map[string]string `json:"breakers"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The gallery is
// degraded, not down, when a remote generation breaker is open: browsing
// keeps working while generation is rejected.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.CountArtifacts(r.Context())
	if err != nil {
		writeJSONError(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}

	breakers := map[string]string{
		generate.BreakerImage:       h.breakers.StateOf(generate.BreakerImage).String(),
		generate.BreakerVideoSubmit: h.breakers.StateOf(generate.BreakerVideoSubmit).String(),
		generate.BreakerVideoStatus: h.breakers.StateOf(generate.BreakerVideoStatus).String(),
	}

	status := statusHealthy
	for _, state := range breakers {
		if state != breaker.StateClosed.String() {
			status = statusDegraded
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Artifacts:    count,
		Breakers:     breakers,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// Livez reports process liveness only.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatus(w, "ok")
}

// Readyz reports whether the store can serve queries.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.CountArtifacts(r.Context()); err != nil {
		writeJSONError(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready")
}
