package handlers

import "net/http"

// StorageResponse reports gallery disk usage against the volume quota.
type StorageResponse struct {
	UsedBytes  int64   `json:"usedBytes"`
	QuotaBytes int64   `json:"quotaBytes"`
	Percent    float64 `json:"percent"`
}

// GetStorage returns the store's current usage snapshot.
func (h *Handlers) GetStorage(w http.ResponseWriter, _ *http.Request) {
	usage := h.store.Usage()

	resp := StorageResponse{
		UsedBytes:  usage.Used,
		QuotaBytes: usage.Quota,
	}
	if usage.Quota > 0 {
		resp.Percent = float64(usage.Used) / float64(usage.Quota) * 100
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}
