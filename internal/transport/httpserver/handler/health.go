package handler

import "net/http"

type healthResponse struct {
	Status      string `json:"status"`
	ScanRunning bool   `json:"scan_running"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		ScanRunning: h.Scans != nil && h.Scans.Running(),
	})
}
