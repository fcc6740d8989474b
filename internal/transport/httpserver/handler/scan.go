package handler

import (
	"errors"
	"net/http"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type scanResponse struct {
	Status string `json:"status"`
}

func (h *Handlers) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if err := h.Scans.Trigger(); err != nil {
		if errors.Is(err, mirrordomain.ErrScanInProgress) {
			writeError(w, http.StatusConflict, codeScanInProgress, "scan already in progress")
			return
		}
		h.log.InternalError("scan.trigger: start scan failed", err)
		writeInternalError(w)
		return
	}

	h.log.Info("scan.trigger: scan started", "request_id", chimw.GetReqID(r.Context()))
	writeJSON(w, http.StatusAccepted, scanResponse{Status: "started"})
}
