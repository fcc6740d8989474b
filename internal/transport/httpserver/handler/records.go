package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"

	"github.com/go-chi/chi/v5"
)

type recordResponse struct {
	Name         string    `json:"name"`
	UpstreamURL  *string   `json:"upstream_url"`
	MirrorURL    string    `json:"mirror_url"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	FailureCause *string   `json:"failure_cause"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type recordListResponse struct {
	Items []recordResponse `json:"items"`
	Total int              `json:"total"`
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, err := parseStatusParam(query.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid status")
		return
	}
	limit, err := parseIntParam(query.Get("limit"), defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid limit")
		return
	}
	if limit == 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := h.Records.List(r.Context(), mirrordomain.ListFilter{Status: status, Limit: limit})
	if err != nil {
		h.log.InternalError("records.list: list records failed", err, "status", status)
		writeInternalError(w)
		return
	}

	response := make([]recordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, toRecordResponse(record))
	}

	writeJSON(w, http.StatusOK, recordListResponse{
		Items: response,
		Total: len(response),
	})
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "name is required")
		return
	}

	record, err := h.Records.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, mirrordomain.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "record not found")
			return
		}
		h.log.InternalError("records.get: get record failed", err, "repo", name)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(*record))
}

func toRecordResponse(record mirrordomain.SyncRecord) recordResponse {
	var cause *string
	if record.FailureCause != nil {
		value := string(*record.FailureCause)
		cause = &value
	}

	return recordResponse{
		Name:         record.Name,
		UpstreamURL:  record.UpstreamURL,
		MirrorURL:    record.MirrorURL,
		Status:       string(record.Status),
		ErrorMessage: record.ErrorMessage,
		FailureCause: cause,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
