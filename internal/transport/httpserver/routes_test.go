package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mirror-sync-go/internal/config"
	mirrordomain "mirror-sync-go/internal/domain/mirror"
	"mirror-sync-go/internal/repository/inmemory"
	"mirror-sync-go/internal/transport/httpserver/handler"
	"mirror-sync-go/pkg/logger"
)

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t, config.Config{})

	rec := do(router, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestListRecordsFiltersByStatus(t *testing.T) {
	router, store, _ := newTestRouter(t, config.Config{})
	seedRecord(t, store, "foo", mirrordomain.StatusSucceeded)
	seedRecord(t, store, "bar", mirrordomain.StatusFailed)
	seedRecord(t, store, "baz", mirrordomain.StatusPending)

	rec := do(router, http.MethodGet, "/api/records?status=failed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Items []struct {
			Name         string  `json:"name"`
			Status       string  `json:"status"`
			ErrorMessage *string `json:"error_message"`
			FailureCause *string `json:"failure_cause"`
		} `json:"items"`
		Total int `json:"total"`
	}
	decode(t, rec, &body)

	if body.Total != 1 || len(body.Items) != 1 {
		t.Fatalf("expected one failed record, got %+v", body)
	}
	item := body.Items[0]
	if item.Name != "bar" || item.Status != "failed" {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.FailureCause == nil || *item.FailureCause != "push" {
		t.Fatalf("expected failure_cause push, got %v", item.FailureCause)
	}
}

func TestListRecordsRejectsUnknownStatus(t *testing.T) {
	router, _, _ := newTestRouter(t, config.Config{})

	rec := do(router, http.MethodGet, "/api/records?status=done", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRecord(t *testing.T) {
	router, store, _ := newTestRouter(t, config.Config{})
	seedRecord(t, store, "foo", mirrordomain.StatusSucceeded)

	rec := do(router, http.MethodGet, "/api/records/foo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["name"] != "foo" || body["status"] != "succeeded" {
		t.Fatalf("unexpected record: %v", body)
	}
	if body["mirror_url"] != "http://localhost:8000/third-part/acme/foo" {
		t.Fatalf("unexpected mirror_url: %v", body["mirror_url"])
	}
}

func TestGetRecordNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t, config.Config{})

	rec := do(router, http.MethodGet, "/api/records/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "record_not_found") {
		t.Fatalf("expected record_not_found code, got %s", rec.Body.String())
	}
}

func TestTriggerScan(t *testing.T) {
	router, _, scans := newTestRouter(t, config.Config{})

	rec := do(router, http.MethodPost, "/api/scan", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if scans.triggered != 1 {
		t.Fatalf("expected one trigger, got %d", scans.triggered)
	}

	scans.running = true
	rec = do(router, http.MethodPost, "/api/scan", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scan_in_progress") {
		t.Fatalf("expected scan_in_progress code, got %s", rec.Body.String())
	}
}

func TestTriggerScanRequiresAdminToken(t *testing.T) {
	router, _, scans := newTestRouter(t, config.Config{AdminToken: "s3cret"})

	rec := do(router, http.MethodPost, "/api/scan", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/api/scan", "Bearer wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	rec = do(router, http.MethodPost, "/api/scan", "Bearer s3cret")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 with token, got %d", rec.Code)
	}
	if scans.triggered != 1 {
		t.Fatalf("expected one trigger, got %d", scans.triggered)
	}

	rec = do(router, http.MethodGet, "/api/records", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected read endpoints to stay open, got %d", rec.Code)
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	store := inmemory.NewSyncRecordRepository()
	scans := &fakeScans{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mirror_sync_scans_total 0\n"))
	})
	router := NewRouter(config.Config{}, handler.New(store, scans, logger.Discard()), metrics, logger.Discard())

	rec := do(router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mirror_sync_scans_total") {
		t.Fatalf("unexpected /metrics response %d: %s", rec.Code, rec.Body.String())
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (http.Handler, *inmemory.SyncRecordRepository, *fakeScans) {
	t.Helper()
	store := inmemory.NewSyncRecordRepository()
	scans := &fakeScans{}
	return NewRouter(cfg, handler.New(store, scans, logger.Discard()), nil, logger.Discard()), store, scans
}

func seedRecord(t *testing.T, store *inmemory.SyncRecordRepository, name string, status mirrordomain.Status) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	record, err := store.GetOrCreate(ctx, name)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	record.SetResolution(mirrordomain.Resolution{
		UpstreamURL: "https://github.com/acme/" + name,
		MirrorURL:   "http://localhost:8000/third-part/acme/" + name,
	})
	switch status {
	case mirrordomain.StatusSucceeded:
		err = record.MarkSucceeded(now)
	case mirrordomain.StatusFailed:
		err = record.MarkFailed(mirrordomain.CausePush, "remote rejected", now)
	}
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func do(router http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

type fakeScans struct {
	running   bool
	triggered int
}

func (f *fakeScans) Trigger() error {
	if f.running {
		return mirrordomain.ErrScanInProgress
	}
	f.triggered++
	return nil
}

func (f *fakeScans) Running() bool {
	return f.running
}
