package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/farhan/webins/internal/config"
	"github.com/farhan/webins/internal/endpoints"
	"github.com/farhan/webins/internal/models"
	"github.com/farhan/webins/internal/storage"
)

func newTestServer(t *testing.T) (http.Handler, *endpoints.Registry) {
	t.Helper()

	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "webins.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Endpoints: config.EndpointsConfig{TTL: time.Hour, MaxBodyBytes: 1 << 20},
	}
	registry := endpoints.NewRegistry(store, cfg.Endpoints.TTL, zerolog.Nop())
	server := NewServer(cfg, registry, store, zerolog.Nop())
	return server.Handler(), registry
}

func TestCreateFlowRedirectsToListing(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create-endpoint", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/list-endpoints" {
		t.Fatalf("expected redirect to /list-endpoints, got %q", loc)
	}
}

func TestListFlow(t *testing.T) {
	handler, registry := newTestServer(t)

	var created []*models.Endpoint
	for i := 0; i < 3; i++ {
		ep, err := registry.Create(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, ep)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list-endpoints", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var eps []models.Endpoint
	if err := json.Unmarshal(rec.Body.Bytes(), &eps); err != nil {
		t.Fatal(err)
	}
	if len(eps) != 3 {
		t.Fatalf("expected 3 endpoints, got %d", len(eps))
	}
	// Newest first.
	if eps[0].ID != created[2].ID || eps[2].ID != created[0].ID {
		t.Fatalf("expected descending ids, got %d..%d", eps[0].ID, eps[2].ID)
	}
}

func TestCaptureFlowRoundTrip(t *testing.T) {
	handler, registry := newTestServer(t)

	ep, err := registry.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/test-webhook/"+ep.Token+"?a=1", strings.NewReader("b=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Test", "yes")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var echoed struct {
		Endpoint   string            `json:"reference_endpoint"`
		FormData   map[string]string `json:"form_data"`
		QueryData  map[string]string `json:"query_params_data"`
		HeaderData []string          `json:"header_data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &echoed); err != nil {
		t.Fatal(err)
	}
	if echoed.Endpoint != ep.Token {
		t.Fatalf("expected echoed token %q, got %q", ep.Token, echoed.Endpoint)
	}
	if echoed.FormData["b"] != "2" || echoed.QueryData["a"] != "1" {
		t.Fatalf("fields did not round trip: %+v", echoed)
	}

	// Details flow returns the persisted capture, newest first.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/endpoint-details/"+ep.Token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var details struct {
		Endpoint models.Endpoint  `json:"endpoint"`
		Captures []models.Capture `json:"captures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatal(err)
	}
	if details.Endpoint.ID != ep.ID {
		t.Fatalf("expected endpoint %d, got %d", ep.ID, details.Endpoint.ID)
	}
	if len(details.Captures) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(details.Captures))
	}

	got := details.Captures[0]
	var form map[string]string
	if err := json.Unmarshal([]byte(got.FormData), &form); err != nil {
		t.Fatalf("form_data is not JSON: %v", err)
	}
	if form["b"] != "2" {
		t.Fatalf("persisted form did not round trip: %v", form)
	}
	var query map[string]string
	if err := json.Unmarshal([]byte(got.QueryParamsData), &query); err != nil {
		t.Fatalf("query_params_data is not JSON: %v", err)
	}
	if query["a"] != "1" {
		t.Fatalf("persisted query did not round trip: %v", query)
	}
	if !strings.Contains(got.HeaderData, "X-Test: yes") {
		t.Fatalf("expected header line in %q", got.HeaderData)
	}
	if got.FilesData != "No Files Found." {
		t.Fatalf("expected files sentinel, got %q", got.FilesData)
	}
}

func TestCaptureFlowAcceptsAnyMethod(t *testing.T) {
	handler, registry := newTestServer(t)

	ep, err := registry.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/test-webhook/"+ep.Token, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("method %s: expected 200, got %d", method, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/endpoint-details/"+ep.Token, nil))

	var details struct {
		Captures []models.Capture `json:"captures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &details); err != nil {
		t.Fatal(err)
	}
	if len(details.Captures) != 4 {
		t.Fatalf("expected 4 captures, got %d", len(details.Captures))
	}
	for i := 1; i < len(details.Captures); i++ {
		if details.Captures[i].ID >= details.Captures[i-1].ID {
			t.Fatal("expected captures in descending id order")
		}
	}
}

func TestCaptureFlowRejectsBlankToken(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test-webhook/%20", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cannot be blank") {
		t.Fatalf("expected blank-token message, got %s", rec.Body.String())
	}
}

func TestCaptureFlowRejectsUnknownToken(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/test-webhook/not-a-real-token", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expired or deleted") {
		t.Fatalf("expected expired-or-deleted message, got %s", rec.Body.String())
	}
}

func TestDetailsFlowRejectsUnknownToken(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/endpoint-details/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	handler, registry := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}

	if _, err := registry.Create(context.Background()); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /stats, got %d", rec.Code)
	}

	var stats storage.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalEndpoints != 1 || stats.UsableEndpoints != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
