package webui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/observability"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/routing"
)

func newTestServer(t *testing.T) (*Server, *observability.Store) {
	t.Helper()
	store, err := observability.OpenStore(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	provider := observability.NewProvider(routing.ObservationName, observability.WithStore(store))
	router := routing.New(nil, provider, 0.2, 256)
	return NewServer(router, store, prometheus.NewRegistry(), "test-model"), store
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestIndexListsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "observable-agent-starter", body["service"])
	assert.Contains(t, rec.Body.String(), "/metrics")
}

func TestRouteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/route",
		strings.NewReader(`{"message": "I was double charged on my invoice"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body RouteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, routing.RouteBilling, body.Route)
	assert.NotEmpty(t, body.Explanation)
}

func TestRouteEndpointRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/route", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/route", strings.NewReader(`{"message": ""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/route", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerationsEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	require.NoError(t, store.InsertGeneration(&observability.GenerationRecord{
		ID:        "gen-1",
		Name:      "routing-agent",
		Model:     "test-model",
		Input:     "hello",
		CreatedAt: time.Now().UTC(),
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations?name=routing-agent", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var records []observability.GenerationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "gen-1", records[0].ID)
}

func TestGenerationsEndpointWithoutStore(t *testing.T) {
	provider := observability.NewProvider(routing.ObservationName)
	srv := NewServer(routing.New(nil, provider, 0.2, 256), nil, prometheus.NewRegistry(), "test-model")
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGenerationsEndpointInvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/generations?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	logger := logx.NewLogger("webui-test")
	logger.Info("dashboard smoke entry")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?name=webui-test", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var entries []logx.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Message, "dashboard smoke entry")
}

func TestLogsEndpointInvalidSince(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownPathReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
