// Package webui serves the starter kit's dashboard API: health and status,
// a routing endpoint, recent traces, recent logs, and Prometheus metrics.
package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/observability"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/routing"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/version"
)

const defaultGenerationLimit = 50

// Server is the dashboard HTTP server.
type Server struct {
	router   *routing.Agent
	store    *observability.Store
	gatherer prometheus.Gatherer
	logger   *logx.Logger
	model    string
}

// NewServer creates a dashboard server. store may be nil when tracing is
// disabled; gatherer may be nil to fall back to the default registry.
func NewServer(router *routing.Agent, store *observability.Store, gatherer prometheus.Gatherer, model string) *Server {
	return &Server{
		router:   router,
		store:    store,
		gatherer: gatherer,
		logger:   logx.NewLogger("webui"),
		model:    model,
	}
}

// RouteRequest is the body for POST /route.
type RouteRequest struct {
	Message string `json:"message"`
}

// RouteResponse is the reply for POST /route.
type RouteResponse struct {
	Route       string `json:"route"`
	Explanation string `json:"explanation"`
	LatencyMS   int64  `json:"latency_ms"`
}

// RegisterRoutes attaches all handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/api/generations", s.handleGenerations)
	mux.HandleFunc("/api/logs", s.handleLogs)

	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]any{
		"service": "observable-agent-starter",
		"version": version.Version,
		"model":   s.model,
		"endpoints": []string{
			"/health", "/route", "/api/generations", "/api/logs", "/metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	decision, err := s.router.Route(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("Routing failed: %v", err)
		http.Error(w, "Routing failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, RouteResponse{
		Route:       decision.Route,
		Explanation: decision.Explanation,
		LatencyMS:   time.Since(start).Milliseconds(),
	})
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "Trace store not configured", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	name := query.Get("name")
	limit := defaultGenerationLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := s.store.RecentGenerations(name, limit)
	if err != nil {
		s.logger.Error("Failed to read generations: %v", err)
		http.Error(w, "Failed to read generations", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []observability.GenerationRecord{}
	}
	s.writeJSON(w, records)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	name := query.Get("name")

	var since time.Time
	if raw := query.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid since parameter (use RFC3339)", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	entries := logx.GetRecentLogEntries(name, since)
	if entries == nil {
		entries = []logx.LogEntry{}
	}
	s.writeJSON(w, entries)
}

func (s *Server) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// StartServer starts the HTTP server on addr and shuts it down gracefully
// when ctx is cancelled. It does not block.
func (s *Server) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting dashboard server on %s", addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down dashboard server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()

	return nil
}
