// Package api serves the health and metrics endpoints while a crawl runs.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the crawl progress reported by /health.
type Status struct {
	mu        sync.RWMutex
	runID     string
	startedAt time.Time
	stage     string
	records   int
}

func NewStatus(runID string, startedAt time.Time) *Status {
	return &Status{runID: runID, startedAt: startedAt, stage: "starting"}
}

func (s *Status) SetStage(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

func (s *Status) SetRecords(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = n
}

type HealthResponse struct {
	Status    string    `json:"status"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Stage     string    `json:"stage"`
	Records   int       `json:"records"`
}

func (s *Status) snapshot() HealthResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return HealthResponse{
		Status:    "ok",
		RunID:     s.runID,
		StartedAt: s.startedAt,
		Stage:     s.stage,
		Records:   s.records,
	}
}

type Options struct {
	AllowedOrigins []string
}

// NewRouter builds the chi router. /metrics is only mounted when a gatherer is given.
func NewRouter(status *Status, gatherer prometheus.Gatherer, opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, status.snapshot(), logger)
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
