// Package server exposes the chat, document, and session HTTP API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/tome/internal/llm"
	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/rag/index"
	"github.com/haasonsaas/tome/internal/rag/retrieval"
	"github.com/haasonsaas/tome/internal/sessions"
)

// Config assembles a Server from its collaborators.
type Config struct {
	// SystemPrompt is the base system prompt for every chat turn.
	SystemPrompt string

	// DefaultModel is used when neither the request nor the session names
	// a model.
	DefaultModel string

	// StaticDir serves a frontend from disk when set.
	StaticDir string

	Generator llm.Generator
	Sessions  sessions.Store
	Indexer   *index.Indexer
	Retriever *retrieval.Builder

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Server is the HTTP API server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// New creates the server and registers all routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.Tracer == nil {
		cfg.Tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "tome"})
	}

	s := &Server{
		config:  cfg,
		mux:     http.NewServeMux(),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		tracer:  cfg.Tracer,
	}

	s.mux.HandleFunc("/api/chat", s.handleChat)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/docs", s.handleDocs)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		s.jsonError(w, http.StatusNotFound, "not found")
	})
	if cfg.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	} else {
		s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}

	return s
}

// ServeHTTP dispatches requests with panic recovery and latency metrics.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		if err := recover(); err != nil {
			s.logger.Error(r.Context(), "handler panic", "panic", err, "path", r.URL.Path)
			if !rec.wrote {
				s.jsonError(rec, http.StatusInternalServerError, "internal server error")
			}
		}
		if s.metrics != nil {
			s.metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		}
	}()

	s.mux.ServeHTTP(rec, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(context.Background(), "encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response status for metrics and keeps the
// Flusher available for streaming handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.wrote = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
