package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// RunController starts, cancels and reports on catalog runs.
type RunController interface {
	Start(ctx context.Context, req domain.RunRequest) (string, error)
	Cancel() bool
	Status() domain.Progress
}

// Server exposes the run API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	runs       RunController
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /runs and /status routes.
func NewServer(addr string, ready ReadinessChecker, runs RunController, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runs:   runs,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /runs", s.handleStartRun)
	mux.HandleFunc("DELETE /runs/current", s.handleCancelRun)
	mux.HandleFunc("GET /status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// runRequest is the POST /runs body: the query fields plus an optional
// catalog base name.
type runRequest struct {
	domain.QueryInput
	Name string `json:"name,omitempty"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if body.Name != "" && (filepath.Base(body.Name) != body.Name || body.Name == "." || body.Name == "..") {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "name must be a plain file name"})
		return
	}

	spec, err := body.Spec()
	if err != nil {
		var specErr *domain.InvalidSpecError
		if errors.As(err, &specErr) {
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  specErr.Error(),
				"field":  specErr.Field,
				"reason": specErr.Reason,
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	runID, err := s.runs.Start(r.Context(), domain.RunRequest{Spec: spec, Name: body.Name})
	if errors.Is(err, domain.ErrRunInProgress) {
		sharedobs.WriteJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("start run failed", "error", err)
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info("run accepted", "run_id", runID, "query", spec.String())
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"run_id": runID, "status": "started"})
}

func (s *Server) handleCancelRun(w http.ResponseWriter, _ *http.Request) {
	if !s.runs.Cancel() {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "no run in progress"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.runs.Status())
}
