// Package api exposes the HTTP interface for the pipeline service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contentops/contentpipe/internal/config"
	"github.com/contentops/contentpipe/internal/metrics"
	"github.com/contentops/contentpipe/internal/pipeline"
)

// Runner triggers pipeline phases on demand.
type Runner interface {
	ScrapeSources(ctx context.Context) (pipeline.RunSummary, error)
	SelectAndDispatch(ctx context.Context, maxItems int, minRelevance float64) (pipeline.RunSummary, error)
	RunAll(ctx context.Context) (pipeline.RunSummary, error)
}

// Server wires HTTP handlers to the orchestrator and job store.
type Server struct {
	router   chi.Router
	runner   Runner
	jobs     pipeline.JobStore
	workflow pipeline.WorkflowClient
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runner Runner,
	jobs pipeline.JobStore,
	workflow pipeline.WorkflowClient,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		runner:   runner,
		jobs:     jobs,
		workflow: workflow,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(5 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/runs", func(r chi.Router) {
			r.Post("/scrape", s.runScrape)
			r.Post("/dispatch", s.runDispatch)
			r.Post("/full", s.runFull)
		})
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Stores are checked at startup; nothing to probe per request yet.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) runScrape(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.ScrapeSources(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// dispatchRunRequest optionally overrides the configured batch size and
// relevance floor for a single run.
type dispatchRunRequest struct {
	MaxItems     *int     `json:"max_items"`
	MinRelevance *float64 `json:"min_relevance"`
}

func (s *Server) runDispatch(w http.ResponseWriter, r *http.Request) {
	maxItems := s.cfg.Selection.MaxItemsPerRun
	minRelevance := s.cfg.Selection.MinRelevance

	if r.Body != nil && r.ContentLength != 0 {
		var req dispatchRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if req.MaxItems != nil {
			if *req.MaxItems <= 0 {
				writeError(w, http.StatusBadRequest, "max_items must be > 0")
				return
			}
			maxItems = *req.MaxItems
		}
		if req.MinRelevance != nil {
			if *req.MinRelevance < 0 || *req.MinRelevance > 1 {
				writeError(w, http.StatusBadRequest, "min_relevance must be within [0,1]")
				return
			}
			minRelevance = *req.MinRelevance
		}
	}

	summary, err := s.runner.SelectAndDispatch(r.Context(), maxItems, minRelevance)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) runFull(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.RunAll(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "job_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}

	resp := map[string]any{"job": job}
	if job.ExecutionID != "" && s.workflow != nil {
		status, err := s.workflow.Status(r.Context(), job.ExecutionID)
		if err != nil {
			s.logger.Warn("platform status lookup failed",
				zap.String("execution_id", job.ExecutionID),
				zap.Error(err),
			)
		} else {
			resp["platform_status"] = status
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeRunError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = http.StatusRequestTimeout
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
