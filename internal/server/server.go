// Package server exposes the job handler over a small local HTTP API, for
// exercising the worker without the RunPod queue in front of it.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/afeedhshaji/ollama-worker/internal/handler"
	"github.com/google/uuid"
)

type JobHandler interface {
	Handle(ctx context.Context, job handler.Job) (handler.Result, error)
}

// ModelChecker reports whether a model is available on the inference server.
type ModelChecker interface {
	ModelExists(ctx context.Context, model string) (bool, error)
}

// Server is the local API server wrapping a job handler.
type Server struct {
	handler      JobHandler
	models       ModelChecker
	defaultModel string
	mux          *http.ServeMux
}

// New creates a Server. models may be nil, in which case /health skips the model check.
func New(h JobHandler, models ModelChecker, defaultModel string) *Server {
	s := &Server{
		handler:      h,
		models:       models,
		defaultModel: defaultModel,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /runsync", s.handleRunSync)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RunSyncResponse mirrors the RunPod /runsync reply.
type RunSyncResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output *handler.Result `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Model          string `json:"model"`
	ModelAvailable *bool  `json:"model_available,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	id := "sync-" + uuid.NewString()

	var job handler.Job
	if err := decodeJSON(r, &job); err != nil {
		writeJSON(w, http.StatusBadRequest, RunSyncResponse{ID: id, Status: "FAILED", Error: "invalid job: " + err.Error()})
		return
	}
	job.ID = id

	res, err := s.handler.Handle(r.Context(), job)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, handler.ErrMissingInput) {
			status = http.StatusBadRequest
		}
		slog.Warn("runsync failed", "job_id", id, "err", err)
		writeJSON(w, status, RunSyncResponse{ID: id, Status: "FAILED", Error: err.Error()})
		return
	}
	slog.Info("runsync completed", "job_id", id, "status", res.Status, "model", res.Model)
	writeJSON(w, http.StatusOK, RunSyncResponse{ID: id, Status: "COMPLETED", Output: &res})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Model: s.defaultModel}
	if s.models != nil {
		ok, err := s.models.ModelExists(r.Context(), s.defaultModel)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.ModelAvailable = &ok
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
