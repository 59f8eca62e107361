// Package api maps the pipeline boundary onto HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"xreply/internal/browser"
	"xreply/internal/executor"
	"xreply/internal/metrics"
	"xreply/internal/pipeline"
	"xreply/internal/proposal"
	"xreply/internal/scraper"
	"xreply/internal/types"

	"go.uber.org/zap"
)

// Service is the subset of *pipeline.Service the API serves.
type Service interface {
	Search(ctx context.Context, req pipeline.SearchRequest) ([]types.Proposal, error)
	List(ctx context.Context) ([]types.Proposal, error)
	Get(ctx context.Context, id string) (types.Proposal, error)
	Update(ctx context.Context, id string, patch types.Patch) (types.Proposal, error)
	Delete(ctx context.Context, id string) error
	Execute(ctx context.Context, id string) (types.Proposal, error)
}

// Options toggles optional endpoints.
type Options struct {
	Metrics bool
}

type server struct {
	svc    Service
	logger *zap.Logger
}

// NewServer returns the HTTP handler with logging and CORS applied.
func NewServer(svc Service, logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/proposals", s.handleList)
	mux.HandleFunc("GET /api/proposals/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/proposals/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/proposals/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/proposals/{id}/execute", s.handleExecute)
	if opts.Metrics {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return chainMiddlewares(mux, withCORS, withLogging(logger))
}

// DTOs

type searchRequest struct {
	Query    string           `json:"query"`
	Limit    int              `json:"limit,omitempty"`
	Keywords []string         `json:"keywords,omitempty"`
	Mode     types.SearchMode `json:"mode,omitempty"`
}

type envelope struct {
	Success   bool             `json:"success"`
	Proposal  *types.Proposal  `json:"proposal,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// listEnvelope always carries the array, even when empty.
type listEnvelope struct {
	Success   bool             `json:"success"`
	Proposals []types.Proposal `json:"proposals"`
}

// Handlers

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "xreply",
		"endpoints": []string{
			"POST /api/search",
			"GET /api/proposals",
			"GET /api/proposals/{id}",
			"PATCH /api/proposals/{id}",
			"DELETE /api/proposals/{id}",
			"POST /api/proposals/{id}/execute",
			"GET /health",
		},
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// Absent keywords stay nil (configured set); an explicit [] decodes to an
	// empty slice (take anything).
	created, err := s.svc.Search(r.Context(), pipeline.SearchRequest{
		Query:    req.Query,
		Limit:    req.Limit,
		Keywords: req.Keywords,
		Mode:     req.Mode,
	})
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalsEnvelope(created))
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := s.svc.List(r.Context())
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalsEnvelope(all))
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch types.Patch
	if err := decodeJSON(r, &patch); err != nil {
		s.fail(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *server) handleExecute(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Proposal: &p})
}

// Helpers

func proposalsEnvelope(ps []types.Proposal) listEnvelope {
	if ps == nil {
		ps = []types.Proposal{}
	}
	return listEnvelope{Success: true, Proposals: ps}
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	var uiErr *executor.UIElementNotFoundError
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, proposal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, proposal.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, scraper.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, browser.ErrInitialization):
		return http.StatusServiceUnavailable
	case errors.As(err, &uiErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) error(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		if errors.Is(err, proposal.ErrStorage) {
			msg = "storage failure"
		}
	}
	s.fail(w, r, status, msg)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
