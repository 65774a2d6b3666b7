// Package complaintapi exposes the complaint lifecycle over HTTP.
package complaintapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/redress/internal/complaint"
	"github.com/linnemanlabs/redress/internal/llm/claude"
)

// ComplaintService defines the business operations complaintapi needs.
type ComplaintService interface {
	Submit(ctx context.Context, ident *complaint.Identity, sub complaint.Submission) (string, error)
	Get(ctx context.Context, ident *complaint.Identity, id string) (*complaint.Complaint, error)
	List(ctx context.Context, ident *complaint.Identity) ([]*complaint.Complaint, error)
	Reassign(ctx context.Context, ident *complaint.Identity, id string, category complaint.Department) error
	Resolve(ctx context.Context, ident *complaint.Identity, id string, proof []byte, fileName string) (string, error)
}

// Insighter answers free-text operator queries, optionally grounded in a
// complaint document.
type Insighter interface {
	Chat(ctx context.Context, query, contextJSON string) (string, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ComplaintService
	ai     Insighter // nil when no AI provider is configured
}

// New creates a new API handler.
func New(logger log.Logger, svc ComplaintService, ai Insighter) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("complaint service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		ai:     ai,
	}
}

// RegisterRoutes attaches API endpoints to the router. The router is
// expected to already carry the identity middleware.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/complaints", a.handleSubmit)
		r.Get("/complaints", a.handleList)
		r.Get("/complaints/{id}", a.handleGet)
		r.Post("/complaints/{id}/assign", a.handleReassign)
		r.Post("/complaints/{id}/resolve", a.handleResolve)
		r.Post("/chat", a.handleChat)
	})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy to HTTP statuses. Forbidden
// and NotFound stay distinct on purpose.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, complaint.ErrValidation):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	case errors.Is(err, complaint.ErrForbidden):
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	case errors.Is(err, complaint.ErrNotFound):
		http.Error(w, `{"error":"complaint not found"}`, http.StatusNotFound)
	case errors.Is(err, complaint.ErrConflict):
		http.Error(w, `{"error":"complaint was modified concurrently, retry"}`, http.StatusConflict)
	case errors.Is(err, claude.ErrAuthQuota):
		http.Error(w, `{"error":"ai provider rejected the request (auth/quota)"}`, http.StatusBadGateway)
	case errors.Is(err, complaint.ErrUpstream):
		a.logger.Error(r.Context(), err, "upstream failure")
		http.Error(w, `{"error":"upstream unavailable, retry"}`, http.StatusServiceUnavailable)
	default:
		a.logger.Error(r.Context(), err, "unhandled error")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
