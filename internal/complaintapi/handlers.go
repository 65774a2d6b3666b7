package complaintapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/redress/internal/authmw"
	"github.com/linnemanlabs/redress/internal/complaint"
)

func (a *API) identity(w http.ResponseWriter, r *http.Request) (*complaint.Identity, bool) {
	ident, ok := authmw.FromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return nil, false
	}
	return ident, true
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}

	var sub complaint.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	id, err := a.svc.Submit(r.Context(), ident, sub)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, map[string]string{
		"message":     "complaint submitted",
		"complaintId": id,
	})
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}

	items, err := a.svc.List(r.Context(), ident)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*complaint.Complaint{}
	}
	a.writeJSON(w, http.StatusOK, items)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("redress.complaint.id", id))

	c, err := a.svc.Get(r.Context(), ident, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("redress.complaint.status", string(c.Status)))
	a.writeJSON(w, http.StatusOK, c)
}

func (a *API) handleReassign(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req struct {
		Category complaint.Department `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	if err := a.svc.Reassign(r.Context(), ident, id, req.Category); err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"message":  "complaint reassigned",
		"category": req.Category,
	})
}

// dataURLPrefix matches the "data:image/...;base64," header some clients
// prepend to the proof payload.
var dataURLPrefix = regexp.MustCompile(`^data:[\w/+.-]+;base64,`)

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req struct {
		ProofData string `json:"proofData"`
		FileName  string `json:"fileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	encoded := dataURLPrefix.ReplaceAllString(req.ProofData, "")
	proof, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		http.Error(w, `{"error":"proofData must be base64-encoded"}`, http.StatusBadRequest)
		return
	}

	proofURL, err := a.svc.Resolve(r.Context(), ident, id, proof, req.FileName)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]string{
		"message":  "complaint marked as RESOLVED",
		"proofUrl": proofURL,
	})
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	ident, ok := a.identity(w, r)
	if !ok {
		return
	}

	if a.ai == nil {
		http.Error(w, `{"error":"ai provider not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Query       string `json:"query"`
		ComplaintID string `json:"complaintId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, `{"error":"query is required"}`, http.StatusBadRequest)
		return
	}

	// Complaint context goes through the access-checked read path so chat
	// can never leak a record the caller could not fetch directly.
	var contextJSON string
	if req.ComplaintID != "" {
		c, err := a.svc.Get(r.Context(), ident, req.ComplaintID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		raw, err := json.Marshal(c)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		contextJSON = string(raw)
	}

	answer, err := a.ai.Chat(r.Context(), req.Query, contextJSON)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
