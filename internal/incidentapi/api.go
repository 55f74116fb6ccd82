// Package incidentapi exposes the triage workflow over HTTP.
package incidentapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/medic/internal/history"
	"github.com/linnemanlabs/medic/internal/incident"
	"github.com/linnemanlabs/medic/internal/report"
	"github.com/linnemanlabs/medic/internal/vector"
)

// IncidentService defines the business operations incidentapi needs.
type IncidentService interface {
	Create(ctx context.Context) (*incident.Incident, error)
	ProcessTurn(ctx context.Context, id, userText string) (*incident.TurnResult, error)
	Get(ctx context.Context, id string) (*incident.Incident, error)
}

// SimilarityFinder looks up previously diagnosed incidents that resemble the
// given one.
type SimilarityFinder interface {
	FindSimilar(ctx context.Context, inc *incident.Incident, topK int) ([]vector.Match, error)
}

// API holds dependencies for HTTP handlers. similar, hist and reports are
// optional; their endpoints answer 503 when the capability is not wired.
type API struct {
	logger  log.Logger
	svc     IncidentService
	similar SimilarityFinder
	hist    history.Store
	reports report.Store
}

// New creates a new API handler.
func New(logger log.Logger, svc IncidentService, similar SimilarityFinder, hist history.Store, reports report.Store) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("incident service is required"))
	}
	return &API{
		logger:  logger,
		svc:     svc,
		similar: similar,
		hist:    hist,
		reports: reports,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/incidents", a.handleCreateIncident)
		r.Post("/incidents/{id}/message", a.handleMessage)
		r.Get("/incidents/{id}", a.handleGetIncident)
		r.Get("/incidents/{id}/similar", a.handleSimilar)
		r.Get("/incidents/{id}/template", a.handleTemplate)
		r.Post("/incidents/{id}/export", a.handleExport)
		r.Get("/reports/{key}", a.handleGetReport)
		r.Get("/history", a.handleHistory)
		r.Get("/templates", a.handleTemplates)
		r.Get("/analytics/stats", a.handleStats)
	})
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(ctx, err, "failed to encode response")
	}
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error, msg string, kv ...any) {
	a.logger.Error(r.Context(), err, msg, kv...)
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
