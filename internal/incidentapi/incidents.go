package incidentapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := a.svc.Create(r.Context())
	if err != nil {
		a.internalError(w, r, err, "failed to create incident")
		return
	}

	a.writeJSON(r.Context(), w, http.StatusCreated, map[string]any{
		"incidentId": inc.ID,
		"stage":      inc.Stage,
		"message":    inc.Conversation[0].Content,
	})
}

type messageRequest struct {
	Message string `json:"message"`
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medic.incident.id", id))

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	result, err := a.svc.ProcessTurn(r.Context(), id, req.Message)
	if err != nil {
		// Gateway and parse trouble degrade inside the engine; an error
		// here means the turn could not be persisted.
		a.internalError(w, r, err, "failed to process turn", "id", id)
		return
	}

	span.SetAttributes(attribute.String("medic.incident.stage", string(result.Stage)))
	a.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (a *API) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("medic.incident.id", id))

	inc, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get incident", "id", id)
		return
	}

	span.SetAttributes(attribute.String("medic.incident.stage", string(inc.Stage)))
	a.writeJSON(r.Context(), w, http.StatusOK, inc)
}
