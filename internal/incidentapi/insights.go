package incidentapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/medic/internal/history"
	"github.com/linnemanlabs/medic/internal/report"
	"github.com/linnemanlabs/medic/internal/runbook"
	"github.com/linnemanlabs/medic/internal/vector"
)

func (a *API) handleSimilar(w http.ResponseWriter, r *http.Request) {
	if a.similar == nil {
		http.Error(w, `{"error":"similarity search not configured"}`, http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")

	inc, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get incident", "id", id)
		return
	}

	topK, _ := strconv.Atoi(r.URL.Query().Get("topK"))
	matches, err := a.similar.FindSimilar(r.Context(), inc, topK)
	if err != nil {
		a.internalError(w, r, err, "failed to find similar incidents", "id", id)
		return
	}
	if matches == nil {
		matches = []vector.Match{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"incidentId": id,
		"similar":    matches,
	})
}

func (a *API) handleTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inc, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get incident", "id", id)
		return
	}

	tpl, ok := runbook.Match(inc.Signals)
	if !ok {
		http.Error(w, `{"error":"no matching template"}`, http.StatusNotFound)
		return
	}
	a.writeJSON(r.Context(), w, http.StatusOK, tpl)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if a.reports == nil {
		http.Error(w, `{"error":"report export not configured"}`, http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")

	inc, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.internalError(w, r, err, "failed to get incident", "id", id)
		return
	}
	if inc.Diagnosis == nil {
		http.Error(w, `{"error":"incident has no diagnosis yet"}`, http.StatusBadRequest)
		return
	}

	markdown, err := report.Render(inc)
	if err != nil {
		a.internalError(w, r, err, "failed to render report", "id", id)
		return
	}
	key, err := a.reports.Save(r.Context(), id, markdown)
	if err != nil {
		a.internalError(w, r, err, "failed to save report", "id", id)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"key":      key,
		"markdown": markdown,
		"url":      "/api/v1/reports/" + key,
	})
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if a.reports == nil {
		http.Error(w, `{"error":"report export not configured"}`, http.StatusServiceUnavailable)
		return
	}
	key := chi.URLParam(r, "key")

	markdown, err := a.reports.Load(r.Context(), key)
	if err != nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(markdown))
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.hist == nil {
		http.Error(w, `{"error":"history not configured"}`, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		entries []*history.Entry
		err     error
	)
	switch {
	case q.Get("query") != "":
		entries, err = a.hist.Search(r.Context(), q.Get("query"))
	case q.Get("service") != "":
		entries, err = a.hist.ListByService(r.Context(), q.Get("service"), limit)
	default:
		if limit <= 0 {
			limit = 20
		}
		entries, err = a.hist.ListRecent(r.Context(), limit)
	}
	if err != nil {
		a.internalError(w, r, err, "failed to list history")
		return
	}
	if entries == nil {
		entries = []*history.Entry{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"incidents": entries,
		"count":     len(entries),
	})
}

func (a *API) handleTemplates(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"templates": runbook.All(),
	})
}

// statsWindow bounds how much history feeds the aggregate stats.
const statsWindow = 100

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.hist == nil {
		http.Error(w, `{"error":"history not configured"}`, http.StatusServiceUnavailable)
		return
	}

	entries, err := a.hist.ListRecent(r.Context(), statsWindow)
	if err != nil {
		a.internalError(w, r, err, "failed to list history for stats")
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, history.Summarize(entries))
}
