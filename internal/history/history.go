// Package history keeps the durable record of completed incidents: what was
// diagnosed, the evidence, and the full conversation. It feeds the review
// endpoints and the post-incident reports.
package history

import (
	"context"
	"strings"
	"time"

	"github.com/linnemanlabs/medic/internal/incident"
)

// Default listing limits.
const (
	DefaultRecentLimit  = 10
	DefaultServiceLimit = 5
)

// Entry is one completed incident's history record.
type Entry struct {
	IncidentID   string              `json:"incidentId"`
	Service      string              `json:"service"`
	Severity     string              `json:"severity"`
	Symptom      string              `json:"symptom"`
	CreatedAt    time.Time           `json:"createdAt"`
	CompletedAt  time.Time           `json:"completedAt"`
	Resolution   string              `json:"resolution"`
	Signals      incident.Signals    `json:"signals"`
	Diagnosis    *incident.Diagnosis `json:"diagnosis"`
	Conversation []incident.Turn     `json:"conversation"`
}

// Store is the persistence interface for history entries.
type Store interface {
	Save(ctx context.Context, e *Entry) error
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
	ListByService(ctx context.Context, service string, limit int) ([]*Entry, error)
	Search(ctx context.Context, query string) ([]*Entry, error)
}

// Recorder turns diagnosed incidents into history entries. It implements
// incident.HistorySink.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// SaveIncident records a diagnosed incident.
func (r *Recorder) SaveIncident(ctx context.Context, inc *incident.Incident) error {
	d := inc.Diagnosis
	return r.store.Save(ctx, &Entry{
		IncidentID:   inc.ID,
		Service:      signalOrUnknown(inc.Signals, incident.SignalService),
		Severity:     string(d.Severity),
		Symptom:      signalOrUnknown(inc.Signals, incident.SignalSymptom),
		CreatedAt:    inc.CreatedAt,
		CompletedAt:  r.now(),
		Resolution:   strings.Join(d.NextSteps.Immediate, "; "),
		Signals:      inc.Signals,
		Diagnosis:    d,
		Conversation: inc.Conversation,
	})
}

// matchesQuery reports whether the entry's service, symptom or severity
// contains the lowercased query.
func matchesQuery(e *Entry, query string) bool {
	haystack := strings.ToLower(e.Service + " " + e.Symptom + " " + e.Severity)
	return strings.Contains(haystack, strings.ToLower(query))
}

func signalOrUnknown(s incident.Signals, key string) string {
	if v := s[key]; v != "" {
		return v
	}
	return "unknown"
}
