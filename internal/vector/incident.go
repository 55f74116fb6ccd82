package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnemanlabs/medic/internal/embedding"
	"github.com/linnemanlabs/medic/internal/incident"
)

// DefaultTopK is how many similar incidents a lookup returns.
const DefaultTopK = 3

// Indexer embeds diagnosed incidents and maintains the similarity index. It
// implements incident.VectorSink.
type Indexer struct {
	embedder embedding.Embedder
	index    Index
}

// NewIndexer creates an indexer over the given embedder and index.
func NewIndexer(embedder embedding.Embedder, index Index) *Indexer {
	return &Indexer{embedder: embedder, index: index}
}

// IndexIncident embeds the incident's evidence plus diagnosis and upserts it
// keyed by incident id.
func (ix *Indexer) IndexIncident(ctx context.Context, inc *incident.Incident) error {
	if inc.Diagnosis == nil {
		return fmt.Errorf("incident %s has no diagnosis", inc.ID)
	}

	vec, err := ix.embedder.Embed(ctx, indexText(inc))
	if err != nil {
		return fmt.Errorf("embed incident %s: %w", inc.ID, err)
	}

	md := Metadata{
		Service:   signalOrUnknown(inc.Signals, incident.SignalService),
		Severity:  string(inc.Diagnosis.Severity),
		Symptom:   signalOrUnknown(inc.Signals, incident.SignalSymptom),
		CreatedAt: inc.CreatedAt,
	}
	if err := ix.index.Upsert(ctx, inc.ID, vec, md); err != nil {
		return fmt.Errorf("upsert incident %s: %w", inc.ID, err)
	}
	return nil
}

// FindSimilar embeds the incident's current evidence and returns up to topK
// previously indexed incidents, excluding the incident itself.
func (ix *Indexer) FindSimilar(ctx context.Context, inc *incident.Incident, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := ix.embedder.Embed(ctx, queryText(inc))
	if err != nil {
		return nil, fmt.Errorf("embed query for %s: %w", inc.ID, err)
	}

	// over-fetch by one since the incident may match itself
	matches, err := ix.index.Query(ctx, vec, topK+1)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	similar := make([]Match, 0, topK)
	for _, m := range matches {
		if m.ID == inc.ID {
			continue
		}
		similar = append(similar, m)
		if len(similar) == topK {
			break
		}
	}
	return similar, nil
}

// indexText is the rich representation stored for a diagnosed incident.
func indexText(inc *incident.Incident) string {
	descriptions := make([]string, 0, len(inc.Diagnosis.Hypotheses))
	for _, h := range inc.Diagnosis.Hypotheses {
		descriptions = append(descriptions, h.Description)
	}
	return strings.Join([]string{
		"Service: " + signalOrUnknown(inc.Signals, incident.SignalService),
		"Symptom: " + signalOrUnknown(inc.Signals, incident.SignalSymptom),
		"Error: " + signalOrUnknown(inc.Signals, incident.SignalPrimaryError),
		"Scope: " + signalOrUnknown(inc.Signals, incident.SignalScope),
		"Severity: " + string(inc.Diagnosis.Severity),
		"Hypotheses: " + strings.Join(descriptions, ". "),
	}, "\n")
}

// queryText is the leaner representation used for lookups, so an incident
// mid-intake can still be matched.
func queryText(inc *incident.Incident) string {
	return strings.Join([]string{
		"Service: " + signalOrUnknown(inc.Signals, incident.SignalService),
		"Symptom: " + signalOrUnknown(inc.Signals, incident.SignalSymptom),
		"Error: " + signalOrUnknown(inc.Signals, incident.SignalPrimaryError),
	}, "\n")
}

func signalOrUnknown(s incident.Signals, key string) string {
	if v := s[key]; v != "" {
		return v
	}
	return "unknown"
}
