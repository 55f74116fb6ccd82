// Package vector provides the incident similarity index: embedding storage,
// cosine ranking, and the dispatch adapter that indexes diagnosed incidents.
package vector

import (
	"context"
	"math"
	"time"
)

// Metadata rides alongside each stored vector and comes back with matches.
type Metadata struct {
	Service   string    `json:"service"`
	Severity  string    `json:"severity"`
	Symptom   string    `json:"symptom"`
	CreatedAt time.Time `json:"createdAt"`
}

// Match is one similarity hit.
type Match struct {
	ID       string   `json:"incidentId"`
	Score    float64  `json:"similarity"`
	Metadata Metadata `json:"metadata"`
}

// Index stores embeddings keyed by incident id and ranks them by cosine
// similarity.
type Index interface {
	Upsert(ctx context.Context, id string, vec []float32, md Metadata) error
	Query(ctx context.Context, vec []float32, topK int) ([]Match, error)
}

// cosine returns the cosine similarity of two vectors, 0 for mismatched
// lengths or zero-norm inputs.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
