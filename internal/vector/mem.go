package vector

import (
	"context"
	"sort"
	"sync"
)

type memEntry struct {
	vec []float32
	md  Metadata
}

// MemIndex is an in-memory Index. Suitable for dev/testing.
type MemIndex struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemIndex initializes a new in-memory index.
func NewMemIndex() *MemIndex {
	return &MemIndex{entries: make(map[string]memEntry)}
}

// Upsert stores a copy of the vector under id.
func (x *MemIndex) Upsert(_ context.Context, id string, vec []float32, md Metadata) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[id] = memEntry{vec: append([]float32(nil), vec...), md: md}
	return nil
}

// Query returns the topK entries by cosine similarity, best first.
func (x *MemIndex) Query(_ context.Context, vec []float32, topK int) ([]Match, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]Match, 0, len(x.entries))
	for id, e := range x.entries {
		matches = append(matches, Match{ID: id, Score: cosine(vec, e.vec), Metadata: e.md})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
