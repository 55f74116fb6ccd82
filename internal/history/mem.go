package history

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory history Store. Suitable for dev/testing.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemStore initializes a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*Entry)}
}

// Save stores a copy of the entry keyed by incident id.
func (s *MemStore) Save(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.IncidentID] = &cp
	return nil
}

// ListRecent returns up to limit entries, most recently completed first.
func (s *MemStore) ListRecent(_ context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return truncate(s.sorted(func(*Entry) bool { return true }), limit), nil
}

// ListByService returns up to limit entries for one service, most recent first.
func (s *MemStore) ListByService(_ context.Context, service string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultServiceLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return truncate(s.sorted(func(e *Entry) bool { return e.Service == service }), limit), nil
}

// Search returns entries whose service, symptom or severity matches query,
// most recent first.
func (s *MemStore) Search(_ context.Context, query string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(e *Entry) bool { return matchesQuery(e, query) }), nil
}

func (s *MemStore) sorted(keep func(*Entry) bool) []*Entry {
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out
}

func truncate(entries []*Entry, limit int) []*Entry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
