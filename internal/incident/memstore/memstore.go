// Package memstore provides an in-memory implementation of incident.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/medic/internal/incident"
)

// Store holds incidents in memory. Suitable for dev/testing.
type Store struct {
	mu        sync.RWMutex
	incidents map[string]*incident.Incident
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{incidents: make(map[string]*incident.Incident)}
}

// Get retrieves an incident by its ID. Returns a deep copy.
func (s *Store) Get(_ context.Context, id string) (*incident.Incident, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, false, nil
	}
	return inc.Clone(), true, nil
}

// Put stores a deep copy of the incident.
func (s *Store) Put(_ context.Context, inc *incident.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[inc.ID] = inc.Clone()
	return nil
}
