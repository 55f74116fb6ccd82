package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Service is the business boundary for incident triage. It serializes turn
// processing per incident id, which is the whole concurrency contract the
// engine relies on: no two turns for the same incident ever run at once,
// while distinct incidents proceed in parallel.
type Service struct {
	store  Store
	engine *Engine
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new incident service.
func NewService(store Store, engine *Engine, logger log.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex owning the given incident id. Locks are never
// reaped; incident ids are low-cardinality enough that the map stays small
// over a process lifetime.
func (s *Service) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// Create starts a fresh incident and persists its greeting state.
func (s *Service) Create(ctx context.Context) (*Incident, error) {
	inc := New(ulid.Make().String(), time.Now())
	if err := s.store.Put(ctx, inc); err != nil {
		return nil, fmt.Errorf("persist new incident: %w", err)
	}
	s.logger.Info(ctx, "incident created", "incident_id", inc.ID)
	return inc, nil
}

// ProcessTurn handles one user message for the incident, creating the
// incident on first access.
func (s *Service) ProcessTurn(ctx context.Context, id, userText string) (*TurnResult, error) {
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()

	inc, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load incident %s: %w", id, err)
	}
	if !ok {
		inc = New(id, time.Now())
	}

	return s.engine.ProcessTurn(ctx, inc, userText)
}

// Get returns the current incident state, creating it on first access so a
// client can open a conversation by reading it.
func (s *Service) Get(ctx context.Context, id string) (*Incident, error) {
	m := s.lock(id)
	m.Lock()
	defer m.Unlock()

	inc, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load incident %s: %w", id, err)
	}
	if !ok {
		inc = New(id, time.Now())
		if err := s.store.Put(ctx, inc); err != nil {
			return nil, fmt.Errorf("persist new incident %s: %w", id, err)
		}
	}
	return inc, nil
}
