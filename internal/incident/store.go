package incident

import "context"

// Store is the persistence interface for incidents. Get must return a copy
// the caller may mutate freely; Put must not retain the passed incident.
type Store interface {
	Get(ctx context.Context, id string) (*Incident, bool, error)
	Put(ctx context.Context, inc *Incident) error
}
