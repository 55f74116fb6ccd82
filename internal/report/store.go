package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Store persists rendered reports by key.
type Store interface {
	// Save writes the markdown under a new key and returns that key.
	Save(ctx context.Context, incidentID, markdown string) (string, error)
	// Load returns the markdown stored under key.
	Load(ctx context.Context, key string) (string, error)
}

// FSStore writes reports as files under a base directory. Keys are
// "<incidentID>-<ulid>.md" so repeated exports never overwrite each other.
type FSStore struct {
	dir string
}

// NewFSStore creates the base directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Save(_ context.Context, incidentID, markdown string) (string, error) {
	key := fmt.Sprintf("%s-%s.md", incidentID, ulid.Make().String())
	if err := os.WriteFile(filepath.Join(s.dir, key), []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", key, err)
	}
	return key, nil
}

func (s *FSStore) Load(_ context.Context, key string) (string, error) {
	// Keys are server-generated but reject traversal anyway.
	if key != filepath.Base(key) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid report key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("read report %s: %w", key, err)
	}
	return string(data), nil
}
