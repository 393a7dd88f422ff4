package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lica/pkg/lica/internalerr"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	datasets map[string][]byte
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		datasets: make(map[string][]byte),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Put stores a copy of body under name.
func (s *Store) Put(ctx context.Context, name string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.datasets[name] = append([]byte(nil), body...)
	return nil
}

// Load returns a copy of the dataset stored under name.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", name, internalerr.ErrNotFound)
	}
	return append([]byte(nil), body...), nil
}

// Names lists stored datasets in name order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
