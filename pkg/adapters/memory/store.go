package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/playground/pkg/domain"
)

// Store implements ports.PlaygroundStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Playground
	mu   sync.RWMutex
}

// NewStore creates a new in-memory playground store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Playground),
	}
}

// Save stores a deep copy of the playground, similar to serialization.
func (s *Store) Save(ctx context.Context, p *domain.Playground) error {
	copied := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.ID] = copied
	return nil
}

// Load returns a copy so callers can't mutate stored playgrounds.
func (s *Store) Load(ctx context.Context, id string) (*domain.Playground, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok {
		return nil, domain.ErrPlaygroundNotFound
	}
	ret := p.Clone()
	return &ret, nil
}

// Delete removes the playground.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored playground IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
