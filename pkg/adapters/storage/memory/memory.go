package memory

import (
	"context"
	"sync"

	"github.com/promptmotion/manimatic/internal/domain"
)

// StateStorage implements StateStorage in memory, for tests and single-node
// deployments without Redis.
type StateStorage struct {
	mu    sync.RWMutex
	items map[string]*domain.Generation
}

// NewStateStorage creates a new in-memory state storage
func NewStateStorage() *StateStorage {
	return &StateStorage{
		items: make(map[string]*domain.Generation),
	}
}

// Save persists a generation (ports.StateStorage interface)
func (s *StateStorage) Save(_ context.Context, gen *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *gen
	s.items[gen.ID] = &copied
	return nil
}

// Get retrieves a generation by ID (ports.StateStorage interface)
func (s *StateStorage) Get(_ context.Context, id string) (*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gen, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *gen
	return &copied, nil
}

// Delete removes a generation (ports.StateStorage interface)
func (s *StateStorage) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// List returns all stored generations (ports.StateStorage interface)
func (s *StateStorage) List(_ context.Context) ([]*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens := make([]*domain.Generation, 0, len(s.items))
	for _, gen := range s.items {
		copied := *gen
		gens = append(gens, &copied)
	}
	return gens, nil
}
