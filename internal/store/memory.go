package store

import (
	"context"
	"sync"

	"github.com/nebula-protocol/cluster-mint-engine/internal/model"
)

// MemoryStore implements ConfigStore in memory. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu  sync.RWMutex
	cfg *model.Config
}

// NewMemoryStore creates a new in-memory config store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, cfg *model.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg != nil {
		return ErrAlreadyConfigured
	}
	// Store a copy to avoid external mutation.
	copy := *cfg
	s.cfg = &copy
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*model.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg == nil {
		return nil, ErrNotConfigured
	}
	copy := *s.cfg
	return &copy, nil
}
