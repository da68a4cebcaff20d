package cart

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for local development and tests.
// Carts never expire; a restart loses them, which is acceptable for both uses.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return &Cart{}, nil
	}

	// Copy so callers cannot mutate the stored cart without Save.
	cp := Cart{Items: make([]LineItem, len(c.Items))}
	copy(cp.Items, c.Items)
	return &cp, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := Cart{Items: make([]LineItem, len(c.Items))}
	copy(cp.Items, c.Items)
	s.carts[sessionID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}
