package cache

import (
	"context"
	"sync"
)

// MemoryStore is a Store that lives only as long as the process. It backs
// --no-cache runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	data  *Cache
	loads int
	saves int

	// LoadErr, when set, is returned by Load
	LoadErr error
}

// NewMemoryStore returns a store seeded with a copy of c (nil for empty)
func NewMemoryStore(c *Cache) *MemoryStore {
	if c == nil {
		c = New()
	}
	return &MemoryStore{data: c.Clone()}
}

func (s *MemoryStore) Load(ctx context.Context) (*Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.data.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.data = c.Clone()
	return nil
}

// Snapshot returns a copy of what was last saved
func (s *MemoryStore) Snapshot() *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Saves returns how many times Save was called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
