package persist

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store, used when no Redis address
// is configured and throughout the tests. TTLs are enforced lazily on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is swappable for TTL tests.
	now func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the entity stored under key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// Put stores an entity under key with an optional TTL.
func (s *MemoryStore) Put(_ context.Context, key string, entity []byte, ttl time.Duration) error {
	entry := memoryEntry{data: make([]byte, len(entity))}
	copy(entry.data, entity)
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes the entity under key, returning ErrNotFound if absent.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return nil
}

// Close implements Store; a MemoryStore holds no resources.
func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of live entries, for tests.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
