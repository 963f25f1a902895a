// Package presets supplies preset raw sources to the resolution engine. The
// engine only ever reads a store; ownership, mutation, and cache
// invalidation stay on this side of the boundary.
package presets

import (
	"sort"
	"sync"
)

// Store is the read contract the resolver consumes: name → raw source.
type Store interface {
	Lookup(name string) (string, bool)
}

// MemoryStore is a mutable, concurrency-safe in-memory store.
type MemoryStore struct {
	mu      sync.RWMutex
	sources map[string]string
}

// NewMemoryStore copies sources into a fresh store, so later mutation of the
// caller's map never leaks in.
func NewMemoryStore(sources map[string]string) *MemoryStore {
	copied := make(map[string]string, len(sources))
	for name, raw := range sources {
		copied[name] = raw
	}
	return &MemoryStore{sources: copied}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.sources[name]
	return raw, ok
}

// Set registers or replaces a preset source.
func (s *MemoryStore) Set(name, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = raw
}

// Delete removes a preset source. Removing an unknown name is a no-op.
func (s *MemoryStore) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, name)
}

// Names returns the registered preset names in sorted order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sources))
	for name := range s.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
