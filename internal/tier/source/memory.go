package source

import (
	"context"
	"sync"

	"tiergate/internal/tier/models"
)

// MemorySource serves tier configs from an in-process map. It backs local
// runs seeded from the config file and tests.
type MemorySource struct {
	mu      sync.RWMutex
	entries map[models.CacheKey]string
}

// NewMemorySource creates a source seeded with entries.
func NewMemorySource(entries map[models.CacheKey]string) *MemorySource {
	s := &MemorySource{entries: make(map[models.CacheKey]string, len(entries))}
	for k, v := range entries {
		s.entries[k] = v
	}
	return s
}

// Set stores or replaces the endpoint for a pair.
func (s *MemorySource) Set(partnerID, serviceName, endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[models.NewCacheKey(partnerID, serviceName)] = endpoint
}

// Delete removes the endpoint for a pair.
func (s *MemorySource) Delete(partnerID, serviceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, models.NewCacheKey(partnerID, serviceName))
}

// Lookup returns the stored endpoint or ErrNotFound.
func (s *MemorySource) Lookup(ctx context.Context, partnerID, serviceName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transportError(ctx, KindMemory, "lookup abandoned", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	endpoint, ok := s.entries[models.NewCacheKey(partnerID, serviceName)]
	if !ok {
		return "", ErrNotFound
	}
	return endpoint, nil
}

var (
	_ Source = (*HTTPSource)(nil)
	_ Source = (*PostgresSource)(nil)
	_ Source = (*RedisSource)(nil)
	_ Source = (*MemorySource)(nil)
)
