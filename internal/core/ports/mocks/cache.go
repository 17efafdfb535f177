package mocks

import (
	"context"
	"sync"
	"time"

	coreerrors "github.com/lueurxax/mapcomplete-digest-bot/internal/core/errors"
)

// Cache is a thread-safe in-memory implementation of ports.Cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	createdAt time.Time
}

// NewCache creates a new mock cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

// SetClock overrides the clock used for entry ages.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Get returns an entry younger than maxAge; maxAge <= 0 accepts any age.
func (c *Cache) Get(_ context.Context, namespace, key string, maxAge time.Duration) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[namespace+"/"+key]
	if !ok {
		return nil, coreerrors.ErrCacheNotFound
	}

	if maxAge > 0 && c.now().Sub(entry.createdAt) > maxAge {
		return nil, coreerrors.ErrCacheExpired
	}

	return entry.value, nil
}

// Put stores an entry.
func (c *Cache) Put(_ context.Context, namespace, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[namespace+"/"+key] = cacheEntry{value: value, createdAt: c.now()}

	return nil
}

// Delete removes an entry.
func (c *Cache) Delete(_ context.Context, namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, namespace+"/"+key)

	return nil
}
