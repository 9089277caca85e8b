package cache

import (
	"context"
	"sync"
)

// MemoryCache implements ReportCache in process memory. It backs tests
// and the watch command, which only needs entries for one run.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*Entry)}
}

// Open is a no-op for the in-memory cache
func (c *MemoryCache) Open() error { return nil }

// Close is a no-op for the in-memory cache
func (c *MemoryCache) Close() error { return nil }

// Get retrieves the entry for a root document path
func (c *MemoryCache) Get(ctx context.Context, rootPath string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[rootPath]
	if !ok {
		return nil, ErrEntryNotFound{Path: rootPath}
	}
	return entry, nil
}

// Put stores the entry for a root document path
func (c *MemoryCache) Put(ctx context.Context, rootPath string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rootPath] = entry
	return nil
}

// Delete removes the entry for a root document path
func (c *MemoryCache) Delete(ctx context.Context, rootPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, rootPath)
	return nil
}
