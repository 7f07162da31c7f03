package memory

import (
	"sync"
	"time"

	"github.com/custodia-labs/slack-archive/internal/core/ports/driven"
)

// Ensure HashCache implements the interface.
var _ driven.HashCache = (*HashCache)(nil)

type hashEntry struct {
	size    int64
	modTime time.Time
	hash    string
}

// HashCache is an in-memory implementation of driven.HashCache.
type HashCache struct {
	mu      sync.RWMutex
	entries map[string]hashEntry
}

// NewHashCache creates a new in-memory hash cache.
func NewHashCache() *HashCache {
	return &HashCache{
		entries: make(map[string]hashEntry),
	}
}

// Get returns the cached hash for path if size and modTime still match.
func (c *HashCache) Get(path string, size int64, modTime time.Time) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	if !ok || e.size != size || !e.modTime.Equal(modTime) {
		return "", false, nil
	}
	return e.hash, true, nil
}

// Put records the hash of path.
func (c *HashCache) Put(path string, size int64, modTime time.Time, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = hashEntry{size: size, modTime: modTime, hash: hash}
	return nil
}

// Close is a no-op.
func (c *HashCache) Close() error {
	return nil
}
