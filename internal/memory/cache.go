package memory

import (
	"sync"

	"github.com/vova111/skyrga/internal/storage"
)

// DomainCache holds domains resolved during one import batch for fast access
type DomainCache struct {
	byName map[string]*storage.Domain // domain -> record
	hits   int
	mu     sync.RWMutex
}

// NewDomainCache creates an empty cache
func NewDomainCache() *DomainCache {
	return &DomainCache{
		byName: make(map[string]*storage.Domain),
	}
}

// Get returns a copy of the cached domain, nil if absent
func (c *DomainCache) Get(name string) *storage.Domain {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.byName[name]
	if !ok {
		return nil
	}
	c.hits++

	// Return a copy to prevent external modifications
	dCopy := *d
	return &dCopy
}

// Put stores a domain under its name
func (c *DomainCache) Put(d *storage.Domain) {
	if d == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dCopy := *d
	c.byName[d.Domain] = &dCopy
}

// Forget drops a domain, used when the row that created it was rolled back
func (c *DomainCache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.byName, name)
}

// GetStats returns the number of cached domains and cache hits so far
func (c *DomainCache) GetStats() (size, hits int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byName), c.hits
}
