// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package chain

import "sync"

// Cache memoizes compiled chains by their raw text. Failed compilations are
// not cached.
type Cache struct {
	mu     sync.RWMutex
	chains map[string]*Chain
	hits   int
	misses int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{chains: make(map[string]*Chain)}
}

// Compile returns the cached chain for raw, compiling it on first use.
func (c *Cache) Compile(raw string) (*Chain, error) {
	c.mu.RLock()
	compiled, ok := c.chains[raw]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return compiled, nil
	}

	compiled, err := Compile(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
	if existing, ok := c.chains[raw]; ok {
		return existing, nil
	}
	c.chains[raw] = compiled
	return compiled, nil
}

// Len returns the number of cached chains.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chains)
}

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
