package session

import (
	"sync"
	"time"
)

// cache is a short-TTL in-memory side table for resolved sessions.
//
// It is purely a performance optimization and never a source of truth: every
// entry remembers the selector it was resolved under, so a token change is a
// miss even before explicit invalidation.
type cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	selector  string
	session   Context
	expiresAt time.Time
}

func newCache(ttl time.Duration) *cache {
	if ttl <= 0 {
		return nil
	}
	return &cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *cache) get(callerID string, selector string, now time.Time) (Context, bool) {
	if c == nil {
		return Context{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[callerID]
	c.mu.RUnlock()
	if !ok || entry.selector != selector || now.After(entry.expiresAt) {
		return Context{}, false
	}
	return entry.session, true
}

func (c *cache) put(callerID string, selector string, session Context, now time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries[callerID] = cacheEntry{
		selector:  selector,
		session:   session,
		expiresAt: now.Add(c.ttl),
	}
	c.mu.Unlock()
}

func (c *cache) invalidate(callerID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, callerID)
	c.mu.Unlock()
}
