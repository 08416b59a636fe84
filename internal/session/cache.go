package session

import (
	"strings"
	"time"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

// CacheEntry is one remembered answer with the sources it cited.
type CacheEntry struct {
	Answer    string
	Sources   []domain.RetrievedSource
	Timestamp time.Time
}

// Cache is a capacity-bounded answer cache with TTL expiry and
// oldest-entry eviction. Like the session that owns it, it is written by a
// single caller and is not safe for concurrent use.
type Cache struct {
	ttl      time.Duration
	capacity int
	entries  map[string]CacheEntry
	now      func() time.Time
}

// NewCache creates a cache holding at most capacity entries for up to ttl.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 10
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]CacheEntry),
		now:      time.Now,
	}
}

// CacheKey composes the lookup key from the normalized query, the chat model
// and a credential identifier. The credential id namespaces entries per
// credential; it is plain composition, not a security boundary.
func CacheKey(query, model, credentialID string) string {
	return strings.ToLower(strings.TrimSpace(query)) + "\x1f" + model + "\x1f" + credentialID
}

// Get returns a live entry, dropping it on expiry.
func (c *Cache) Get(key string) (CacheEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	if c.now().Sub(e.Timestamp) > c.ttl {
		delete(c.entries, key)
		return CacheEntry{}, false
	}
	return e, true
}

// Put stores an entry, evicting the oldest one when over capacity.
func (c *Cache) Put(key string, entry CacheEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.now()
	}
	c.entries[key] = entry
	if len(c.entries) <= c.capacity {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.Timestamp.Before(oldest) {
			oldestKey = k
			oldest = e.Timestamp
		}
	}
	delete(c.entries, oldestKey)
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int { return len(c.entries) }
