package prefs

import (
	"sync"
	"time"

	"github.com/mkravets/followup-reminder/pkg/db"
	"github.com/mkravets/followup-reminder/pkg/logger"
)

const DefaultCacheTTL = 5 * time.Minute

// Cache is an injectable read-through cache over Load. Writes go through
// Save, which invalidates the entry; stale reads inside the TTL are
// accepted elsewhere in the pipeline.
type Cache struct {
	mu      sync.Mutex
	entries map[int64]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	prefs     db.SchedulingPreferences
	expiresAt time.Time
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[int64]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the user's preferences, hitting the store on a miss or an
// expired entry. Lookups fail open: on a store error with no cached
// value, the built-in defaults are returned so callers keep working.
func (c *Cache) Get(userID int64) *db.SchedulingPreferences {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[userID]
	c.mu.Unlock()
	if ok && now.Before(entry.expiresAt) {
		prefs := entry.prefs
		return &prefs
	}

	prefs, err := Load(userID)
	if err != nil {
		logger.Error("preference lookup failed, using defaults", "user_id", userID, "error", err)
		fallback := defaultPreferences(userID)
		return &fallback
	}

	c.mu.Lock()
	c.entries[userID] = cacheEntry{prefs: *prefs, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return prefs
}

func (c *Cache) Invalidate(userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}
