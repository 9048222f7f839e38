// Package cache memoizes ranked results per query so repeated searches
// within a caller-chosen freshness window skip the scrape entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/use-agent/pricescope/models"
)

// entry holds a cached result with its creation timestamp.
type entry struct {
	result    *models.RankedResult
	createdAt time.Time
}

// Cache is an expiring LRU of ranked results. Safe for concurrent use.
type Cache struct {
	store *expirable.LRU[string, *entry]
}

// New creates a Cache holding at most maxEntries results, each evicted
// after ttl regardless of later lookups.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		store: expirable.NewLRU[string, *entry](maxEntries, nil, ttl),
	}
}

// Key generates a cache key from the query and the selected sources.
func Key(query string, sources []models.SourceID) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	for _, s := range sources {
		h.Write([]byte("|"))
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result if it exists and is younger than maxAge.
// maxAge is in milliseconds. If maxAge <= 0, no cache lookup is performed.
// Returns the result and whether it was a cache hit.
func (c *Cache) Get(key string, maxAgeMs int) (*models.RankedResult, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}
	e, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}
	return e.result, true
}

// Set stores a result in the cache.
func (c *Cache) Set(key string, result *models.RankedResult) {
	c.store.Add(key, &entry{result: result, createdAt: time.Now()})
}
