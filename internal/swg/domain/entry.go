package domain

import (
	"fmt"
	"time"
)

// CacheEntry records a single domain to category mapping.
//
// Invariants:
//   - at most one entry exists per normalized domain
//   - entries are replaced whole, never partially updated
//   - the last successful classification wins
//
// Entries are never expired by the engine; an operator clears the cache file
// to invalidate. ObservedAt is recorded so a TTL can be layered on later
// without a schema change.
type CacheEntry struct {
	Domain     string    `json:"-"`
	Category   Category  `json:"category"`
	ObservedAt time.Time `json:"observedAt"`
}

// NewCacheEntry constructs a CacheEntry and validates its fields.
func NewCacheEntry(name string, category Category, observedAt time.Time) (CacheEntry, error) {
	e := CacheEntry{
		Domain:     name,
		Category:   category.Normalized(),
		ObservedAt: observedAt,
	}
	if err := e.Validate(); err != nil {
		return CacheEntry{}, err
	}
	return e, nil
}

// Validate checks the CacheEntry for required fields.
func (e CacheEntry) Validate() error {
	if e.Domain == "" {
		return fmt.Errorf("cache entry domain must not be empty")
	}
	if e.Category.IsZero() {
		return fmt.Errorf("cache entry category must not be empty")
	}
	if e.ObservedAt.IsZero() {
		return fmt.Errorf("cache entry observedAt must be set")
	}
	return nil
}
