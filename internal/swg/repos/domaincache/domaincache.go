// Package domaincache layers fast in-memory lookups over the durable domain
// cache: an LRU of hot domains, then a Bloom filter that short-circuits
// domains never classified before, then the store itself. The read pipeline
// keeps the dominant cache-hit path free of locks on the durable table for
// brand-new domains and sub-millisecond for known ones.
package domaincache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/calloway/swgate/internal/swg/domain"
)

// minFilterCapacity keeps the Bloom filter usefully sized for small or empty
// stores, leaving headroom before the first rebuild.
const minFilterCapacity = 4096

// filterFPRate is the target false-positive rate; a false positive only
// costs one extra store lookup.
const filterFPRate = 0.01

// Backing is the durable table the pipeline falls through to.
type Backing interface {
	Get(name string) (domain.CacheEntry, bool)
	Put(e domain.CacheEntry) error
	Entries() []domain.CacheEntry
}

// Repository composes the LRU, Bloom filter, and durable store into one
// lookup path, mirroring writes into every layer.
type Repository struct {
	store Backing
	lru   *lru.Cache[string, domain.Category]

	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	count    uint
	capacity uint
}

// New builds a Repository sized for lruSize hot domains, seeding the Bloom
// filter from the store's current contents.
func New(store Backing, lruSize int) (*Repository, error) {
	cache, err := lru.New[string, domain.Category](lruSize)
	if err != nil {
		return nil, err
	}
	r := &Repository{store: store, lru: cache}
	r.rebuildLocked()
	return r, nil
}

// Lookup resolves a normalized domain through lru → bloom → store.
// A negative Bloom answer is definitive: the domain has never been
// classified, so the durable table is not consulted at all.
func (r *Repository) Lookup(name string) (domain.Category, bool) {
	if cat, ok := r.lru.Get(name); ok {
		return cat, true
	}

	r.mu.RLock()
	maybe := r.filter.TestString(name)
	r.mu.RUnlock()
	if !maybe {
		return "", false
	}

	e, ok := r.store.Get(name)
	if !ok {
		// bloom false positive
		return "", false
	}
	r.lru.Add(name, e.Category)
	return e.Category, true
}

// Remember writes a classification through every layer. The durable write's
// error is surfaced to the caller, but the in-memory layers are populated
// regardless so the current process keeps benefiting from the result.
func (r *Repository) Remember(e domain.CacheEntry) error {
	err := r.store.Put(e)

	r.mu.Lock()
	r.filter.AddString(e.Domain)
	r.count++
	if r.count > r.capacity {
		r.rebuildLocked()
	}
	r.mu.Unlock()

	r.lru.Add(e.Domain, e.Category)
	return err
}

// Len returns the number of hot entries currently in the LRU layer.
func (r *Repository) Len() int {
	return r.lru.Len()
}

// rebuildLocked resizes the Bloom filter from the store's full contents.
// Callers must hold mu (or be running before the Repository is shared).
func (r *Repository) rebuildLocked() {
	entries := r.store.Entries()
	capacity := uint(len(entries))*2 + minFilterCapacity
	filter := bloom.NewWithEstimates(capacity, filterFPRate)
	for _, e := range entries {
		filter.AddString(e.Domain)
	}
	r.filter = filter
	r.count = uint(len(entries))
	r.capacity = capacity
}
