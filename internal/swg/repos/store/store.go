// Package store owns the engine's durable state: the domain→category cache
// and the operator-editable category→policy table. Both tables live in JSON
// files replaced atomically on every mutation, so concurrent readers never
// observe a partially-written record and a crash mid-write leaves the
// previous consistent version intact.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/calloway/swgate/internal/swg/common/clock"
	"github.com/calloway/swgate/internal/swg/common/log"
	"github.com/calloway/swgate/internal/swg/domain"
)

// Store is the single owner of durable engine state. All mutation goes
// through its atomic operations; no other component holds a writable
// reference to the underlying files.
type Store struct {
	cachePath  string
	policyPath string
	logger     log.Logger
	clock      clock.Clock

	cacheMu sync.RWMutex
	entries map[string]domain.CacheEntry

	policyMu    sync.RWMutex
	policy      map[domain.Category]domain.Verdict
	policyStamp time.Time

	watch *policyWatcher
}

// Options configures a Store.
type Options struct {
	// CachePath is the durable domain→category cache file.
	CachePath string
	// PolicyPath is the operator-editable category→verdict file.
	PolicyPath string
	// RefreshInterval bounds policy staleness when file notifications are
	// missed. Zero disables the background watcher (tests).
	RefreshInterval time.Duration
	Logger          log.Logger
	Clock           clock.Clock
}

// New opens (or creates) the durable tables and, when RefreshInterval is set,
// starts the policy file watcher. An unreadable file degrades to an empty
// table: the engine must keep serving even when its durable medium is bad,
// so the failure is logged once here rather than propagated.
func New(opts Options) (*Store, error) {
	if opts.CachePath == "" || opts.PolicyPath == "" {
		return nil, fmt.Errorf("store requires cache and policy paths")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}

	s := &Store{
		cachePath:  opts.CachePath,
		policyPath: opts.PolicyPath,
		logger:     opts.Logger,
		clock:      opts.Clock,
		entries:    make(map[string]domain.CacheEntry),
		policy:     make(map[domain.Category]domain.Verdict),
	}

	s.loadCache()
	s.loadPolicy()

	if opts.RefreshInterval > 0 {
		w, err := newPolicyWatcher(s, opts.RefreshInterval)
		if err != nil {
			// watcher failure is not fatal: the ticker path inside it is the
			// fallback, and without either the table still serves reads
			s.logger.Warn(map[string]any{"error": err}, "Policy watcher unavailable, edits require restart")
		} else {
			s.watch = w
		}
	}

	return s, nil
}

// Close stops the policy watcher. Durable files need no teardown because
// every mutation leaves them complete.
func (s *Store) Close() error {
	if s.watch != nil {
		return s.watch.stop()
	}
	return nil
}

// Get returns the cache entry for a normalized domain, if present. This is
// the dominant request path and never touches the filesystem.
func (s *Store) Get(name string) (domain.CacheEntry, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	e, ok := s.entries[name]
	return e, ok
}

// Put stores a cache entry, replacing any previous entry for the domain
// (last writer wins), then persists the table. A persist failure is returned
// after bounded retries but the in-memory entry is kept: cache population is
// best-effort and must not undo a decision already made.
func (s *Store) Put(e domain.CacheEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.entries[e.Domain] = e
	if err := s.persistCacheLocked(); err != nil {
		s.logger.Error(map[string]any{
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreWriteFailure),
			"file":       s.cachePath,
		}, "Cache persist failed, in-memory entry retained")
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Entries returns a snapshot of all cache entries, used to seed the
// in-memory lookup layers at startup.
func (s *Store) Entries() []domain.CacheEntry {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	out := make([]domain.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of cached domains.
func (s *Store) Len() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return len(s.entries)
}

// Policy returns the verdict for a category from the current table view.
func (s *Store) Policy(category domain.Category) (domain.Verdict, bool) {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	v, ok := s.policy[category.Normalized()]
	return v, ok
}

// RegisterCategory adds a category with the given default verdict if it is
// not already present, persisting the table. Returns true when a new entry
// was registered. Existing entries are never overwritten here so operator
// edits always win.
func (s *Store) RegisterCategory(category domain.Category, def domain.Verdict) (bool, error) {
	category = category.Normalized()
	if category.IsZero() {
		return false, fmt.Errorf("cannot register empty category")
	}
	s.policyMu.Lock()
	defer s.policyMu.Unlock()
	if _, ok := s.policy[category]; ok {
		return false, nil
	}
	s.policy[category] = def
	if err := s.persistPolicyLocked(); err != nil {
		s.logger.Error(map[string]any{
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreWriteFailure),
			"file":       s.policyPath,
		}, "Policy persist failed, in-memory entry retained")
		return true, fmt.Errorf("persist policy: %w", err)
	}
	return true, nil
}

// SetPolicy sets a category verdict unconditionally (last writer wins) and
// persists the table.
func (s *Store) SetPolicy(category domain.Category, v domain.Verdict) error {
	category = category.Normalized()
	if category.IsZero() {
		return fmt.Errorf("cannot set policy for empty category")
	}
	s.policyMu.Lock()
	defer s.policyMu.Unlock()
	s.policy[category] = v
	if err := s.persistPolicyLocked(); err != nil {
		return fmt.Errorf("persist policy: %w", err)
	}
	return nil
}

// ListPolicy returns a copy of the current policy table.
func (s *Store) ListPolicy() map[domain.Category]domain.Verdict {
	s.policyMu.RLock()
	defer s.policyMu.RUnlock()
	out := make(map[domain.Category]domain.Verdict, len(s.policy))
	for c, v := range s.policy {
		out[c] = v
	}
	return out
}

// loadCache reads the durable cache file into memory. Missing files are
// created empty (first run); unreadable or corrupt files degrade to an empty
// table with a single startup log line.
func (s *Store) loadCache() {
	raw, err := os.ReadFile(s.cachePath)
	if os.IsNotExist(err) {
		if werr := s.persistCacheLocked(); werr != nil {
			s.logger.Warn(map[string]any{"error": werr, "file": s.cachePath}, "Could not create cache file")
		}
		s.logger.Info(map[string]any{"file": s.cachePath}, "Cache file not found, created empty cache")
		return
	}
	if err != nil {
		s.logger.Error(map[string]any{
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreReadFailure),
			"file":       s.cachePath,
		}, "Cache file unreadable, starting with empty cache")
		return
	}

	var table map[string]domain.CacheEntry
	if err := json.Unmarshal(raw, &table); err != nil {
		s.logger.Error(map[string]any{
			"error":      err,
			"error_kind": string(domain.ErrorKindStoreReadFailure),
			"file":       s.cachePath,
		}, "Cache file corrupt, starting with empty cache")
		return
	}
	for name, e := range table {
		e.Domain = name
		s.entries[name] = e
	}
	s.logger.Info(map[string]any{"file": s.cachePath, "domains": len(s.entries)}, "Domain cache loaded")
}

// persistCacheLocked writes the cache table atomically. Caller holds cacheMu.
func (s *Store) persistCacheLocked() error {
	table := make(map[string]domain.CacheEntry, len(s.entries))
	for name, e := range s.entries {
		table[name] = e
	}
	raw, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.cachePath, raw)
}

// persistPolicyLocked writes the policy table atomically. Caller holds policyMu.
func (s *Store) persistPolicyLocked() error {
	table := make(map[string]string, len(s.policy))
	for c, v := range s.policy {
		table[string(c)] = v.String()
	}
	raw, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.policyPath, raw); err != nil {
		return err
	}
	if st, err := os.Stat(s.policyPath); err == nil {
		s.policyStamp = st.ModTime()
	}
	return nil
}
