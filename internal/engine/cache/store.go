package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// Common cache errors.
var (
	ErrNotFound = errors.New("cache entry not found")
	ErrDisabled = errors.New("cache is disabled")
)

// Store is an in-memory result cache keyed by query identity.
// The key space is the small, fixed set of dashboard views, so there is no
// eviction policy beyond TTL staleness; Prune bounds growth for identities
// no panel watches anymore. Thread-safe for concurrent access.
type Store struct {
	mu         sync.RWMutex
	entries    map[query.Identity]*Entry
	enabled    bool
	defaultTTL time.Duration

	// now is the clock, injectable by tests.
	now func() time.Time
}

// NewStore creates a result cache.
// defaultTTL applies to entries stored without a per-identity override.
func NewStore(enabled bool, defaultTTL time.Duration) *Store {
	return &Store{
		entries:    map[query.Identity]*Entry{},
		enabled:    enabled,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get retrieves the entry for an identity, fresh or stale.
// Stale entries are returned so callers can fall back to last-good data
// after a failed refresh; freshness is the caller's check via Entry.Fresh.
// Returns ErrDisabled when caching is off and ErrNotFound on a miss.
func (s *Store) Get(id query.Identity) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// GetFresh retrieves the entry for an identity only if it is still fresh.
func (s *Store) GetFresh(id query.Identity) (*Entry, error) {
	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !entry.Fresh(s.now()) {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Put stores a result for an identity, stamping FetchedAt with the current
// time. ttl of 0 means the store default. FetchedAt is monotonically
// non-decreasing per identity: a put never rewinds an entry's fetch time.
// Returns the stored (or retained) entry; Put on a disabled store is a no-op
// returning nil.
func (s *Store) Put(id query.Identity, result *warehouse.ResultSet, ttl time.Duration) *Entry {
	if !s.enabled {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fetchedAt := s.now()
	if existing, ok := s.entries[id]; ok && existing.FetchedAt.After(fetchedAt) {
		return existing
	}

	entry := &Entry{
		Identity:  id,
		Result:    result,
		FetchedAt: fetchedAt,
		TTL:       ttl,
	}
	s.entries[id] = entry
	return entry
}

// Invalidate removes the entry for an identity. Idempotent.
func (s *Store) Invalidate(id query.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// InvalidateAll removes every entry.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[query.Identity]*Entry{}
}

// Prune drops entries for identities not in the active set, bounding memory
// for queries no panel references anymore. Returns the number of entries
// removed.
func (s *Store) Prune(active map[query.Identity]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id := range s.entries {
		if _, ok := active[id]; !ok {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries, stale ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Enabled reports whether caching is active.
func (s *Store) Enabled() bool {
	return s.enabled
}

// DefaultTTL returns the store's default freshness window.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}
