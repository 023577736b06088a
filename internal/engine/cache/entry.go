package cache

import (
	"time"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// Entry is a single cached query result with freshness metadata.
// Entries are owned by the Store; callers must treat them as read-only.
type Entry struct {
	// Identity is the query this entry caches.
	Identity query.Identity

	// Result holds the rows returned by the last successful fetch.
	Result *warehouse.ResultSet

	// FetchedAt is the completion time of the fetch that produced Result.
	// It never decreases across updates for the same identity.
	FetchedAt time.Time

	// TTL is the freshness window for this entry.
	TTL time.Duration
}

// Fresh reports whether the entry is still fresh at the given instant.
// A stale entry remains usable as a fallback after a failed refresh; it is
// simply eligible for replacement.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// TimeUntilStale returns the remaining freshness window, or 0 if the entry
// is already stale.
func (e *Entry) TimeUntilStale(now time.Time) time.Duration {
	remaining := e.TTL - now.Sub(e.FetchedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
