// Package cache provides the in-memory result cache with TTL freshness for
// dashboard queries.
//
// The cache maps a query identity to its last successful result and fetch
// time. An entry is fresh while its age is below the TTL; a stale entry is
// kept as a fallback for failed refreshes rather than evicted, because the
// dashboard prefers showing last-good data flagged stale over blanking a
// panel. The key space is the fixed set of dashboard views, so no LRU or
// size-based eviction is needed; Prune removes entries for identities that
// no longer have any watcher. State is in-memory only and does not survive
// the process.
package cache
