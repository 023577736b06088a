package panel

import (
	"time"

	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// Status is the lifecycle state of one dashboard region.
type Status int

const (
	// StatusIdle means the region has no data and no request outstanding.
	StatusIdle Status = iota

	// StatusLoading means at least one of the region's queries is unsettled.
	StatusLoading

	// StatusReady means the region has data to render.
	StatusReady

	// StatusFailed means a required query failed terminally.
	StatusFailed
)

// String returns the status name for logs and tests.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// QueryResult is the per-identity slice of a region's state.
type QueryResult struct {
	// Result holds the rows, possibly stale.
	Result *warehouse.ResultSet

	// Err is the settled failure, nil on success.
	Err error

	// Stale marks Result as last-good fallback data.
	Stale bool

	// FetchedAt is when the data was fetched.
	FetchedAt time.Time
}

// RegionState is the reactive value a region renders from.
// It reflects the most recently settled notifications for the region's
// identities; renderers receive it on change and never poll.
type RegionState struct {
	// Region is the subscribing region's identifier.
	Region string

	// Status summarizes the region's lifecycle.
	Status Status

	// Results holds the settled per-identity outcomes so far. During
	// loading it already contains whichever identities have resolved,
	// enabling progressive rendering.
	Results map[query.Identity]QueryResult

	// Partial is set when the region renders with only a subset of its
	// identities because the rest failed (partial-results regions only).
	Partial bool

	// Err is the first terminal failure that determined a Failed status,
	// or the representative error on a partial render.
	Err error
}

// Settled returns how many of the region's identities have settled.
func (s RegionState) Settled() int {
	return len(s.Results)
}

// HasData reports whether id has resolved with rows available to render.
func (s RegionState) HasData(id query.Identity) bool {
	r, ok := s.Results[id]
	return ok && r.Result != nil
}
