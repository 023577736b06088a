package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/membercare/memberboard/internal/engine"
	"github.com/membercare/memberboard/internal/query"
)

// OnChange receives the region's state whenever it changes.
// Callbacks run on the goroutine that settled the triggering query and must
// not block.
type OnChange func(RegionState)

// Option configures one region subscription.
type Option func(*region)

// WithPartialResults lets the region render with whichever of its queries
// succeeded, flagged Partial, instead of failing the whole region when one
// query fails.
func WithPartialResults() Option {
	return func(r *region) { r.partial = true }
}

// Registry binds dashboard regions to the queries they depend on and keeps
// an independent reactive state per region. A region becomes Ready the
// moment its own queries resolve; it never waits on, and is never failed
// by, a sibling region's queries.
type Registry struct {
	coord  *engine.Coordinator
	logger zerolog.Logger

	mu      sync.Mutex
	regions map[string]*region
}

// NewRegistry creates a registry over the given coordinator.
func NewRegistry(coord *engine.Coordinator, logger zerolog.Logger) *Registry {
	return &Registry{
		coord:   coord,
		logger:  logger,
		regions: map[string]*region{},
	}
}

// Subscription is a handle to one region's subscription.
type Subscription struct {
	region *region
	cancel func()
}

// State returns the region's current state snapshot.
func (s *Subscription) State() RegionState {
	return s.region.snapshot()
}

// Cancel detaches the region. In-flight requests for its queries are not
// cancelled; identities shared with other regions keep their subscribers,
// and even unshared results are still written to the cache when they land.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe binds regionID to the given query identities.
// onChange fires immediately with the initial Loading state and then on
// every state change. Each identity is requested right away; fresh cached
// identities resolve synchronously before Subscribe returns.
func (r *Registry) Subscribe(
	regionID string,
	ids []query.Identity,
	onChange OnChange,
	opts ...Option,
) (*Subscription, error) {
	if regionID == "" {
		return nil, errors.New("region ID cannot be empty")
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("region %q must subscribe to at least one query", regionID)
	}

	reg := &region{
		id:         regionID,
		identities: append([]query.Identity(nil), ids...),
		onChange:   onChange,
		outcomes:   map[query.Identity]engine.Outcome{},
	}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	if _, exists := r.regions[regionID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("region %q is already subscribed", regionID)
	}
	r.regions[regionID] = reg
	r.mu.Unlock()

	// Watch before requesting so no settle can slip between the two.
	cancels := make([]func(), 0, len(ids))
	for _, id := range ids {
		cancels = append(cancels, r.coord.Watch(id, reg.apply))
	}

	reg.emitInitial()

	for _, id := range ids {
		if out := r.fetchIfFresh(id); out != nil {
			reg.apply(*out)
			continue
		}
		r.coord.Request(id)
	}

	r.logger.Debug().
		Str("region", regionID).
		Int("queries", len(ids)).
		Bool("partial_results", reg.partial).
		Msg("region subscribed")

	cancel := func() {
		reg.close()
		for _, c := range cancels {
			c()
		}
		r.mu.Lock()
		delete(r.regions, regionID)
		r.mu.Unlock()
		r.logger.Debug().Str("region", regionID).Msg("region unsubscribed")
	}

	return &Subscription{region: reg, cancel: cancel}, nil
}

// Regions returns the IDs of all subscribed regions.
func (r *Registry) Regions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.regions))
	for id := range r.regions {
		out = append(out, id)
	}
	return out
}

// fetchIfFresh resolves an identity synchronously when the cache can answer
// without a network call, so freshly cached panels render immediately on
// subscribe. It returns nil on a cache miss.
func (r *Registry) fetchIfFresh(id query.Identity) *engine.Outcome {
	out := r.coord.Fetch(cachedOnlyContext(), id)
	if out.OK() && out.FromCache {
		return &out
	}
	return nil
}

// cachedOnlyContext is an already-cancelled context: Fetch serves a fresh
// cache hit synchronously and otherwise returns a cancelled outcome without
// detaching the flight it started.
func cachedOnlyContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// region tracks the settled outcomes for one subscribed region.
type region struct {
	id         string
	identities []query.Identity
	partial    bool
	onChange   OnChange

	mu       sync.Mutex
	outcomes map[query.Identity]engine.Outcome
	closed   bool
}

// apply folds one settled outcome into the region state and notifies the
// subscriber when the state changed.
func (reg *region) apply(out engine.Outcome) {
	reg.mu.Lock()
	if reg.closed || !reg.depends(out.Identity) {
		reg.mu.Unlock()
		return
	}
	if prev, ok := reg.outcomes[out.Identity]; ok && sameSettle(prev, out) {
		reg.mu.Unlock()
		return
	}
	reg.outcomes[out.Identity] = out
	snap := reg.snapshotLocked()
	cb := reg.onChange
	reg.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// emitInitial delivers the starting Loading state.
func (reg *region) emitInitial() {
	reg.mu.Lock()
	snap := reg.snapshotLocked()
	cb := reg.onChange
	reg.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

func (reg *region) close() {
	reg.mu.Lock()
	reg.closed = true
	reg.mu.Unlock()
}

func (reg *region) depends(id query.Identity) bool {
	for _, dep := range reg.identities {
		if dep == id {
			return true
		}
	}
	return false
}

func (reg *region) snapshot() RegionState {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.snapshotLocked()
}

// snapshotLocked computes the region state from the settled outcomes.
//
// An outcome with usable rows counts as resolved even when its refresh
// failed (stale fallback); only a failure with no rows at all counts
// against the region. Any such hard failure fails the region immediately
// unless partial results are enabled and at least one query resolved.
func (reg *region) snapshotLocked() RegionState {
	state := RegionState{
		Region:  reg.id,
		Status:  StatusLoading,
		Results: make(map[query.Identity]QueryResult, len(reg.outcomes)),
	}

	resolved := 0
	var firstErr error
	for _, id := range reg.identities {
		out, ok := reg.outcomes[id]
		if !ok {
			continue
		}
		state.Results[id] = QueryResult{
			Result:    out.Result,
			Err:       out.Err,
			Stale:     out.Stale,
			FetchedAt: out.FetchedAt,
		}
		if out.Result != nil {
			resolved++
		} else if firstErr == nil {
			firstErr = out.Err
		}
	}

	settledAll := len(state.Results) == len(reg.identities)

	switch {
	case firstErr != nil && reg.partial:
		if resolved > 0 {
			state.Status = StatusReady
			state.Partial = true
			state.Err = firstErr
		} else if settledAll {
			state.Status = StatusFailed
			state.Err = firstErr
		}
	case firstErr != nil:
		state.Status = StatusFailed
		state.Err = firstErr
	case settledAll:
		state.Status = StatusReady
	}

	return state
}

// sameSettle reports whether two outcomes represent the same settle, so a
// synchronous fetch and its watcher notification do not double-notify.
func sameSettle(a, b engine.Outcome) bool {
	return a.Result == b.Result &&
		a.Stale == b.Stale &&
		a.FetchedAt.Equal(b.FetchedAt) &&
		(a.Err == nil) == (b.Err == nil)
}
