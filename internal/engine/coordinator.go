package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/membercare/memberboard/internal/engine/cache"
	"github.com/membercare/memberboard/internal/query"
	"github.com/membercare/memberboard/internal/warehouse"
)

// Retry policy defaults.
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 250 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second

	backoffMultiplier = 2
)

// Config holds the coordinator's retry policy.
type Config struct {
	// MaxRetries is the number of retries after the first attempt for
	// transient failures. 0 means a single attempt; negative means default.
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; each retry doubles it.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps the backoff.
	RetryMaxDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	return c
}

// Outcome is the settled result of one query request.
type Outcome struct {
	// Identity is the query this outcome belongs to.
	Identity query.Identity

	// Result holds the rows on success, or the last-good stale rows
	// accompanying Err when Stale is set.
	Result *warehouse.ResultSet

	// Err is the classified failure, nil on success.
	Err error

	// Stale marks Result as last-good data older than its TTL, surfaced as
	// a fallback for a failed refresh.
	Stale bool

	// FromCache marks a result served without a network call.
	FromCache bool

	// FetchedAt is when Result's data was fetched.
	FetchedAt time.Time

	// Attempts is the number of executor calls made for this outcome.
	Attempts int
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// WatchFunc receives every settled outcome for a watched identity.
// Callbacks run sequentially on the settling goroutine and must not block.
type WatchFunc func(Outcome)

// Coordinator orchestrates named queries: it answers from the cache when
// fresh, coalesces concurrent requests for the same identity into one
// network call, retries transient failures with exponential backoff, writes
// successes through to the cache in completion order, and notifies watchers
// per identity so one query's failure never affects another's subscribers.
type Coordinator struct {
	store  *cache.Store
	exec   Executor
	cfg    Config
	logger zerolog.Logger

	// flights coalesces concurrent fetches per identity key. Retries run
	// inside the flight function, so late callers keep attaching to the
	// same in-flight request across retries.
	flights singleflight.Group

	mu            sync.Mutex
	watchers      map[query.Identity]map[int]WatchFunc
	nextWatcherID int

	// issueSeq numbers flights at start; lastApplied records, per identity,
	// the issue number of the last flight whose success was written to the
	// cache. A flight that settles after a later-issued flight has already
	// applied is discarded rather than allowed to clobber fresher data.
	issueSeq    uint64
	lastApplied map[query.Identity]uint64

	// sleep is the backoff sleeper, injectable by tests.
	sleep func(time.Duration)
}

// New creates a Coordinator over the given cache and executor.
func New(store *cache.Store, exec Executor, cfg Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		exec:        exec,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		watchers:    map[query.Identity]map[int]WatchFunc{},
		lastApplied: map[query.Identity]uint64{},
		sleep:       time.Sleep,
	}
}

// Fetch resolves one query and blocks until it settles.
//
// A fresh cache entry is returned immediately with no network call.
// Otherwise the caller joins the in-flight request for the identity if one
// exists, or starts a new one. If ctx ends while waiting, Fetch returns a
// cancelled outcome but the flight keeps running: its result is still
// written to the cache for the next caller.
func (c *Coordinator) Fetch(ctx context.Context, id query.Identity) Outcome {
	if entry, err := c.store.GetFresh(id); err == nil {
		return Outcome{
			Identity:  id,
			Result:    entry.Result,
			FromCache: true,
			FetchedAt: entry.FetchedAt,
		}
	}

	ch := c.flights.DoChan(id.Key(), func() (any, error) {
		return c.fly(id), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Outcome)
	case <-ctx.Done():
		return Outcome{
			Identity: id,
			Err:      &QueryError{Class: FailCancelled, Identity: id, Err: ctx.Err()},
		}
	}
}

// Request triggers a fetch without waiting for it. Watchers observe the
// outcome when it settles; concurrent requests for the same identity
// coalesce into one network call.
func (c *Coordinator) Request(id query.Identity) {
	go func() { _ = c.Fetch(context.Background(), id) }()
}

// Watch registers fn for every settled outcome of id.
// The returned cancel func detaches the watcher; it does not cancel any
// in-flight request for the identity.
func (c *Coordinator) Watch(id query.Identity, fn WatchFunc) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watchers[id] == nil {
		c.watchers[id] = map[int]WatchFunc{}
	}
	c.nextWatcherID++
	watcherID := c.nextWatcherID
	c.watchers[id][watcherID] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.watchers[id], watcherID)
		if len(c.watchers[id]) == 0 {
			delete(c.watchers, id)
		}
	}
}

// Watched returns the identities that currently have at least one watcher.
func (c *Coordinator) Watched() []query.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]query.Identity, 0, len(c.watchers))
	for id := range c.watchers {
		out = append(out, id)
	}
	return out
}

// Invalidate drops the cached entry for id so the next request fetches.
func (c *Coordinator) Invalidate(id query.Identity) {
	c.store.Invalidate(id)
}

// Refresh invalidates id and re-requests it. A refresh issued while a fetch
// for id is already in flight coalesces with it instead of double-fetching.
func (c *Coordinator) Refresh(id query.Identity) {
	c.store.Invalidate(id)
	c.Request(id)
}

// RefreshAll refreshes every watched identity and prunes cache entries for
// identities nothing watches anymore.
func (c *Coordinator) RefreshAll() {
	watched := c.Watched()

	active := make(map[query.Identity]struct{}, len(watched))
	for _, id := range watched {
		active[id] = struct{}{}
	}
	if removed := c.store.Prune(active); removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("pruned unwatched cache entries")
	}

	for _, id := range watched {
		c.Refresh(id)
	}
}

// fly runs one in-flight request to settlement: execute, retry transient
// failures with capped exponential backoff, then apply the result. It runs
// detached from any caller context; abandoning subscribers does not stop it.
func (c *Coordinator) fly(id query.Identity) Outcome {
	c.mu.Lock()
	c.issueSeq++
	issue := c.issueSeq
	c.mu.Unlock()

	delay := c.cfg.RetryBaseDelay
	attempts := 0
	for {
		attempts++
		result, err := c.exec.Execute(context.Background(), id)
		if err == nil {
			return c.settleSuccess(id, issue, result, attempts)
		}

		qe := asQueryError(id, err, attempts)
		if qe.Transient() && attempts <= c.cfg.MaxRetries {
			c.logger.Debug().
				Stringer("query", id).
				Stringer("class", qe.Class).
				Int("attempt", attempts).
				Dur("backoff", delay).
				Msg("retrying transient query failure")
			c.sleep(delay)
			delay = min(delay*backoffMultiplier, c.cfg.RetryMaxDelay)
			continue
		}

		return c.settleFailure(id, qe)
	}
}

// settleSuccess applies a successful fetch in completion order and notifies
// watchers. A success from an older flight that settles after a newer
// flight has already applied is discarded; its subscribers are served the
// fresher cached data instead.
func (c *Coordinator) settleSuccess(id query.Identity, issue uint64, result *warehouse.ResultSet, attempts int) Outcome {
	c.mu.Lock()
	if issue < c.lastApplied[id] {
		c.mu.Unlock()
		c.logger.Debug().
			Stringer("query", id).
			Uint64("issue", issue).
			Msg("discarding late completion of superseded request")
		if entry, err := c.store.Get(id); err == nil {
			return Outcome{
				Identity:  id,
				Result:    entry.Result,
				FromCache: true,
				FetchedAt: entry.FetchedAt,
				Attempts:  attempts,
			}
		}
		return Outcome{Identity: id, Result: result, FetchedAt: time.Now(), Attempts: attempts}
	}
	c.lastApplied[id] = issue
	entry := c.store.Put(id, result, viewTTL(id))
	c.mu.Unlock()

	fetchedAt := time.Now()
	if entry != nil {
		fetchedAt = entry.FetchedAt
	}
	outcome := Outcome{
		Identity:  id,
		Result:    result,
		FetchedAt: fetchedAt,
		Attempts:  attempts,
	}
	c.notify(id, outcome)
	return outcome
}

// settleFailure notifies watchers of a terminal failure.
// Cached data for the identity is never cleared by a failure: if a stale
// entry exists, the outcome carries it as a flagged fallback so panels can
// keep showing last-good data instead of blanking.
func (c *Coordinator) settleFailure(id query.Identity, qe *QueryError) Outcome {
	outcome := Outcome{Identity: id, Err: qe, Attempts: qe.Attempts}
	if entry, err := c.store.Get(id); err == nil {
		outcome.Result = entry.Result
		outcome.Stale = true
		outcome.FetchedAt = entry.FetchedAt
	}

	c.logger.Warn().
		Stringer("query", id).
		Stringer("class", qe.Class).
		Int("attempts", qe.Attempts).
		Bool("stale_fallback", outcome.Stale).
		Err(qe.Err).
		Msg("query settled as failed")

	c.notify(id, outcome)
	return outcome
}

// notify delivers an outcome to every watcher of id.
// The watcher list is snapshotted under the lock and callbacks run outside
// it, so a callback may subscribe or unsubscribe without deadlocking.
func (c *Coordinator) notify(id query.Identity, outcome Outcome) {
	c.mu.Lock()
	fns := make([]WatchFunc, 0, len(c.watchers[id]))
	for _, fn := range c.watchers[id] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(outcome)
	}
}

// asQueryError normalizes an executor error into a *QueryError with the
// running attempt count.
func asQueryError(id query.Identity, err error, attempts int) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		qe.Attempts = attempts
		return qe
	}
	return &QueryError{
		Class:    Classify(context.Background(), err),
		Identity: id,
		Attempts: attempts,
		Err:      err,
	}
}

// viewTTL returns the per-view TTL override, or 0 for the cache default.
func viewTTL(id query.Identity) time.Duration {
	if view, ok := query.Lookup(id.Name()); ok {
		return view.TTL
	}
	return 0
}
