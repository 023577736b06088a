// Package refresh drives the dashboard's periodic data refresh.
//
// One process-wide Scheduler ticks at the configured interval, invalidating
// and re-requesting every watched query through the coordinator. Manual
// refreshes go through the same path, so a user refresh mid-interval
// coalesces with in-flight work instead of double-fetching.
package refresh

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/membercare/memberboard/internal/query"
)

// Refresher is the coordinator surface the scheduler drives.
type Refresher interface {
	Refresh(id query.Identity)
	RefreshAll()
}

// Scheduler periodically refreshes all watched queries.
// Start it once at application init and Stop it on shutdown; Stop releases
// the timer and waits for the tick goroutine to exit.
type Scheduler struct {
	refresher Refresher
	interval  time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

// NewScheduler creates a scheduler ticking at the given interval.
func NewScheduler(refresher Refresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start launches the tick loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	s.stop = make(chan struct{})
	s.stopped.Add(1)
	go s.run(s.stop)

	s.logger.Info().Dur("interval", s.interval).Msg("refresh scheduler started")
}

// Stop halts the tick loop and blocks until it has exited.
// Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.stopped.Wait()
	s.logger.Info().Msg("refresh scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// RefreshNow refreshes the given identities immediately, or every watched
// identity when none are given. Coalescing in the coordinator ensures a
// manual refresh never duplicates an in-flight fetch.
func (s *Scheduler) RefreshNow(ids ...query.Identity) {
	if len(ids) == 0 {
		s.logger.Debug().Msg("manual refresh of all watched queries")
		s.refresher.RefreshAll()
		return
	}
	for _, id := range ids {
		s.logger.Debug().Stringer("query", id).Msg("manual refresh")
		s.refresher.Refresh(id)
	}
}

func (s *Scheduler) run(stop <-chan struct{}) {
	defer s.stopped.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Debug().Msg("scheduled refresh tick")
			s.refresher.RefreshAll()
		case <-stop:
			return
		}
	}
}
