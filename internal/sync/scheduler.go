package sync

import (
	"context"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/taskmate/taskmate/internal/store"
)

// Default per-view polling intervals. Notifications move fastest, the
// subject catalog slowest.
var defaultIntervals = map[store.View]time.Duration{
	store.ViewNotifications: 5 * time.Second,
	store.ViewEngagements:   10 * time.Second,
	store.ViewSubjects:      15 * time.Second,
}

const (
	defaultRefreshBackoffBase = time.Second
	defaultRefreshBackoffCap  = 30 * time.Second
)

// Refresher pulls one view from the authoritative store.
// Implemented by Coordinator.
type Refresher interface {
	Refresh(ctx context.Context, view store.View) error
}

// Scheduler is the single owner of background refresh. Each view kind is
// polled on its own interval by exactly one loop, so a slow fetch can
// never overlap with the next one for the same view. Failures back off
// exponentially up to a cap and recover on the first success.
type Scheduler struct {
	refresher Refresher
	intervals map[store.View]time.Duration

	backoffBase time.Duration
	backoffCap  time.Duration

	kicks map[store.View]chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithIntervals overrides the polling interval for the given views.
func WithIntervals(intervals map[store.View]time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		for view, d := range intervals {
			s.intervals[view] = d
		}
	}
}

// WithRefreshBackoff overrides the failure backoff bounds.
func WithRefreshBackoff(base, cap time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.backoffBase = base
		s.backoffCap = cap
	}
}

// NewScheduler creates a scheduler polling through the given refresher.
func NewScheduler(r Refresher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		refresher:   r,
		intervals:   make(map[store.View]time.Duration),
		backoffBase: defaultRefreshBackoffBase,
		backoffCap:  defaultRefreshBackoffCap,
		kicks:       make(map[store.View]chan struct{}),
	}
	for view, d := range defaultIntervals {
		s.intervals[view] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	for view := range s.intervals {
		s.kicks[view] = make(chan struct{}, 1)
	}
	return s
}

// Kick requests an immediate refresh of the given views. Non-blocking; a
// kick while one is already pending coalesces with it.
func (s *Scheduler) Kick(views ...store.View) {
	for _, view := range views {
		ch, ok := s.kicks[view]
		if !ok {
			continue
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run polls until ctx is cancelled. It blocks; callers run it in a
// goroutine of their own.
func (s *Scheduler) Run(ctx context.Context) {
	var wg stdsync.WaitGroup
	for view := range s.intervals {
		wg.Add(1)
		go func(view store.View) {
			defer wg.Done()
			s.poll(ctx, view)
		}(view)
	}
	wg.Wait()
}

// poll is the single refresh loop for one view.
func (s *Scheduler) poll(ctx context.Context, view store.View) {
	delay := s.intervals[view]
	failures := 0

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-s.kicks[view]:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		if err := s.refresher.Refresh(ctx, view); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			delay = s.backoff(failures)
			slog.Warn("view refresh failed",
				"view", view, "failures", failures, "retry_in", delay, "error", err)
		} else {
			failures = 0
			delay = s.intervals[view]
		}
		timer.Reset(delay)
	}
}

// backoff computes the delay after the given consecutive failure count.
func (s *Scheduler) backoff(failures int) time.Duration {
	d := s.backoffBase
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= s.backoffCap {
			return s.backoffCap
		}
	}
	if d > s.backoffCap {
		return s.backoffCap
	}
	return d
}
