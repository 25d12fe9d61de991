package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskmate/taskmate/internal/store"
)

// fakeRefresher records refresh calls per view and can fail on demand.
type fakeRefresher struct {
	mu       stdsync.Mutex
	calls    map[store.View]int
	inflight int32
	overlap  atomic.Bool
	fail     atomic.Bool
	notify   chan store.View
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{
		calls:  make(map[store.View]int),
		notify: make(chan store.View, 64),
	}
}

func (f *fakeRefresher) Refresh(_ context.Context, view store.View) error {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&f.inflight, -1)

	f.mu.Lock()
	f.calls[view]++
	f.mu.Unlock()

	select {
	case f.notify <- view:
	default:
	}
	if f.fail.Load() {
		return errors.New("fetch failed")
	}
	return nil
}

func (f *fakeRefresher) count(view store.View) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[view]
}

func waitFor(t *testing.T, notify <-chan store.View, want store.View) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case view := <-notify:
			if view == want {
				return
			}
		case <-deadline:
			t.Fatalf("no refresh of %s before deadline", want)
		}
	}
}

func shortIntervals(d time.Duration) map[store.View]time.Duration {
	return map[store.View]time.Duration{
		store.ViewNotifications: d,
		store.ViewEngagements:   d,
		store.ViewSubjects:      d,
	}
}

func TestSchedulerPollsEveryView(t *testing.T) {
	f := newFakeRefresher()
	s := NewScheduler(f, WithIntervals(shortIntervals(5*time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for _, view := range store.AllViews {
		waitFor(t, f.notify, view)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}

func TestSchedulerKickTriggersImmediateRefresh(t *testing.T) {
	f := newFakeRefresher()
	// Polling effectively disabled; only kicks drive refreshes.
	s := NewScheduler(f, WithIntervals(shortIntervals(time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Zero(t, f.count(store.ViewNotifications))
	s.Kick(store.ViewNotifications)
	waitFor(t, f.notify, store.ViewNotifications)
	assert.Zero(t, f.count(store.ViewSubjects), "kick only touches the named views")
}

func TestSchedulerNoOverlappingRefreshes(t *testing.T) {
	f := newFakeRefresher()
	s := NewScheduler(f,
		WithIntervals(map[store.View]time.Duration{store.ViewNotifications: time.Hour}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Hammer the kick channel while refreshes are slow; the single loop
	// must coalesce them rather than run concurrently.
	for i := 0; i < 50; i++ {
		s.Kick(store.ViewNotifications)
		time.Sleep(200 * time.Microsecond)
	}
	waitFor(t, f.notify, store.ViewNotifications)

	assert.False(t, f.overlap.Load(), "refreshes for one view must never overlap")
}

func TestSchedulerBacksOffOnFailure(t *testing.T) {
	f := newFakeRefresher()
	f.fail.Store(true)
	s := NewScheduler(f,
		WithIntervals(map[store.View]time.Duration{store.ViewNotifications: time.Millisecond}),
		WithRefreshBackoff(50*time.Millisecond, 200*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	waitFor(t, f.notify, store.ViewNotifications)
	base := f.count(store.ViewNotifications)
	time.Sleep(60 * time.Millisecond)

	// With a 50ms floor after failures, 60ms admits at most two more
	// polls; without backoff the 1ms interval would have run dozens.
	assert.LessOrEqual(t, f.count(store.ViewNotifications)-base, 3)
}

func TestSchedulerBackoffBounds(t *testing.T) {
	s := NewScheduler(newFakeRefresher(), WithRefreshBackoff(time.Second, 8*time.Second))

	assert.Equal(t, time.Second, s.backoff(1))
	assert.Equal(t, 2*time.Second, s.backoff(2))
	assert.Equal(t, 4*time.Second, s.backoff(3))
	assert.Equal(t, 8*time.Second, s.backoff(4))
	assert.Equal(t, 8*time.Second, s.backoff(10), "capped")
}
