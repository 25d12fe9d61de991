package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe controllable wall clock for tests.
//
// Unlike time.Now, DeterministicClock only moves when a test advances it,
// so the same scenario produces identical timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock frozen at the given instant.
func NewDeterministicClock(start time.Time) *DeterministicClock {
	return &DeterministicClock{now: start}
}

// Now returns the current instant without advancing.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
//
// Monotonic as long as d is non-negative; tests that need to step through
// a refresh interval or the enumeration grace window advance explicitly.
func (c *DeterministicClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Set resets the clock to a specific instant.
//
// Used for test reuse; there is no monotonicity check.
func (c *DeterministicClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
