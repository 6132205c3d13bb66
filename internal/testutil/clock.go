package testutil

import "sync"

// ManualClock is a settable wall clock (unix seconds) for tests.
//
// Unlike vesting.SystemClock, ManualClock only moves when told to, so the
// same scenario vests the same amounts on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock creates a clock reading now.
func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

// Now returns the current reading.
func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to now. Moving backwards is allowed.
func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d seconds and returns the new reading.
func (c *ManualClock) Advance(d int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}
