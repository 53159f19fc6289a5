// Package testutil provides deterministic helpers for tests and the
// scenario harness.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start instant for deterministic clocks. Golden
// files depend on it; do not change without regenerating them.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Clock is a thread-safe deterministic time source. Each call to Now
// returns the current instant and advances it by a fixed step, so builder
// timestamps and computed durations are reproducible across runs.
//
// Inject Clock.Now as capture.Options.Clock.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewClock creates a clock starting at start, advancing by step per Now call.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{current: start, step: step}
}

// NewScenarioClock creates the clock used by scenario runs: Epoch start,
// one second per observation.
func NewScenarioClock() *Clock {
	return NewClock(Epoch, time.Second)
}

// Now returns the current instant and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Current returns the current instant without advancing.
func (c *Clock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d without observing it.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
