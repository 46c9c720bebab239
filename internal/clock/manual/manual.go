// Package manual provides a controllable clock for tests and replays.
package manual

import (
	"sync"
	"time"
)

// Clock returns a settable time. When step is non-zero every Now call advances
// the clock by step after reading it.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// New returns a frozen clock at start.
func New(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// NewStepping returns a clock that advances by step on each read.
func NewStepping(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start.UTC(), step: step}
}

// Now implements content.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
