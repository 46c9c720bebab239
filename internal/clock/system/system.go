// Package system provides the wall clock used to stamp stored items.
package system

import "time"

// Clock implements content.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to microseconds, the resolution
// every store backend persists, so stamped values round-trip unchanged.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
