// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

// TestClockNowMicrosecondResolution checks values survive a microsecond round trip.
func TestClockNowMicrosecondResolution(t *testing.T) {
	t.Parallel()

	got := New().Now()
	if !time.UnixMicro(got.UnixMicro()).UTC().Equal(got) {
		t.Fatalf("expected %v to have microsecond resolution", got)
	}
	if got.Nanosecond()%1000 != 0 {
		t.Fatalf("expected no sub-microsecond component, got %d ns", got.Nanosecond())
	}
}
