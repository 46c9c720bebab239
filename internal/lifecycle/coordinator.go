// Package lifecycle tracks in-flight requests and shutdown state so the server
// can drain accepted work while rejecting new arrivals.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
)

// State is the coarse drain state of a Coordinator.
type State int

// Coordinator states. Transitions only move forward.
const (
	Accepting State = iota
	Draining
	Drained
)

func (s State) String() string {
	switch s {
	case Accepting:
		return "accepting"
	case Draining:
		return "draining"
	case Drained:
		return "drained"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Coordinator is the process-wide admission gate. The accept/reject decision
// and the in-flight increment happen under one lock, so no request is admitted
// after Shutdown has been observed by another arrival.
type Coordinator struct {
	mu           sync.Mutex
	shuttingDown bool
	inFlight     int64
	drained      chan struct{}
	drainedOnce  sync.Once
	observer     Observer
}

// Observer receives gauge/counter updates; metrics.LifecycleObserver
// implements it.
type Observer interface {
	InFlight(n int64)
	Rejected()
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// New returns a Coordinator in the Accepting state.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{drained: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c
}

// Ticket represents one admitted request. Release is idempotent.
type Ticket struct {
	c    *Coordinator
	once sync.Once
}

// Release marks the request as settled. Only the first call decrements.
func (t *Ticket) Release() {
	if t == nil {
		return
	}
	t.once.Do(t.c.release)
}

// Admit decides whether a request may run. When it returns ok=false the caller
// must respond "service unavailable" without doing any work.
func (c *Coordinator) Admit() (*Ticket, bool) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		c.observer.Rejected()
		return nil, false
	}
	c.inFlight++
	c.observer.InFlight(c.inFlight)
	c.mu.Unlock()
	return &Ticket{c: c}, true
}

func (c *Coordinator) release() {
	c.mu.Lock()
	if c.inFlight <= 0 {
		c.mu.Unlock()
		panic("lifecycle: release without matching admit")
	}
	c.inFlight--
	c.observer.InFlight(c.inFlight)
	fire := c.shuttingDown && c.inFlight == 0
	c.mu.Unlock()

	if fire {
		c.markDrained()
	}
}

// Shutdown moves the coordinator to Draining (or straight to Drained when
// nothing is in flight). Calling it again has no effect.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return
	}
	c.shuttingDown = true
	fire := c.inFlight == 0
	c.mu.Unlock()

	if fire {
		c.markDrained()
	}
}

func (c *Coordinator) markDrained() {
	c.drainedOnce.Do(func() { close(c.drained) })
}

// Drained is closed once shutdown has been signaled and the last admitted
// request has settled.
func (c *Coordinator) Drained() <-chan struct{} {
	return c.drained
}

// Wait blocks until drained or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for drain: %w", ctx.Err())
	}
}

// InFlight returns the number of admitted, unsettled requests.
func (c *Coordinator) InFlight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// ShuttingDown reports whether Shutdown has been called.
func (c *Coordinator) ShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown
}

// State derives the current state from the flag and counter.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.shuttingDown:
		return Accepting
	case c.inFlight > 0:
		return Draining
	default:
		return Drained
	}
}

type nopObserver struct{}

func (nopObserver) InFlight(int64) {}
func (nopObserver) Rejected()      {}
