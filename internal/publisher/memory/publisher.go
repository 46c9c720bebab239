// Package memory contains an in-process publisher used in development and
// tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity bounds how many messages a Publisher retains.
const DefaultCapacity = 1000

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("memory publisher closed")

// Publisher keeps the most recent published payloads for inspection. Older
// messages are dropped once capacity is reached.
type Publisher struct {
	mu       sync.RWMutex
	capacity int
	seq      int
	closed   bool
	messages []PublishedMessage
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	ID      string
	Topic   string
	Payload any
}

// New returns a memory Publisher with DefaultCapacity.
func New() *Publisher {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity returns a Publisher retaining at most capacity messages.
func NewWithCapacity(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{capacity: capacity}
}

// Publish records the message and returns a sequential ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}
	p.seq++
	msg := PublishedMessage{ID: fmt.Sprintf("memory-%d", p.seq), Topic: topic, Payload: payload}
	if len(p.messages) == p.capacity {
		copy(p.messages, p.messages[1:])
		p.messages = p.messages[:len(p.messages)-1]
	}
	p.messages = append(p.messages, msg)
	return msg.ID, nil
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Close stops accepting messages. Retained messages stay readable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
