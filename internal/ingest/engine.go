// Package ingest implements the idempotent-or-conflict create protocol on top
// of URL canonicalization and the content store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/canonical"
	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/metrics"
)

// ErrConflict reports that the canonical URL is already stored with
// different metadata. The stored item is left untouched.
var ErrConflict = errors.New("content with this URL already exists with different metadata")

// Submission is a raw create request.
type Submission struct {
	URL    string
	Title  *string
	Author *string
	Body   *string
}

// Result identifies the stored item. Created is false for idempotent repeats.
type Result struct {
	ID      int64
	Created bool
}

// Engine runs submissions against a content.Store.
type Engine struct {
	store     content.Store
	canon     *canonical.Canonicalizer
	publisher content.Publisher
	logger    *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCanonicalizer overrides the default canonicalizer.
func WithCanonicalizer(c *canonical.Canonicalizer) Option {
	return func(e *Engine) {
		if c != nil {
			e.canon = c
		}
	}
}

// WithPublisher announces newly created items.
func WithPublisher(p content.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs an Engine.
func New(store content.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		canon:  canonical.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	metrics.Init()
	return e
}

// Ingest stores sub exactly once per canonical URL. Validation failures are
// returned as *canonical.Error and metadata mismatches as ErrConflict.
func (e *Engine) Ingest(ctx context.Context, sub Submission) (Result, error) {
	canonicalURL, err := e.canon.Canonicalize(sub.URL)
	if err != nil {
		metrics.ObserveIngest(metrics.OutcomeInvalid)
		return Result{}, err
	}
	item := content.NewItem{
		URL:    canonicalURL,
		Title:  content.NormalizeField(sub.Title),
		Author: content.NormalizeField(sub.Author),
		Body:   content.NormalizeField(sub.Body),
	}

	existing, err := e.store.FindByURL(ctx, canonicalURL)
	switch {
	case err == nil:
		return e.resolve(existing, item)
	case !errors.Is(err, content.ErrNotFound):
		metrics.ObserveIngest(metrics.OutcomeError)
		return Result{}, fmt.Errorf("lookup %s: %w", canonicalURL, err)
	}

	created, err := e.store.Create(ctx, item)
	if errors.Is(err, content.ErrDuplicateURL) {
		// Another submission inserted the same URL between lookup and insert.
		existing, err = e.store.FindByURL(ctx, canonicalURL)
		if err != nil {
			metrics.ObserveIngest(metrics.OutcomeError)
			return Result{}, fmt.Errorf("refetch %s after duplicate insert: %w", canonicalURL, err)
		}
		e.logger.Debug("lost insert race", zap.String("url", canonicalURL), zap.Int64("id", existing.ID))
		return e.resolve(existing, item)
	}
	if err != nil {
		metrics.ObserveIngest(metrics.OutcomeError)
		return Result{}, fmt.Errorf("create %s: %w", canonicalURL, err)
	}

	metrics.ObserveIngest(metrics.OutcomeCreated)
	e.logger.Info("content created", zap.Int64("id", created.ID), zap.String("url", created.URL))
	e.publishCreated(ctx, created)
	return Result{ID: created.ID, Created: true}, nil
}

func (e *Engine) resolve(existing content.Item, item content.NewItem) (Result, error) {
	if !existing.SameMetadata(item) {
		metrics.ObserveIngest(metrics.OutcomeConflict)
		e.logger.Warn("content conflict", zap.Int64("id", existing.ID), zap.String("url", existing.URL))
		return Result{}, ErrConflict
	}
	metrics.ObserveIngest(metrics.OutcomeDuplicate)
	return Result{ID: existing.ID}, nil
}

func (e *Engine) publishCreated(ctx context.Context, item content.Item) {
	if e.publisher == nil {
		return
	}
	event := content.CreatedEvent{ID: item.ID, URL: item.URL, CreatedAt: item.CreatedAt}
	if _, err := e.publisher.Publish(ctx, content.TopicCreated, event); err != nil {
		metrics.ObservePublish(false)
		e.logger.Warn("publish created event failed", zap.Int64("id", item.ID), zap.Error(err))
		return
	}
	metrics.ObservePublish(true)
}
