// Package rediscache decorates a content.Store with a Redis read-through cache.
// Items are immutable once written, so cached entries never go stale. Only
// lookups by id are served from the cache; the URL lookup decides whether an
// ingest is new and always consults the backing store.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/content"
)

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Store wraps another content.Store.
type Store struct {
	next   content.Store
	client Client
	ttl    time.Duration
	logger *zap.Logger
}

// New returns a caching decorator around next.
func New(next content.Store, client Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{next: next, client: client, ttl: ttl, logger: logger}
}

type cachedItem struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     *string   `json:"title,omitempty"`
	Author    *string   `json:"author,omitempty"`
	Body      *string   `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FindByID serves from cache when possible. Cache failures fall through to
// the wrapped store.
func (s *Store) FindByID(ctx context.Context, id int64) (content.Item, error) {
	key := ItemKey(id)
	if item, ok := s.get(ctx, key); ok {
		return item, nil
	}
	item, err := s.next.FindByID(ctx, id)
	if err != nil {
		return content.Item{}, err
	}
	s.put(ctx, item)
	return item, nil
}

// FindByURL always reads the wrapped store. A cached URL entry can outlive
// the store that wrote it, and answering from it would hand out an id the
// store may later assign to a different URL.
func (s *Store) FindByURL(ctx context.Context, canonicalURL string) (content.Item, error) {
	item, err := s.next.FindByURL(ctx, canonicalURL)
	if err != nil {
		return content.Item{}, err
	}
	s.put(ctx, item)
	return item, nil
}

// Create writes through and primes the cache.
func (s *Store) Create(ctx context.Context, item content.NewItem) (content.Item, error) {
	created, err := s.next.Create(ctx, item)
	if err != nil {
		return content.Item{}, err
	}
	s.put(ctx, created)
	return created, nil
}

// List is never cached.
func (s *Store) List(ctx context.Context, params content.ListParams) (content.Page, error) {
	return s.next.List(ctx, params)
}

// Ping checks both the wrapped store and Redis.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.next.Ping(ctx); err != nil {
		return err
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes Redis and the wrapped store.
func (s *Store) Close() error {
	return errors.Join(s.client.Close(), s.next.Close())
}

func (s *Store) get(ctx context.Context, key string) (content.Item, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return content.Item{}, false
	}
	var cached cachedItem
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return content.Item{}, false
	}
	return content.Item{
		ID:        cached.ID,
		URL:       cached.URL,
		Title:     cached.Title,
		Author:    cached.Author,
		Body:      cached.Body,
		CreatedAt: cached.CreatedAt.UTC(),
	}, true
}

func (s *Store) put(ctx context.Context, item content.Item) {
	payload, err := json.Marshal(cachedItem{
		ID:        item.ID,
		URL:       item.URL,
		Title:     item.Title,
		Author:    item.Author,
		Body:      item.Body,
		CreatedAt: item.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("cache encode failed", zap.Int64("id", item.ID), zap.Error(err))
		return
	}
	for _, key := range []string{ItemKey(item.ID), URLKey(item.URL)} {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}
