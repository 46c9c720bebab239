// Package memory contains in-memory store implementations for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/linkstash/internal/clock/system"
	"github.com/JakeFAU/linkstash/internal/content"
)

// ContentStore provides an in-memory content.Store.
type ContentStore struct {
	mu     sync.RWMutex
	clock  content.Clock
	nextID int64
	items  []content.Item
	byURL  map[string]int
	byID   map[int64]int
}

// NewContentStore constructs a ContentStore. A nil clock falls back to the
// system clock.
func NewContentStore(clock content.Clock) *ContentStore {
	if clock == nil {
		clock = system.New()
	}
	return &ContentStore{
		clock: clock,
		byURL: make(map[string]int),
		byID:  make(map[int64]int),
	}
}

// FindByURL returns the item owning canonicalURL.
func (s *ContentStore) FindByURL(_ context.Context, canonicalURL string) (content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byURL[canonicalURL]
	if !ok {
		return content.Item{}, content.ErrNotFound
	}
	return cloneItem(s.items[idx]), nil
}

// FindByID returns the item with the given id.
func (s *ContentStore) FindByID(_ context.Context, id int64) (content.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return content.Item{}, content.ErrNotFound
	}
	return cloneItem(s.items[idx]), nil
}

// Create inserts a new item, assigning its id and creation time.
func (s *ContentStore) Create(_ context.Context, item content.NewItem) (content.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[item.URL]; exists {
		return content.Item{}, content.ErrDuplicateURL
	}
	createdAt := s.clock.Now().UTC()
	if n := len(s.items); n > 0 && createdAt.Before(s.items[n-1].CreatedAt) {
		createdAt = s.items[n-1].CreatedAt
	}
	s.nextID++
	stored := content.Item{
		ID:        s.nextID,
		URL:       item.URL,
		Title:     content.NormalizeField(item.Title),
		Author:    content.NormalizeField(item.Author),
		Body:      content.NormalizeField(item.Body),
		CreatedAt: createdAt,
	}
	s.items = append(s.items, stored)
	s.byURL[stored.URL] = len(s.items) - 1
	s.byID[stored.ID] = len(s.items) - 1
	return cloneItem(stored), nil
}

// List filters, orders and paginates items.
func (s *ContentStore) List(_ context.Context, params content.ListParams) (content.Page, error) {
	s.mu.RLock()
	matched := make([]content.Item, 0, len(s.items))
	for _, item := range s.items {
		if params.Matches(item.CreatedAt) {
			matched = append(matched, item)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := content.Page{Total: int64(len(matched)), Items: []content.Item{}}
	if params.Offset >= len(matched) {
		return page, nil
	}
	end := len(matched)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}
	for _, item := range matched[params.Offset:end] {
		page.Items = append(page.Items, cloneItem(item))
	}
	return page, nil
}

// Len reports the number of stored items.
func (s *ContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping always succeeds.
func (s *ContentStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *ContentStore) Close() error { return nil }

func cloneItem(in content.Item) content.Item {
	out := in
	out.Title = cloneString(in.Title)
	out.Author = cloneString(in.Author)
	out.Body = cloneString(in.Body)
	return out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
