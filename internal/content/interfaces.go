package content

import (
	"context"
	"time"
)

// Store persists bookmarks. Implementations must enforce uniqueness of the
// canonical URL and return ErrDuplicateURL when Create loses that race.
type Store interface {
	FindByURL(ctx context.Context, canonicalURL string) (Item, error)
	FindByID(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item NewItem) (Item, error)
	// List filters by ListParams bounds, orders by CreatedAt then ID (both
	// descending) and reports the filtered total before pagination.
	List(ctx context.Context, params ListParams) (Page, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher pushes item events to a message bus (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// CreatedEvent is published after a new item is stored.
type CreatedEvent struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// TopicCreated names the event stream for newly stored items.
const TopicCreated = "content.created"
