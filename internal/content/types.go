// Package content defines the bookmark domain model and the persistence port
// shared by the ingestion and listing engines. Implementations of Store live in
// internal/storage; this package must not import database drivers.
package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound signals that the requested item does not exist.
	ErrNotFound = errors.New("content item not found")
	// ErrDuplicateURL is returned by Store.Create when another item already
	// owns the canonical URL (unique constraint violation).
	ErrDuplicateURL = errors.New("content item url already exists")
)

// Item is a persisted bookmark. Every field is immutable once stored.
type Item struct {
	// ID is assigned by the store on insert and increases monotonically.
	ID int64
	// URL is the canonical URL; it is unique across all items.
	URL string
	// Title, Author and Body are nil when absent.
	Title  *string
	Author *string
	Body   *string
	// CreatedAt is assigned by the store at insert time (UTC).
	CreatedAt time.Time
}

// NewItem is the payload handed to Store.Create.
type NewItem struct {
	URL    string
	Title  *string
	Author *string
	Body   *string
}

// SameMetadata reports whether title, author and body match exactly. Two
// absent values compare equal.
func (i Item) SameMetadata(n NewItem) bool {
	return equalField(i.Title, n.Title) &&
		equalField(i.Author, n.Author) &&
		equalField(i.Body, n.Body)
}

// ListParams is the validated listing query handed to Store.List.
type ListParams struct {
	Limit  int
	Offset int
	// Since and Until are inclusive bounds on CreatedAt; nil means unbounded.
	Since *time.Time
	Until *time.Time
}

// Matches reports whether t falls inside the inclusive bounds.
func (p ListParams) Matches(t time.Time) bool {
	if p.Since != nil && t.Before(*p.Since) {
		return false
	}
	if p.Until != nil && t.After(*p.Until) {
		return false
	}
	return true
}

// Page is one slice of a listing plus the size of the filtered set.
type Page struct {
	Items []Item
	Total int64
}

// ValidationError describes a rejected request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NormalizeField maps empty or whitespace-only input to nil. Non-blank values
// are kept verbatim.
func NormalizeField(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	out := *v
	return &out
}

func equalField(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
