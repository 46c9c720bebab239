// Package listing validates listing queries and pages through stored items
// newest first.
package listing

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/metrics"
)

const (
	// DefaultLimit applies when the query has no limit.
	DefaultLimit = 50
	// MaxLimit caps the page size; larger requests are clamped.
	MaxLimit = 1000
)

// ParseParams validates limit, offset, since and until from a query string.
// Empty values count as absent.
func ParseParams(q url.Values) (content.ListParams, error) {
	params := content.ListParams{Limit: DefaultLimit}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			return content.ListParams{}, &content.ValidationError{Field: "limit", Reason: "must be a positive integer"}
		}
		params.Limit = min(val, MaxLimit)
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			return content.ListParams{}, &content.ValidationError{Field: "offset", Reason: "must be a non-negative integer"}
		}
		params.Offset = val
	}

	var err error
	if params.Since, err = parseTime(q, "since"); err != nil {
		return content.ListParams{}, err
	}
	if params.Until, err = parseTime(q, "until"); err != nil {
		return content.ListParams{}, err
	}
	return params, nil
}

func parseTime(q url.Values, field string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(field))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, &content.ValidationError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	t = t.UTC()
	return &t, nil
}

// Result is one page plus the size of the filtered set.
type Result struct {
	Items []content.Item
	Total int64
	// Limit is the effective page size after defaulting and clamping.
	Limit int
}

// Engine runs listing queries against a content.Store.
type Engine struct {
	store content.Store
}

// New constructs an Engine.
func New(store content.Store) *Engine {
	metrics.Init()
	return &Engine{store: store}
}

// List returns the page selected by params. Bounds are inclusive; items are
// ordered by creation time then id, newest first.
func (e *Engine) List(ctx context.Context, params content.ListParams) (Result, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	params.Limit = min(params.Limit, MaxLimit)
	if params.Offset < 0 {
		return Result{}, &content.ValidationError{Field: "offset", Reason: "must be a non-negative integer"}
	}

	page, err := e.store.List(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("list content: %w", err)
	}
	items := page.Items
	if items == nil {
		items = []content.Item{}
	}
	metrics.ObserveList()
	return Result{Items: items, Total: page.Total, Limit: params.Limit}, nil
}
