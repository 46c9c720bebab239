// Package client is a thin HTTP client for the linkstash REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/linkstash/internal/api"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one linkstash server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client. A zero timeout selects the default.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Add submits a bookmark and returns the id of the stored item.
func (c *Client) Add(ctx context.Context, req api.CreateContentRequest) (int64, error) {
	var out api.CreateContentResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/content", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// ListOptions mirrors the listing query parameters. Zero values are omitted.
type ListOptions struct {
	Limit  int
	Offset int
	Since  time.Time
	Until  time.Time
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if !o.Since.IsZero() {
		q.Set("since", o.Since.UTC().Format(time.RFC3339Nano))
	}
	if !o.Until.IsZero() {
		q.Set("until", o.Until.UTC().Format(time.RFC3339Nano))
	}
	return q.Encode()
}

// List fetches one page of bookmarks.
func (c *Client) List(ctx context.Context, opts ListOptions) (api.ListContentResponse, error) {
	path := "/api/v1/content"
	if q := opts.query(); q != "" {
		path += "?" + q
	}
	var out api.ListContentResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Get fetches a single bookmark including its body.
func (c *Client) Get(ctx context.Context, id int64) (api.ContentItem, error) {
	var out api.ContentItem
	err := c.do(ctx, http.MethodGet, "/api/v1/content/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
