package rediscache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/clock/manual"
	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/storage/memory"
)

type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	pingErr error
	pings   int
	closed  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	val, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	cmd := redis.NewStatusCmd(ctx, "set", key)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	cmd := redis.NewStatusCmd(ctx, "ping")
	if f.pingErr != nil {
		cmd.SetErr(f.pingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

type countingStore struct {
	content.Store
	findByID  int
	findByURL int
}

func (c *countingStore) FindByID(ctx context.Context, id int64) (content.Item, error) {
	c.findByID++
	return c.Store.FindByID(ctx, id)
}

func (c *countingStore) FindByURL(ctx context.Context, url string) (content.Item, error) {
	c.findByURL++
	return c.Store.FindByURL(ctx, url)
}

func strPtr(v string) *string { return &v }

func newCached(t *testing.T) (*Store, *countingStore, *fakeClient) {
	t.Helper()
	inner := &countingStore{Store: memory.NewContentStore(manual.New(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)))}
	client := newFakeClient()
	return New(inner, client, time.Minute, zap.NewNop()), inner, client
}

func TestCreatePrimesCache(t *testing.T) {
	t.Parallel()

	store, inner, client := newCached(t)
	ctx := context.Background()

	created, err := store.Create(ctx, content.NewItem{URL: "https://example.com/a", Title: strPtr("A")})
	require.NoError(t, err)
	require.Contains(t, client.data, ItemKey(created.ID))
	require.Contains(t, client.data, URLKey(created.URL))
	require.Equal(t, time.Minute, client.ttls[ItemKey(created.ID)])

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
	require.Zero(t, inner.findByID)

	byURL, err := store.FindByURL(ctx, created.URL)
	require.NoError(t, err)
	require.Equal(t, created, byURL)
	require.Equal(t, 1, inner.findByURL)
}

func TestURLLookupIgnoresEntriesFromAnotherStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newFakeClient()
	clk := manual.New(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))

	first := New(memory.NewContentStore(clk), client, time.Minute, zap.NewNop())
	a, err := first.Create(ctx, content.NewItem{URL: "https://example.com/a"})
	require.NoError(t, err)
	require.Contains(t, client.data, URLKey(a.URL))

	// Same Redis, fresh backing store: the stale URL entry must not count.
	second := New(memory.NewContentStore(clk), client, time.Minute, zap.NewNop())
	_, err = second.FindByURL(ctx, a.URL)
	require.ErrorIs(t, err, content.ErrNotFound)

	b, err := second.Create(ctx, content.NewItem{URL: "https://example.com/b"})
	require.NoError(t, err)
	got, err := second.FindByURL(ctx, a.URL)
	require.ErrorIs(t, err, content.ErrNotFound)
	require.Empty(t, got.URL)

	byID, err := second.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/b", byID.URL)
}

func TestMissReadsThrough(t *testing.T) {
	t.Parallel()

	store, inner, client := newCached(t)
	ctx := context.Background()

	created, err := inner.Store.Create(ctx, content.NewItem{URL: "https://example.com/b"})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
	require.Equal(t, 1, inner.findByID)
	require.Contains(t, client.data, ItemKey(created.ID))

	_, err = store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 1, inner.findByID)
}

func TestNotFoundIsNotCached(t *testing.T) {
	t.Parallel()

	store, inner, client := newCached(t)
	_, err := store.FindByID(context.Background(), 404)
	require.ErrorIs(t, err, content.ErrNotFound)
	require.Equal(t, 1, inner.findByID)
	require.Empty(t, client.data)
}

func TestCacheErrorsFallThrough(t *testing.T) {
	t.Parallel()

	store, inner, client := newCached(t)
	ctx := context.Background()
	created, err := store.Create(ctx, content.NewItem{URL: "https://example.com/c"})
	require.NoError(t, err)

	client.getErr = errors.New("redis down")
	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
	require.Equal(t, 1, inner.findByID)
}

func TestCorruptEntryFallsThrough(t *testing.T) {
	t.Parallel()

	store, inner, client := newCached(t)
	ctx := context.Background()
	created, err := inner.Store.Create(ctx, content.NewItem{URL: "https://example.com/d"})
	require.NoError(t, err)
	client.data[ItemKey(created.ID)] = "{not json"

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	store, _, client := newCached(t)
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	client.pingErr = errors.New("no route")
	require.ErrorContains(t, store.Ping(ctx), "redis ping")

	require.NoError(t, store.Close())
	require.True(t, client.closed)
}

func TestListBypassesCache(t *testing.T) {
	t.Parallel()

	store, _, client := newCached(t)
	ctx := context.Background()
	_, err := store.Create(ctx, content.NewItem{URL: "https://example.com/e"})
	require.NoError(t, err)
	before := len(client.data)

	page, err := store.List(ctx, content.ListParams{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Len(t, client.data, before)
}
