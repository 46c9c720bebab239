package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkstash/internal/clock/manual"
	"github.com/JakeFAU/linkstash/internal/content"
)

var epoch = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }

func openTestStore(t *testing.T, clock content.Clock) *ContentStore {
	t.Helper()
	store, err := New(context.Background(), filepath.Join(t.TempDir(), "linkstash.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestCreateAndFind(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, manual.New(epoch.Add(123*time.Nanosecond)))
	ctx := context.Background()

	created, err := store.Create(ctx, content.NewItem{
		URL:    "https://example.com/post",
		Title:  strPtr("Post"),
		Author: strPtr("  "),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, created.ID)
	require.Equal(t, epoch, created.CreatedAt, "created_at is stored at microsecond resolution")
	require.Nil(t, created.Author)

	byURL, err := store.FindByURL(ctx, "https://example.com/post")
	require.NoError(t, err)
	require.Equal(t, created, byURL)

	byID, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, byID)
	require.Nil(t, byID.Body)

	_, err = store.FindByID(ctx, 42)
	require.ErrorIs(t, err, content.ErrNotFound)
	_, err = store.FindByURL(ctx, "https://example.com/none")
	require.ErrorIs(t, err, content.ErrNotFound)

	require.NoError(t, store.Ping(ctx))
}

func TestCreateDuplicateURL(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, nil)
	ctx := context.Background()

	_, err := store.Create(ctx, content.NewItem{URL: "https://example.com/a"})
	require.NoError(t, err)
	_, err = store.Create(ctx, content.NewItem{URL: "https://example.com/a", Title: strPtr("x")})
	require.ErrorIs(t, err, content.ErrDuplicateURL)

	page, err := store.List(ctx, content.ListParams{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestCreatedAtIsMonotonic(t *testing.T) {
	t.Parallel()

	clk := manual.New(epoch)
	store := openTestStore(t, clk)
	ctx := context.Background()

	first, err := store.Create(ctx, content.NewItem{URL: "https://example.com/1"})
	require.NoError(t, err)
	clk.Set(epoch.Add(-time.Hour))
	second, err := store.Create(ctx, content.NewItem{URL: "https://example.com/2"})
	require.NoError(t, err)
	require.Equal(t, first.CreatedAt, second.CreatedAt)
	require.Greater(t, second.ID, first.ID)
}

func TestListOrderingFiltersAndTotals(t *testing.T) {
	t.Parallel()

	clk := manual.New(epoch)
	store := openTestStore(t, clk)
	ctx := context.Background()

	// ids 1 and 2 share a timestamp; ids 3 and 4 follow one minute apart.
	for i, url := range []string{"https://e.com/1", "https://e.com/2", "https://e.com/3", "https://e.com/4"} {
		if i >= 2 {
			clk.Advance(time.Minute)
		}
		_, err := store.Create(ctx, content.NewItem{URL: url})
		require.NoError(t, err)
	}

	all, err := store.List(ctx, content.ListParams{Limit: 50})
	require.NoError(t, err)
	require.EqualValues(t, 4, all.Total)
	require.Equal(t, []int64{4, 3, 2, 1}, ids(all.Items))

	first, err := store.List(ctx, content.ListParams{Limit: 3})
	require.NoError(t, err)
	rest, err := store.List(ctx, content.ListParams{Limit: 3, Offset: 3})
	require.NoError(t, err)
	require.Equal(t, []int64{4, 3, 2}, ids(first.Items))
	require.Equal(t, []int64{1}, ids(rest.Items))

	since := epoch.Add(time.Minute)
	until := epoch.Add(time.Minute)
	window, err := store.List(ctx, content.ListParams{Limit: 50, Since: &since, Until: &until})
	require.NoError(t, err)
	require.EqualValues(t, 1, window.Total)
	require.Equal(t, []int64{3}, ids(window.Items))

	inverted, err := store.List(ctx, content.ListParams{Limit: 50, Since: &until, Until: &epoch})
	require.NoError(t, err)
	require.Zero(t, inverted.Total)
	require.NotNil(t, inverted.Items)
	require.Empty(t, inverted.Items)
}

func TestConcurrentCreateSameURL(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, nil)
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, content.NewItem{URL: "https://example.com/race"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, dupes int
	for err := range errs {
		switch {
		case err == nil:
			created++
		default:
			require.ErrorIs(t, err, content.ErrDuplicateURL)
			dupes++
		}
	}
	require.Equal(t, 1, created)
	require.Equal(t, writers-1, dupes)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	store, err := New(ctx, path, manual.New(epoch))
	require.NoError(t, err)
	created, err := store.Create(ctx, content.NewItem{URL: "https://example.com/keep", Body: strPtr("body")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := New(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func ids(items []content.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
