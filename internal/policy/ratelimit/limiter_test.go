package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	t.Parallel()

	// 1 token per ~17 minutes keeps refills out of the test window.
	l := New(Config{RPS: 0.001, Burst: 2})
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	require.True(t, l.Allow("b"), "buckets are per client")
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("a"))
	}
	require.Empty(t, l.limiters)
}

func TestLimiterResetsWhenFull(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1})
	for i := 0; i < maxClients; i++ {
		l.limiters[string(rune(i))] = nil
	}
	require.True(t, l.Allow("fresh"))
	require.Len(t, l.limiters, 1)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.001, Burst: 1})
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, serve("10.0.0.1:1234").Code)
	rec := serve("10.0.0.1:5678")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "rate limit exceeded")

	require.Equal(t, http.StatusOK, serve("10.0.0.2:1234").Code)
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	require.Equal(t, "::1", clientKey(req))
	req.RemoteAddr = "pipe"
	require.Equal(t, "pipe", clientKey(req))
}
