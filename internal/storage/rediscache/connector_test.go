package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testOptions() ConnectOptions {
	return ConnectOptions{
		Addr:           "localhost:6379",
		ConnectTimeout: time.Second,
		RetryInterval:  time.Millisecond,
		MaxWait:        4 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}
}

func TestConnectOptionsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testOptions().validate())

	mutations := map[string]func(*ConnectOptions){
		"addr":           func(o *ConnectOptions) { o.Addr = "" },
		"connectTimeout": func(o *ConnectOptions) { o.ConnectTimeout = 0 },
		"retryInterval":  func(o *ConnectOptions) { o.RetryInterval = 0 },
		"maxWait":        func(o *ConnectOptions) { o.MaxWait = -time.Second },
		"pingTimeout":    func(o *ConnectOptions) { o.PingTimeout = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			opts := testOptions()
			mutate(&opts)
			require.Error(t, opts.validate())
		})
	}
}

func TestWaitForPingRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.pingErr = errors.New("connection refused")
	go func() {
		time.Sleep(10 * time.Millisecond)
		client.mu.Lock()
		client.pingErr = nil
		client.mu.Unlock()
	}()

	require.NoError(t, waitForPing(context.Background(), client, testOptions(), zap.NewNop()))
	client.mu.Lock()
	defer client.mu.Unlock()
	require.Greater(t, client.pings, 1)
}

func TestWaitForPingTimesOut(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.pingErr = errors.New("connection refused")
	opts := testOptions()
	opts.ConnectTimeout = 20 * time.Millisecond

	err := waitForPing(context.Background(), client, opts, zap.NewNop())
	require.ErrorContains(t, err, "redis unavailable")
	require.ErrorContains(t, err, "connection refused")
}
