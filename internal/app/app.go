// Package app wires configuration into long-lived services and runs the HTTP
// server with graceful draining.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/api"
	"github.com/JakeFAU/linkstash/internal/canonical"
	"github.com/JakeFAU/linkstash/internal/clock/system"
	"github.com/JakeFAU/linkstash/internal/config"
	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/ingest"
	"github.com/JakeFAU/linkstash/internal/lifecycle"
	"github.com/JakeFAU/linkstash/internal/listing"
	"github.com/JakeFAU/linkstash/internal/metrics"
	"github.com/JakeFAU/linkstash/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/linkstash/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/linkstash/internal/publisher/pubsub"
	"github.com/JakeFAU/linkstash/internal/storage/memory"
	"github.com/JakeFAU/linkstash/internal/storage/postgres"
	"github.com/JakeFAU/linkstash/internal/storage/rediscache"
	"github.com/JakeFAU/linkstash/internal/storage/sqlite"
)

const (
	redisRetryInterval = 200 * time.Millisecond
	redisMaxWait       = 5 * time.Second
	redisPingTimeout   = 2 * time.Second
	serverStopTimeout  = 10 * time.Second
)

// EventPublisher is a content.Publisher that owns resources.
type EventPublisher interface {
	content.Publisher
	Close() error
}

// App holds the shared services for the serve command.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       content.Store
	publisher   EventPublisher
	coordinator *lifecycle.Coordinator
	server      *api.Server
}

// New builds the store stack, publisher, engines and HTTP handler described
// by cfg. It fails fast if any backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := openPublisher(ctx, cfg.Publisher, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	opts := []ingest.Option{
		ingest.WithCanonicalizer(canonical.New()),
		ingest.WithLogger(logger.Named("ingest")),
	}
	if publisher != nil {
		opts = append(opts, ingest.WithPublisher(publisher))
	}
	coordinator := lifecycle.New(lifecycle.WithObserver(metrics.NewLifecycleObserver()))
	server := api.NewServer(
		store,
		ingest.New(store, opts...),
		listing.New(store),
		coordinator,
		cfg.Server.RequestTimeout,
		logger.Named("api"),
		api.WithRateLimiter(ratelimit.New(ratelimit.Config{
			RPS:   cfg.Server.RateLimit.RPS,
			Burst: cfg.Server.RateLimit.Burst,
		})),
	)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("redis_cache", cfg.Cache.Redis.Enabled),
		zap.String("publisher", cfg.Publisher.Provider),
	)
	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		publisher:   publisher,
		coordinator: coordinator,
		server:      server,
	}, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (content.Store, error) {
	clock := system.New()
	var (
		store content.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; items are lost on restart")
		store = memory.NewContentStore(clock)
	case config.DriverSQLite:
		logger.Info("opening sqlite database", zap.String("path", cfg.Storage.SQLite.Path))
		store, err = sqlite.New(ctx, cfg.Storage.SQLite.Path, clock)
	case config.DriverPostgres:
		logger.Info("connecting to postgres", zap.String("table", cfg.Storage.Postgres.Table))
		var pg *postgres.ContentStore
		pg, err = postgres.NewContentStore(ctx, postgres.Config{
			DSN:             cfg.Storage.Postgres.DSN,
			Table:           cfg.Storage.Postgres.Table,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			MaxConnLifetime: cfg.Storage.Postgres.MaxConnLifetime,
		}, clock)
		if err == nil {
			if err = pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
			}
		}
		store = pg
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	redisCfg := cfg.Cache.Redis
	if !redisCfg.Enabled {
		return store, nil
	}
	client, err := rediscache.Connect(ctx, rediscache.ConnectOptions{
		Addr:           redisCfg.Addr,
		Username:       redisCfg.Username,
		Password:       redisCfg.Password,
		DB:             redisCfg.DB,
		ConnectTimeout: redisCfg.ConnectTimeout,
		RetryInterval:  redisRetryInterval,
		MaxWait:        redisMaxWait,
		PingTimeout:    redisPingTimeout,
	}, logger.Named("redis"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init redis cache: %w", err)
	}
	return rediscache.New(store, client, redisCfg.TTL, logger.Named("cache")), nil
}

func openPublisher(ctx context.Context, cfg config.PublisherConfig, logger *zap.Logger) (EventPublisher, error) {
	switch cfg.Provider {
	case config.PublisherNone:
		return nil, nil
	case config.PublisherMemory:
		logger.Info("using in-memory event publisher")
		return memorypublisher.New(), nil
	case config.PublisherPubSub:
		logger.Info("connecting to pubsub", zap.String("topic", cfg.PubSub.Topic))
		p, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", cfg.Provider)
	}
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Coordinator exposes the admission gate.
func (a *App) Coordinator() *lifecycle.Coordinator {
	return a.coordinator
}

// Publisher returns the configured event publisher, or nil.
func (a *App) Publisher() EventPublisher {
	return a.publisher
}

// Run listens on the configured port and serves until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is canceled, then stops admitting
// API requests, waits up to server.drain_timeout for in-flight ones to settle
// and shuts the listener down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutdown initiated", zap.Int64("in_flight", a.coordinator.InFlight()))
	a.coordinator.Shutdown()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), a.cfg.Server.DrainTimeout)
	defer cancelDrain()
	if err := a.coordinator.Wait(drainCtx); err != nil {
		a.logger.Warn("drain timeout elapsed with requests in flight",
			zap.Int64("in_flight", a.coordinator.InFlight()), zap.Error(err))
	} else {
		a.logger.Info("in-flight requests drained")
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), serverStopTimeout)
	defer cancelStop()
	if err := srv.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

// Close releases the publisher and store.
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("error closing publisher", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing store", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
