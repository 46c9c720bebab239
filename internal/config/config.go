// Package config loads and validates linkstash configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LINKSTASH_SERVER_PORT.
const EnvPrefix = "LINKSTASH"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Publisher providers.
const (
	PublisherNone   = "none"
	PublisherMemory = "memory"
	PublisherPubSub = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Client    ClientConfig    `mapstructure:"client"`
}

// ServerConfig controls HTTP server behavior and shutdown draining.
type ServerConfig struct {
	Port              int             `mapstructure:"port"`
	ReadHeaderTimeout time.Duration   `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration   `mapstructure:"request_timeout"`
	DrainTimeout      time.Duration   `mapstructure:"drain_timeout"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles POST /api/v1/content per client IP. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// StorageConfig selects and configures the content store.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig controls the pgx pool.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// CacheConfig wraps optional caches.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the item lookup cache.
type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Addr           string        `mapstructure:"addr"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	TTL            time.Duration `mapstructure:"ttl"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// PublisherConfig selects where content.created events go.
type PublisherConfig struct {
	Provider string       `mapstructure:"provider"`
	PubSub   PubSubConfig `mapstructure:"pubsub"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ClientConfig is read by the CLI subcommands.
type ClientConfig struct {
	ServiceURL string        `mapstructure:"service_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Publisher.Provider = strings.ToLower(strings.TrimSpace(cfg.Publisher.Provider))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.drain_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit.rps", 0.0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite.path", "linkstash.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.table", "content_items")
	v.SetDefault("storage.postgres.max_conns", 10)
	v.SetDefault("storage.postgres.min_conns", 0)
	v.SetDefault("storage.postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.ttl", 10*time.Minute)
	v.SetDefault("cache.redis.connect_timeout", 10*time.Second)
	v.SetDefault("publisher.provider", PublisherNone)
	v.SetDefault("publisher.pubsub.project_id", "")
	v.SetDefault("publisher.pubsub.topic", "linkstash-content")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("client.service_url", "http://localhost:3000")
	v.SetDefault("client.timeout", 10*time.Second)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Server.DrainTimeout <= 0 {
		return fmt.Errorf("server.drain_timeout must be > 0")
	}
	if c.Server.RateLimit.RPS < 0 {
		return fmt.Errorf("server.rate_limit.rps must be >= 0")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, sqlite, postgres", c.Storage.Driver)
	}
	if c.Cache.Redis.Enabled {
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be set when the redis cache is enabled")
		}
		if c.Cache.Redis.TTL <= 0 {
			return fmt.Errorf("cache.redis.ttl must be > 0")
		}
		if c.Storage.Driver == DriverMemory {
			return fmt.Errorf("cache.redis cannot be combined with the memory storage driver")
		}
	}
	switch c.Publisher.Provider {
	case PublisherNone, PublisherMemory:
	case PublisherPubSub:
		if c.Publisher.PubSub.ProjectID == "" || c.Publisher.PubSub.Topic == "" {
			return fmt.Errorf("publisher.pubsub.project_id and publisher.pubsub.topic are required for the pubsub provider")
		}
	default:
		return fmt.Errorf("publisher.provider %q is not one of none, memory, pubsub", c.Publisher.Provider)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
