package datapool

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultConnectionLimit = 10
	defaultMaxIdle         = 5
	defaultQueueLimit      = 20
	defaultIdleTimeout     = 30 * time.Second
	defaultConnectTimeout  = 10 * time.Second
	defaultAcquireTimeout  = 10 * time.Second
	defaultQueryTimeout    = 30 * time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheCapacity   = 500
	defaultCleanupInterval = 5 * time.Minute
)

// warmUpTarget caps how many connections the warm-up phase opens.
const warmUpTarget = 5

// Config controls pool sizing, timeouts, and the query cache.
// It is populated once at startup; there is no runtime reconfiguration.
type Config struct {
	// ConnectionLimit caps live connections. At most this many exist at any time.
	ConnectionLimit int

	// MaxIdle caps connections kept idle; surplus releases close instead.
	MaxIdle int

	// QueueLimit caps callers waiting for a connection. Beyond it,
	// acquisition fails fast instead of queueing unboundedly.
	QueueLimit int

	// IdleTimeout is how long an idle connection may sit before the next
	// acquisition discards and redials it.
	IdleTimeout time.Duration

	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration

	// AcquireTimeout bounds a single wait for a free connection.
	AcquireTimeout time.Duration

	// QueryTimeout bounds a single backing-store round trip.
	QueryTimeout time.Duration

	// CacheTTL is used when a cached query provides ttl <= 0.
	CacheTTL time.Duration

	// CacheCapacity bounds the query cache. A negative value selects the
	// unbounded store with janitor-based expiry only.
	CacheCapacity int

	// CleanupInterval controls the periodic expired-entry sweep.
	CleanupInterval time.Duration
}

// withDefaults fills unset (zero) values only; explicitly bad values are
// left in place for Validate to reject.
func (c Config) withDefaults() Config {
	if c.ConnectionLimit == 0 {
		c.ConnectionLimit = defaultConnectionLimit
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = defaultMaxIdle
	}
	if c.MaxIdle > c.ConnectionLimit && c.ConnectionLimit > 0 && c.MaxIdle == defaultMaxIdle {
		c.MaxIdle = c.ConnectionLimit
	}
	if c.QueueLimit == 0 {
		c.QueueLimit = defaultQueueLimit
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = defaultAcquireTimeout
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = defaultCacheCapacity
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = defaultCleanupInterval
	}
	return c
}

// Validate rejects configurations that cannot work. It runs at first use
// so a bad environment surfaces as ErrConfiguration, not a process crash.
func (c Config) Validate() error {
	if c.ConnectionLimit < 1 {
		return fmt.Errorf("%w: connection limit must be at least 1, got %d", ErrConfiguration, c.ConnectionLimit)
	}
	if c.MaxIdle < 0 {
		return fmt.Errorf("%w: max idle must not be negative, got %d", ErrConfiguration, c.MaxIdle)
	}
	if c.MaxIdle > c.ConnectionLimit {
		return fmt.Errorf("%w: max idle %d exceeds connection limit %d", ErrConfiguration, c.MaxIdle, c.ConnectionLimit)
	}
	if c.QueueLimit < 0 {
		return fmt.Errorf("%w: queue limit must not be negative, got %d", ErrConfiguration, c.QueueLimit)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: connect timeout must be positive, got %s", ErrConfiguration, c.ConnectTimeout)
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("%w: acquire timeout must be positive, got %s", ErrConfiguration, c.AcquireTimeout)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query timeout must be positive, got %s", ErrConfiguration, c.QueryTimeout)
	}
	return nil
}

// ConfigFromEnv reads DATAPOOL_* environment variables once. Unset
// variables fall back to defaults; malformed values fail with
// ErrConfiguration naming the offending variable.
func ConfigFromEnv() (Config, error) {
	cfg := Config{}
	var err error
	if cfg.ConnectionLimit, err = envInt("DATAPOOL_CONNECTION_LIMIT"); err != nil {
		return Config{}, err
	}
	if cfg.MaxIdle, err = envInt("DATAPOOL_MAX_IDLE"); err != nil {
		return Config{}, err
	}
	if cfg.QueueLimit, err = envInt("DATAPOOL_QUEUE_LIMIT"); err != nil {
		return Config{}, err
	}
	if cfg.CacheCapacity, err = envInt("DATAPOOL_CACHE_CAPACITY"); err != nil {
		return Config{}, err
	}
	if cfg.IdleTimeout, err = envDuration("DATAPOOL_IDLE_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.ConnectTimeout, err = envDuration("DATAPOOL_CONNECT_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.AcquireTimeout, err = envDuration("DATAPOOL_ACQUIRE_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.QueryTimeout, err = envDuration("DATAPOOL_QUERY_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDuration("DATAPOOL_CACHE_TTL"); err != nil {
		return Config{}, err
	}
	if cfg.CleanupInterval, err = envDuration("DATAPOOL_CLEANUP_INTERVAL"); err != nil {
		return Config{}, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envInt(name string) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrConfiguration, name, raw)
	}
	return n, nil
}

func envDuration(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	// Accept both Go duration strings ("30s") and bare milliseconds ("30000").
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrConfiguration, name, raw)
	}
	return d, nil
}
