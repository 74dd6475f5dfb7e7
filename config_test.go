package datapool

import (
	"errors"
	"testing"
	"time"

	"github.com/goforj/datapool/poolfake"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.ConnectionLimit != 10 {
		t.Fatalf("connection limit = %d, want 10", cfg.ConnectionLimit)
	}
	if cfg.MaxIdle != 5 {
		t.Fatalf("max idle = %d, want 5", cfg.MaxIdle)
	}
	if cfg.QueueLimit != 20 {
		t.Fatalf("queue limit = %d, want 20", cfg.QueueLimit)
	}
	if cfg.AcquireTimeout != 10*time.Second {
		t.Fatalf("acquire timeout = %s, want 10s", cfg.AcquireTimeout)
	}
	if cfg.QueryTimeout != 30*time.Second {
		t.Fatalf("query timeout = %s, want 30s", cfg.QueryTimeout)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %s, want 5m", cfg.CacheTTL)
	}
	if cfg.CacheCapacity != 500 {
		t.Fatalf("cache capacity = %d, want 500", cfg.CacheCapacity)
	}
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := Config{
		ConnectionLimit: 2,
		MaxIdle:         1,
		QueueLimit:      3,
		QueryTimeout:    time.Second,
		CacheCapacity:   -1,
	}.withDefaults()

	if cfg.ConnectionLimit != 2 || cfg.MaxIdle != 1 || cfg.QueueLimit != 3 {
		t.Fatalf("explicit sizing overwritten: %+v", cfg)
	}
	if cfg.QueryTimeout != time.Second {
		t.Fatalf("explicit timeout overwritten: %s", cfg.QueryTimeout)
	}
	// Negative capacity is the unbounded-cache selector, not an unset value.
	if cfg.CacheCapacity != -1 {
		t.Fatalf("unbounded capacity overwritten: %d", cfg.CacheCapacity)
	}
}

func TestConfigWithDefaultsClampsDefaultedMaxIdle(t *testing.T) {
	cfg := Config{ConnectionLimit: 3}.withDefaults()
	if cfg.MaxIdle != 3 {
		t.Fatalf("defaulted max idle should clamp to the limit, got %d", cfg.MaxIdle)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative connection limit", Config{ConnectionLimit: -1}},
		{"negative max idle", Config{MaxIdle: -2}},
		{"max idle above limit", Config{ConnectionLimit: 2, MaxIdle: 4}},
		{"negative queue limit", Config{QueueLimit: -1}},
		{"negative acquire timeout", Config{AcquireTimeout: -time.Second}},
		{"negative query timeout", Config{QueryTimeout: -time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.withDefaults().Validate()
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}

	if err := (Config{}).withDefaults().Validate(); err != nil {
		t.Fatalf("defaults must validate, got %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATAPOOL_CONNECTION_LIMIT", "3")
	t.Setenv("DATAPOOL_MAX_IDLE", "2")
	t.Setenv("DATAPOOL_ACQUIRE_TIMEOUT", "1500")
	t.Setenv("DATAPOOL_QUERY_TIMEOUT", "45s")
	t.Setenv("DATAPOOL_CACHE_TTL", "2m")
	t.Setenv("DATAPOOL_CACHE_CAPACITY", "50")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("config from env failed: %v", err)
	}
	if cfg.ConnectionLimit != 3 || cfg.MaxIdle != 2 {
		t.Fatalf("unexpected sizing: %+v", cfg)
	}
	// Bare numbers are milliseconds; duration strings parse as written.
	if cfg.AcquireTimeout != 1500*time.Millisecond {
		t.Fatalf("acquire timeout = %s, want 1.5s", cfg.AcquireTimeout)
	}
	if cfg.QueryTimeout != 45*time.Second {
		t.Fatalf("query timeout = %s, want 45s", cfg.QueryTimeout)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Fatalf("cache ttl = %s, want 2m", cfg.CacheTTL)
	}
	if cfg.CacheCapacity != 50 {
		t.Fatalf("cache capacity = %d, want 50", cfg.CacheCapacity)
	}
	// Unset variables fall back to defaults.
	if cfg.QueueLimit != 20 {
		t.Fatalf("queue limit = %d, want default 20", cfg.QueueLimit)
	}
}

func TestConfigFromEnvRejectsMalformedValues(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		t.Setenv("DATAPOOL_CONNECTION_LIMIT", "lots")
		if _, err := ConfigFromEnv(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})
	t.Run("duration", func(t *testing.T) {
		t.Setenv("DATAPOOL_QUERY_TIMEOUT", "soon")
		if _, err := ConfigFromEnv(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})
	t.Run("invalid combination", func(t *testing.T) {
		t.Setenv("DATAPOOL_CONNECTION_LIMIT", "2")
		t.Setenv("DATAPOOL_MAX_IDLE", "9")
		if _, err := ConfigFromEnv(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ErrConfiguration, got %v", err)
		}
	})
}

func TestNewManagerFromEnv(t *testing.T) {
	t.Setenv("DATAPOOL_CONNECTION_LIMIT", "2")
	t.Setenv("DATAPOOL_MAX_IDLE", "1")

	m, err := NewManagerFromEnv(poolfake.New())
	if err != nil {
		t.Fatalf("manager from env failed: %v", err)
	}
	if cfg := m.Config(); cfg.ConnectionLimit != 2 || cfg.MaxIdle != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("DATAPOOL_CONNECTION_LIMIT", "none")
	if _, err := NewManagerFromEnv(poolfake.New()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
