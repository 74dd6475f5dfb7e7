package datapool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goforj/datapool/poolcore"
)

// Manager owns at most one live Pool plus the query cache in front of
// it. Construct one at the composition root and inject it into callers;
// hook Shutdown into the process signal handler.
type Manager struct {
	cfg      Config
	dialer   poolcore.Dialer
	observer Observer
	clock    Clock
	cache    QueryCache

	retryAttempts int
	retryDelay    time.Duration

	mu          sync.Mutex
	pool        *Pool
	building    chan struct{}
	buildErr    error
	cleanupStop chan struct{}

	creations atomic.Uint64
}

// NewManager builds a manager from an explicit configuration and a
// backend dialer. Configuration problems surface as ErrConfiguration on
// first use, not here.
func NewManager(cfg Config, dialer poolcore.Dialer, opts ...Option) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:           cfg,
		dialer:        dialer,
		clock:         realClock{},
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NewQueryCache(cfg.CacheCapacity, cfg.CacheTTL)
	}
	return m
}

// NewManagerFromEnv reads DATAPOOL_* configuration from the process
// environment once and builds a manager around it.
func NewManagerFromEnv(dialer poolcore.Dialer, opts ...Option) (*Manager, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewManager(cfg, dialer, opts...), nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Driver reports the backend driver.
func (m *Manager) Driver() poolcore.Driver { return m.dialer.Driver() }

// Creations reports how many pools this manager has constructed.
// Single-flight creation keeps this at one per pool lifetime regardless
// of concurrent first callers.
func (m *Manager) Creations() uint64 { return m.creations.Load() }

// getPool returns the live pool, creating it single-flight on first
// use. Exactly one concurrent caller constructs; the rest wait for that
// pool or the same creation failure.
func (m *Manager) getPool(ctx context.Context) (*Pool, error) {
	for {
		m.mu.Lock()
		if m.pool != nil {
			pool := m.pool
			m.mu.Unlock()
			return pool, nil
		}
		if m.building != nil {
			done := m.building
			m.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			m.mu.Lock()
			pool, err := m.pool, m.buildErr
			m.mu.Unlock()
			if pool != nil {
				return pool, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}
		done := make(chan struct{})
		m.building = done
		m.mu.Unlock()

		pool, err := m.buildPool(ctx)

		m.mu.Lock()
		m.pool = pool
		m.buildErr = err
		m.building = nil
		if pool != nil && m.cleanupStop == nil {
			m.cleanupStop = make(chan struct{})
			go m.cleanupLoop(m.cleanupStop)
		}
		m.mu.Unlock()
		close(done)
		return pool, err
	}
}

func (m *Manager) buildPool(ctx context.Context) (*Pool, error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}
	m.creations.Add(1)
	pool := NewPool(m.dialer, m.cfg, m.observer)
	pool.WarmUp(ctx)
	return pool, nil
}

// cleanupLoop drives periodic expired-entry sweeps so cache memory is
// bounded independent of read traffic.
func (m *Manager) cleanupLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			m.cache.Cleanup()
			m.observeQuery(context.Background(), "cache_cleanup", "", false, nil, start)
		case <-stop:
			return
		}
	}
}

// AcquireWithRetry leases a probed connection using the manager's retry
// policy (3 attempts, 1s initial backoff unless overridden). The caller
// must hand the connection back via Release.
func (m *Manager) AcquireWithRetry(ctx context.Context) (poolcore.Conn, error) {
	return m.AcquireWithRetryPolicy(ctx, m.retryAttempts, m.retryDelay)
}

// AcquireWithRetryPolicy is AcquireWithRetry with an explicit policy.
func (m *Manager) AcquireWithRetryPolicy(ctx context.Context, maxAttempts int, initialDelay time.Duration) (poolcore.Conn, error) {
	pool, err := m.getPool(ctx)
	if err != nil {
		return nil, err
	}
	return acquireWithRetry(ctx, pool, m.clock, maxAttempts, initialDelay)
}

// Release returns a previously acquired connection to the pool.
func (m *Manager) Release(conn poolcore.Conn) {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	pool.Release(conn)
}

// Execute runs one opaque statement: acquire with retry, query under
// QueryTimeout, release on every exit path. Statement failures are
// never retried here; they wrap ErrExecution and propagate.
func (m *Manager) Execute(ctx context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	pool, err := m.getPool(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := acquireWithRetry(ctx, pool, m.clock, m.retryAttempts, m.retryDelay)
	if err != nil {
		return nil, err
	}
	defer pool.Release(conn)

	queryCtx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	rows, queryErr := conn.Query(queryCtx, statement, params...)
	m.observeQuery(ctx, "execute", statement, false, queryErr, start)
	if queryErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, queryErr)
	}
	if rows == nil {
		rows = []poolcore.Row{}
	}
	return rows, nil
}

// QueryOptions adjusts a single ExecuteCached call.
type QueryOptions struct {
	// TTL overrides the configured default when positive.
	TTL time.Duration
	// BypassCache skips the read-through lookup; the result still
	// populates the cache.
	BypassCache bool
	// CacheKey overrides the derived statement+params key.
	CacheKey string
}

// ExecuteCached serves a live cached result when present, otherwise
// executes and populates the cache under a deterministic key. Failed
// executions never populate the cache. A params set that cannot be
// serialized into a key degrades to an uncached execution rather than
// failing the call.
func (m *Manager) ExecuteCached(ctx context.Context, statement string, params []any, opts QueryOptions) ([]poolcore.Row, error) {
	key := opts.CacheKey
	cacheable := true
	if key == "" {
		var err error
		key, err = cacheKey(statement, params)
		if err != nil {
			cacheable = false
			m.observeQuery(ctx, "cache_degrade", statement, false, err, time.Now())
		}
	}

	if cacheable && !opts.BypassCache {
		start := time.Now()
		if rows, ok := m.cache.Get(key); ok {
			m.observeQuery(ctx, "cache_get", key, true, nil, start)
			return rows, nil
		}
		m.observeQuery(ctx, "cache_get", key, false, nil, start)
	}

	rows, err := m.Execute(ctx, statement, params...)
	if err != nil {
		return nil, err
	}
	if cacheable {
		m.cache.Set(key, rows, opts.TTL)
	}
	return rows, nil
}

// Invalidate clears cached results. An empty pattern clears everything;
// a non-empty pattern removes keys containing it (best effort). Returns
// how many entries were removed.
func (m *Manager) Invalidate(pattern string) int {
	if pattern == "" {
		removed := m.cache.Size()
		m.cache.Clear()
		return removed
	}
	return m.cache.DeleteMatching(pattern)
}

// Cache exposes the query cache for direct reads and population.
func (m *Manager) Cache() QueryCache { return m.cache }

// Shutdown drains the pool and clears cached results. It is idempotent
// and safe to call concurrently; only the call that owns the live pool
// performs the drain. A later first use builds a fresh pool.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.buildErr = nil
	stop := m.cleanupStop
	m.cleanupStop = nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	m.cache.Clear()
	if pool == nil {
		return nil
	}
	return pool.Shutdown(ctx)
}

// cacheKey derives a deterministic key from statement text plus
// JSON-serialized parameters.
func cacheKey(statement string, params []any) (string, error) {
	if len(params) == 0 {
		return statement, nil
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return statement + "|" + string(encoded), nil
}

func (m *Manager) observeQuery(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if m.observer == nil {
		return
	}
	m.observer.OnQueryOp(ctx, op, key, hit, err, time.Since(start))
}
