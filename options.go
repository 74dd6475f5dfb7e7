package datapool

import "time"

// Option mutates Manager construction.
type Option func(*Manager)

// WithObserver attaches an observer to receive pool and query events.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// WithClock overrides the clock used by the retry loop. Intended for tests.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithRetryPolicy overrides the default acquisition retry policy.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(m *Manager) {
		if maxAttempts > 0 {
			m.retryAttempts = maxAttempts
		}
		if initialDelay > 0 {
			m.retryDelay = initialDelay
		}
	}
}

// WithQueryCache replaces the query cache implementation.
func WithQueryCache(c QueryCache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}
