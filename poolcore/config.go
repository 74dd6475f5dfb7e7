package poolcore

import "time"

// BaseConfig contains shared, backend-agnostic dialer configuration.
type BaseConfig struct {
	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration
	// QueryTimeout bounds a single backing-store round trip.
	QueryTimeout time.Duration
}

// WithDefaults fills zero values with conservative defaults.
func (c BaseConfig) WithDefaults() BaseConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 30 * time.Second
	}
	return c
}
