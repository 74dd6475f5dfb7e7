package datapool

import "errors"

// Sentinel errors returned by the pool and manager. Callers match them
// with errors.Is; wrapped variants carry the underlying cause.
var (
	// ErrPoolUnavailable means the pool is shutting down, or the wait
	// queue is full and the request was rejected rather than queued.
	ErrPoolUnavailable = errors.New("datapool: pool unavailable")

	// ErrAcquireTimeout means a single acquisition attempt exceeded its deadline.
	ErrAcquireTimeout = errors.New("datapool: acquire timed out")

	// ErrAcquireExhausted means every retry attempt failed; it wraps the
	// last underlying acquisition error.
	ErrAcquireExhausted = errors.New("datapool: acquire attempts exhausted")

	// ErrExecution means the backing-store call itself failed or timed out.
	ErrExecution = errors.New("datapool: statement execution failed")

	// ErrConfiguration means the configuration is unusable. It is surfaced
	// at first use rather than crashing the process eagerly.
	ErrConfiguration = errors.New("datapool: invalid configuration")
)
