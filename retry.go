package datapool

import (
	"context"
	"fmt"
	"time"

	"github.com/goforj/datapool/poolcore"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
)

// acquireWithRetry wraps pool acquisition with bounded retries and
// exponential backoff, probing each acquired connection for liveness.
// A connection that fails its probe is discarded, never reused. The
// backoff sequence is initialDelay, 2x, 4x, ... with no sleep after the
// final attempt; exhaustion wraps the last underlying error in
// ErrAcquireExhausted. Backoff sleeps are cancellable through ctx.
func acquireWithRetry(ctx context.Context, pool *Pool, clock Clock, maxAttempts int, initialDelay time.Duration) (poolcore.Conn, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := pool.Acquire(ctx)
		if err == nil {
			probeErr := conn.Ping(ctx)
			if probeErr == nil {
				return conn, nil
			}
			pool.Discard(conn)
			lastErr = probeErr
		} else {
			lastErr = err
		}
		if attempt == maxAttempts {
			break
		}
		delay := initialDelay << (attempt - 1)
		if err := clock.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAcquireExhausted, maxAttempts, lastErr)
}
