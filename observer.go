package datapool

import (
	"context"
	"time"

	"github.com/goforj/datapool/poolcore"
)

// Observer receives events for pool and query operations.
// It is the logging seam: attach your logger here. Warm-up failures and
// cache degradations are reported through it instead of failing callers.
type Observer interface {
	// OnPoolOp fires after dial, acquire, release, discard, warmup, and
	// shutdown operations.
	OnPoolOp(ctx context.Context, op string, driver poolcore.Driver, err error, dur time.Duration)
	// OnQueryOp fires after execute and cache operations. hit reports
	// whether a cached result was served.
	OnQueryOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration)
}

// PoolOpFunc adapts a function to the pool half of Observer.
type PoolOpFunc func(ctx context.Context, op string, driver poolcore.Driver, err error, dur time.Duration)

// QueryOpFunc adapts a function to the query half of Observer.
type QueryOpFunc func(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration)

// ObserverFuncs bundles optional callbacks into an Observer.
type ObserverFuncs struct {
	Pool  PoolOpFunc
	Query QueryOpFunc
}

// OnPoolOp implements Observer.
func (o ObserverFuncs) OnPoolOp(ctx context.Context, op string, driver poolcore.Driver, err error, dur time.Duration) {
	if o.Pool == nil {
		return
	}
	o.Pool(ctx, op, driver, err, dur)
}

// OnQueryOp implements Observer.
func (o ObserverFuncs) OnQueryOp(ctx context.Context, op string, key string, hit bool, err error, dur time.Duration) {
	if o.Query == nil {
		return
	}
	o.Query(ctx, op, key, hit, err, dur)
}
