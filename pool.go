package datapool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goforj/datapool/poolcore"
)

// PoolState tracks the pool lifecycle.
type PoolState string

const (
	StateUninitialized PoolState = "uninitialized"
	StateWarming       PoolState = "warming"
	StateReady         PoolState = "ready"
	StateShuttingDown  PoolState = "shutting-down"
)

// shutdownPollInterval is how often Shutdown re-checks for borrowed
// connections still in flight.
const shutdownPollInterval = 10 * time.Millisecond

type idleConn struct {
	conn  poolcore.Conn
	since time.Time
}

// Pool owns a bounded set of live connections to one backend.
// Connections are leased via Acquire and must come back through Release
// or Discard. Total live connections never exceed ConnectionLimit.
type Pool struct {
	dialer   poolcore.Dialer
	cfg      Config
	observer Observer

	mu      sync.Mutex
	state   PoolState
	total   int
	waiting int
	warmed  bool
	warming bool

	// idle is sized to ConnectionLimit so a release never blocks; the
	// MaxIdle ceiling is enforced at release time.
	idle chan idleConn

	dials atomic.Uint64
}

// NewPool builds a pool around dialer. The pool starts in the warming
// state; WarmUp (or the first failed warm-up) moves it to ready.
func NewPool(dialer poolcore.Dialer, cfg Config, observer Observer) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		dialer:   dialer,
		cfg:      cfg,
		observer: observer,
		state:    StateWarming,
		idle:     make(chan idleConn, cfg.ConnectionLimit),
	}
}

// State reports the current lifecycle state.
func (p *Pool) State() PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Acquire leases a connection: an idle one when available, a fresh dial
// while under the connection limit, otherwise a bounded queue wait.
// It fails fast with ErrPoolUnavailable while shutting down or when the
// wait queue is full, and with ErrAcquireTimeout when the wait exceeds
// AcquireTimeout. Cancellation via ctx never leaks a connection: a conn
// handed to an abandoned waiter goes straight back to idle.
func (p *Pool) Acquire(ctx context.Context) (poolcore.Conn, error) {
	start := time.Now()
	conn, err := p.acquire(ctx)
	p.observePool(ctx, "acquire", err, start)
	return conn, err
}

func (p *Pool) acquire(ctx context.Context) (poolcore.Conn, error) {
	for {
		p.mu.Lock()
		if p.state == StateShuttingDown {
			p.mu.Unlock()
			return nil, ErrPoolUnavailable
		}

		select {
		case ic := <-p.idle:
			if p.cfg.IdleTimeout > 0 && time.Since(ic.since) > p.cfg.IdleTimeout {
				p.total--
				p.mu.Unlock()
				_ = ic.conn.Close()
				continue
			}
			p.mu.Unlock()
			return ic.conn, nil
		default:
		}

		if p.total < p.cfg.ConnectionLimit {
			p.total++
			p.mu.Unlock()
			conn, err := p.dial(ctx)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, err
			}
			return conn, nil
		}

		if p.waiting >= p.cfg.QueueLimit {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: wait queue full (%d waiting)", ErrPoolUnavailable, p.cfg.QueueLimit)
		}
		p.waiting++
		p.mu.Unlock()

		conn, err := p.waitForIdle(ctx)
		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
		return conn, err
	}
}

// waitForIdle blocks until an idle connection arrives, the acquire
// timeout fires, or ctx is cancelled.
func (p *Pool) waitForIdle(ctx context.Context) (poolcore.Conn, error) {
	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()
	select {
	case ic := <-p.idle:
		if ctx.Err() != nil {
			// Abandoned waiter: hand the conn back instead of leaking it.
			p.Release(ic.conn)
			return nil, ctx.Err()
		}
		return ic.conn, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no connection within %s", ErrAcquireTimeout, p.cfg.AcquireTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) dial(ctx context.Context) (poolcore.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	start := time.Now()
	conn, err := p.dialer.Dial(dialCtx)
	p.dials.Add(1)
	p.observePool(ctx, "dial", err, start)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Release returns a borrowed connection. While shutting down, or when
// the idle set is already at MaxIdle with nobody waiting, the
// connection closes instead.
func (p *Pool) Release(conn poolcore.Conn) {
	if conn == nil {
		return
	}
	start := time.Now()
	p.mu.Lock()
	if p.state == StateShuttingDown {
		p.total--
		p.mu.Unlock()
		_ = conn.Close()
		p.observePool(context.Background(), "release", nil, start)
		return
	}
	if p.waiting == 0 && len(p.idle) >= p.cfg.MaxIdle {
		p.total--
		p.mu.Unlock()
		_ = conn.Close()
		p.observePool(context.Background(), "release", nil, start)
		return
	}
	p.idle <- idleConn{conn: conn, since: start}
	p.mu.Unlock()
	p.observePool(context.Background(), "release", nil, start)
}

// Discard drops a borrowed connection that failed a liveness probe.
// It never returns to idle.
func (p *Pool) Discard(conn poolcore.Conn) {
	if conn == nil {
		return
	}
	start := time.Now()
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
	_ = conn.Close()
	p.observePool(context.Background(), "discard", nil, start)
}

// WarmUp opens up to min(5, MaxIdle) connections, probes each, and
// returns all of them to idle. Partial failures are non-fatal: whatever
// opened still lands in idle, and the warmed flag is set only when every
// probe succeeded. While the flag is unset a later call may try again.
func (p *Pool) WarmUp(ctx context.Context) {
	p.mu.Lock()
	if p.warmed || p.warming || p.state == StateShuttingDown {
		p.mu.Unlock()
		return
	}
	p.warming = true
	p.mu.Unlock()

	start := time.Now()
	target := warmUpTarget
	if p.cfg.MaxIdle < target {
		target = p.cfg.MaxIdle
	}

	opened := make([]poolcore.Conn, 0, target)
	var warmErr error
	for i := 0; i < target; i++ {
		conn, err := p.acquire(ctx)
		if err != nil {
			warmErr = err
			break
		}
		if err := conn.Ping(ctx); err != nil {
			p.Discard(conn)
			warmErr = err
			break
		}
		opened = append(opened, conn)
	}
	for _, conn := range opened {
		p.Release(conn)
	}

	p.mu.Lock()
	p.warming = false
	if warmErr == nil {
		p.warmed = true
	}
	if p.state == StateWarming {
		p.state = StateReady
	}
	p.mu.Unlock()
	p.observePool(ctx, "warmup", warmErr, start)
}

// Shutdown transitions to shutting-down, closes every live connection,
// then resets to uninitialized so a fresh pool can be built later.
// Concurrent calls while a drain is in progress are no-ops. Borrowed
// connections are waited for until ctx expires; stragglers close on
// their eventual Release.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateShuttingDown || p.state == StateUninitialized {
		p.mu.Unlock()
		return nil
	}
	p.state = StateShuttingDown
	p.mu.Unlock()

	start := time.Now()
	var err error

drain:
	for {
		select {
		case ic := <-p.idle:
			_ = ic.conn.Close()
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
		default:
			break drain
		}
	}

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()
	for {
		p.mu.Lock()
		remaining := p.total
		p.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case ic := <-p.idle:
			_ = ic.conn.Close()
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
		case <-ticker.C:
		case <-ctx.Done():
			err = ctx.Err()
			goto done
		}
	}

done:
	p.mu.Lock()
	// A drain that timed out leaves the pool shutting-down so stragglers
	// still close on their eventual Release.
	if p.total == 0 {
		p.state = StateUninitialized
	}
	p.warmed = false
	p.mu.Unlock()
	p.observePool(ctx, "shutdown", err, start)
	return err
}

// PoolStats is a point-in-time snapshot of pool counters.
type PoolStats struct {
	Active         int
	Idle           int
	Total          int
	WaitQueueDepth int
	WarmedUp       bool
	Dials          uint64
}

// Stats reads the live counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	idle := len(p.idle)
	return PoolStats{
		Active:         p.total - idle,
		Idle:           idle,
		Total:          p.total,
		WaitQueueDepth: p.waiting,
		WarmedUp:       p.warmed,
		Dials:          p.dials.Load(),
	}
}

func (p *Pool) observePool(ctx context.Context, op string, err error, start time.Time) {
	if p.observer == nil {
		return
	}
	p.observer.OnPoolOp(ctx, op, p.dialer.Driver(), err, time.Since(start))
}
