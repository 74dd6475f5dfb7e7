// Package poolfake provides a deterministic in-memory dialer and clock
// for exercising pool behavior without external services.
package poolfake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goforj/datapool/poolcore"
)

// Dialer is a scriptable backend: dial, ping, and query outcomes are
// controlled per test, and every side effect is counted for assertions.
type Dialer struct {
	mu sync.Mutex

	dialErr      error
	failDials    int
	dialDelay    time.Duration
	pingErr      error
	failPings    int
	queryErr     error
	rows         []poolcore.Row
	queryHandler func(statement string, params ...any) ([]poolcore.Row, error)

	dials   int
	pings   int
	queries int
	open    int
	closed  int
}

// New creates a healthy fake dialer.
func New() *Dialer {
	return &Dialer{}
}

// Driver implements poolcore.Dialer.
func (d *Dialer) Driver() poolcore.Driver { return poolcore.DriverFake }

// Dial honors the scripted failure plan, then returns a live fake conn.
func (d *Dialer) Dial(ctx context.Context) (poolcore.Conn, error) {
	d.mu.Lock()
	d.dials++
	delay := d.dialDelay
	var err error
	if d.dialErr != nil && (d.failDials == 0 || d.dials <= d.failDials) {
		err = d.dialErr
	}
	d.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	d.mu.Lock()
	d.open++
	d.mu.Unlock()
	return &Conn{dialer: d}, nil
}

// FailDials makes Dial fail with err. When n > 0 only the first n dials
// fail; n == 0 fails every dial until the script is cleared.
func (d *Dialer) FailDials(err error, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErr = err
	d.failDials = n
}

// FailPings makes connection probes fail with err. When n > 0 only the
// first n pings fail.
func (d *Dialer) FailPings(err error, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pingErr = err
	d.failPings = n
}

// FailQueries makes every query fail with err.
func (d *Dialer) FailQueries(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryErr = err
}

// Respond sets the rows every query returns.
func (d *Dialer) Respond(rows []poolcore.Row) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = rows
}

// Handle installs a per-statement query handler.
func (d *Dialer) Handle(fn func(statement string, params ...any) ([]poolcore.Row, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryHandler = fn
}

// SetDialDelay makes every dial take at least delay.
func (d *Dialer) SetDialDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialDelay = delay
}

// Dials reports how many dial attempts were made.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// Pings reports how many liveness probes ran.
func (d *Dialer) Pings() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pings
}

// Queries reports how many statements executed.
func (d *Dialer) Queries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queries
}

// Open reports connections dialed and not yet closed.
func (d *Dialer) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Closed reports connections closed so far.
func (d *Dialer) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// AssertOpen fails the test unless exactly n connections are open.
func (d *Dialer) AssertOpen(t *testing.T, n int) {
	t.Helper()
	if got := d.Open(); got != n {
		t.Fatalf("expected %d open connections, got %d", n, got)
	}
}

// AssertQueries fails the test unless exactly n statements executed.
func (d *Dialer) AssertQueries(t *testing.T, n int) {
	t.Helper()
	if got := d.Queries(); got != n {
		t.Fatalf("expected %d queries, got %d", n, got)
	}
}

// Conn is a connection minted by the fake dialer.
type Conn struct {
	dialer *Dialer
	mu     sync.Mutex
	closed bool
}

// Ping honors the dialer's scripted probe failures.
func (c *Conn) Ping(context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("poolfake: ping on closed connection")
	}
	c.mu.Unlock()

	d := c.dialer
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pings++
	if d.pingErr != nil && (d.failPings == 0 || d.pings <= d.failPings) {
		return d.pingErr
	}
	return nil
}

// Query returns the scripted rows or failure.
func (c *Conn) Query(_ context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("poolfake: query on closed connection")
	}
	c.mu.Unlock()

	d := c.dialer
	d.mu.Lock()
	d.queries++
	handler := d.queryHandler
	queryErr := d.queryErr
	rows := d.rows
	d.mu.Unlock()

	if handler != nil {
		return handler(statement, params...)
	}
	if queryErr != nil {
		return nil, queryErr
	}
	return poolcore.CloneRows(rows), nil
}

// Close marks the connection closed exactly once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("poolfake: double close")
	}
	c.closed = true
	c.mu.Unlock()

	c.dialer.mu.Lock()
	c.dialer.open--
	c.dialer.closed++
	c.dialer.mu.Unlock()
	return nil
}

// Clock is a manual clock: sleeps return immediately, record their
// requested duration, and advance the fake time.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewClock starts the fake clock at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now reports the fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep records d, advances the fake time, and returns immediately
// unless ctx is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// Sleeps returns the recorded backoff durations in order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
