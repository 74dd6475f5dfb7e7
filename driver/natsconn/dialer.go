// Package natsconn adapts NATS request/reply into a datapool dialer.
// A statement is a subject; params are JSON-encoded into the request
// payload and the JSON reply becomes the result rows.
package natsconn

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/goforj/datapool/poolcore"
)

const defaultFlushTimeout = 2 * time.Second

// Config configures a NATS-backed dialer.
type Config struct {
	// URL of the NATS server, e.g. nats.DefaultURL.
	URL string
	// Options are passed through to nats.Connect.
	Options []nats.Option
}

// Dialer opens one NATS connection per Dial.
type Dialer struct {
	cfg Config
}

// New validates the configuration.
func New(cfg Config) (*Dialer, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats dialer requires a server url")
	}
	return &Dialer{cfg: cfg}, nil
}

// Driver implements poolcore.Dialer.
func (d *Dialer) Driver() poolcore.Driver { return poolcore.DriverNATS }

// Dial opens a fresh connection, honoring the ctx deadline as the
// connect timeout.
func (d *Dialer) Dial(ctx context.Context) (poolcore.Conn, error) {
	opts := d.cfg.Options
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(append([]nats.Option{}, opts...), nats.Timeout(time.Until(deadline)))
	}
	nc, err := nats.Connect(d.cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &conn{nc: nc}, nil
}

type conn struct {
	nc *nats.Conn
}

// Ping verifies liveness with a round-trip flush.
func (c *conn) Ping(ctx context.Context) error {
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	return c.nc.FlushTimeout(timeout)
}

func (c *conn) Query(ctx context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	var payload []byte
	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		payload = encoded
	}
	msg, err := c.nc.RequestWithContext(ctx, statement, payload)
	if err != nil {
		return nil, err
	}
	return decodeReply(msg.Data), nil
}

func (c *conn) Close() error {
	c.nc.Close()
	return nil
}

// decodeReply accepts a JSON array of objects, a single JSON object, or
// falls back to wrapping the raw payload.
func decodeReply(data []byte) []poolcore.Row {
	if len(data) == 0 {
		return []poolcore.Row{}
	}
	var rows []poolcore.Row
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows
	}
	var row poolcore.Row
	if err := json.Unmarshal(data, &row); err == nil {
		return []poolcore.Row{row}
	}
	return []poolcore.Row{{"result": string(data)}}
}
