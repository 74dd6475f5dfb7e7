// Package redisconn adapts a go-redis client into a datapool dialer.
// Each Dial takes a dedicated connection out of the client so the
// datapool, not go-redis, decides reuse and bounding.
package redisconn

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/goforj/datapool/poolcore"
)

// Client captures the subset of redis.Client used by the dialer.
type Client interface {
	Conn() *redis.Conn
}

// Dialer hands out dedicated redis connections.
type Dialer struct {
	client Client
}

// New builds a redis dialer around an existing client.
func New(client Client) (*Dialer, error) {
	if client == nil {
		return nil, errors.New("redis dialer requires a client")
	}
	return &Dialer{client: client}, nil
}

// Driver implements poolcore.Dialer.
func (d *Dialer) Driver() poolcore.Driver { return poolcore.DriverRedis }

// Dial takes a dedicated connection and verifies it responds.
func (d *Dialer) Dial(ctx context.Context) (poolcore.Conn, error) {
	rc := d.client.Conn()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &conn{rc: rc}, nil
}

type conn struct {
	rc *redis.Conn
}

func (c *conn) Ping(ctx context.Context) error {
	return c.rc.Ping(ctx).Err()
}

// Query treats the statement as a redis command name and params as its
// arguments. Replies are normalized into rows under the "result" column;
// a nil reply (missing key) yields an empty result set.
func (c *conn) Query(ctx context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	args := make([]any, 0, len(params)+1)
	args = append(args, statement)
	args = append(args, params...)
	value, err := c.rc.Do(ctx, args...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []poolcore.Row{}, nil
		}
		return nil, err
	}
	return replyRows(value), nil
}

func (c *conn) Close() error { return c.rc.Close() }

func replyRows(value any) []poolcore.Row {
	switch v := value.(type) {
	case nil:
		return []poolcore.Row{}
	case []any:
		rows := make([]poolcore.Row, 0, len(v))
		for _, item := range v {
			rows = append(rows, poolcore.Row{"result": normalizeReply(item)})
		}
		return rows
	default:
		return []poolcore.Row{{"result": normalizeReply(v)}}
	}
}

func normalizeReply(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
