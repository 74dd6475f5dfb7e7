// Package sqlconn provides a database/sql-backed dialer core shared by
// the postgres, mysql, and sqlite driver packages.
package sqlconn

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goforj/datapool/poolcore"
)

// Config configures a database/sql-backed dialer.
type Config struct {
	poolcore.BaseConfig
	DriverName string
	DSN        string
}

// Dialer hands out individual driver-level connections. The *sql.DB
// handle serves only as a connection factory: its own pooling is
// disabled because the datapool owns bounding and reuse.
type Dialer struct {
	db     *sql.DB
	driver poolcore.Driver
}

// New opens the database handle and verifies connectivity once.
func New(cfg Config, driver poolcore.Driver) (*Dialer, error) {
	if cfg.DriverName == "" || cfg.DSN == "" {
		return nil, errors.New("sql dialer requires driver name and dsn")
	}
	cfg.BaseConfig = cfg.BaseConfig.WithDefaults()
	db, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	// Leased conns are pinned with db.Conn; nothing should linger in the
	// handle's own idle set once released.
	db.SetMaxIdleConns(0)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Dialer{db: db, driver: driver}, nil
}

// Driver implements poolcore.Dialer.
func (d *Dialer) Driver() poolcore.Driver { return d.driver }

// Dial pins one connection out of the handle.
func (d *Dialer) Dial(ctx context.Context) (poolcore.Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

// Close releases the shared database handle.
func (d *Dialer) Close() error { return d.db.Close() }

type conn struct {
	c *sql.Conn
}

func (c *conn) Ping(ctx context.Context) error {
	return c.c.PingContext(ctx)
}

func (c *conn) Query(ctx context.Context, statement string, params ...any) ([]poolcore.Row, error) {
	rows, err := c.c.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *conn) Close() error { return c.c.Close() }

// scanRows flattens a result set into opaque records keyed by column name.
func scanRows(rows *sql.Rows) ([]poolcore.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []poolcore.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(poolcore.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
