// Package sqliteconn wires the cgo-free modernc sqlite driver into the
// sqlconn dialer core. Useful for local development and tests.
package sqliteconn

import (
	_ "modernc.org/sqlite"

	"github.com/goforj/datapool/driver/sqlconn"
	"github.com/goforj/datapool/poolcore"
)

// Config configures a sqlite-backed dialer.
type Config struct {
	poolcore.BaseConfig
	DSN string
}

// New builds a sqlite dialer.
func New(cfg Config) (poolcore.Dialer, error) {
	return sqlconn.New(sqlconn.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "sqlite",
		DSN:        cfg.DSN,
	}, poolcore.DriverSQLite)
}
