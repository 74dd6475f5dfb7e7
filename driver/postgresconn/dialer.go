// Package postgresconn wires the pgx stdlib driver into the sqlconn
// dialer core.
package postgresconn

import (
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/goforj/datapool/driver/sqlconn"
	"github.com/goforj/datapool/poolcore"
)

// Config configures a postgres-backed dialer.
type Config struct {
	poolcore.BaseConfig
	DSN string
}

// New builds a postgres dialer using the pgx stdlib driver.
func New(cfg Config) (poolcore.Dialer, error) {
	return sqlconn.New(sqlconn.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "pgx",
		DSN:        cfg.DSN,
	}, poolcore.DriverPostgres)
}
