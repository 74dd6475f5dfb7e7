// Package mysqlconn wires the go-sql-driver/mysql driver into the
// sqlconn dialer core.
package mysqlconn

import (
	_ "github.com/go-sql-driver/mysql"

	"github.com/goforj/datapool/driver/sqlconn"
	"github.com/goforj/datapool/poolcore"
)

// Config configures a mysql-backed dialer.
type Config struct {
	poolcore.BaseConfig
	DSN string
}

// New builds a mysql dialer.
func New(cfg Config) (poolcore.Dialer, error) {
	return sqlconn.New(sqlconn.Config{
		BaseConfig: cfg.BaseConfig,
		DriverName: "mysql",
		DSN:        cfg.DSN,
	}, poolcore.DriverMySQL)
}
