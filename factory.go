package datapool

import (
	"context"
	"fmt"

	"github.com/goforj/datapool/driver/dynamoconn"
	"github.com/goforj/datapool/driver/mysqlconn"
	"github.com/goforj/datapool/driver/natsconn"
	"github.com/goforj/datapool/driver/postgresconn"
	"github.com/goforj/datapool/driver/redisconn"
	"github.com/goforj/datapool/driver/sqliteconn"
	"github.com/goforj/datapool/poolcore"
)

// DialerConfig selects and configures a backend driver.
type DialerConfig struct {
	Driver poolcore.Driver

	poolcore.BaseConfig

	// DSN is used by the sql-family drivers.
	DSN string

	// RedisClient is required by DriverRedis.
	RedisClient redisconn.Client

	// NATSURL is required by DriverNATS.
	NATSURL string

	// Dynamo settings; Client may be nil to construct one.
	DynamoClient   dynamoconn.API
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
}

// NewDialer returns a concrete dialer for the requested driver. A
// driver that fails to initialize yields a dialer that keeps its
// identity and surfaces the construction error on every dial, so the
// failure shows up through the normal acquisition path and health
// reporting instead of at wiring time.
func NewDialer(ctx context.Context, cfg DialerConfig) poolcore.Dialer {
	switch cfg.Driver {
	case poolcore.DriverPostgres:
		return orErrorDialer(cfg.Driver)(postgresconn.New(postgresconn.Config{BaseConfig: cfg.BaseConfig, DSN: cfg.DSN}))
	case poolcore.DriverMySQL:
		return orErrorDialer(cfg.Driver)(mysqlconn.New(mysqlconn.Config{BaseConfig: cfg.BaseConfig, DSN: cfg.DSN}))
	case poolcore.DriverSQLite:
		return orErrorDialer(cfg.Driver)(sqliteconn.New(sqliteconn.Config{BaseConfig: cfg.BaseConfig, DSN: cfg.DSN}))
	case poolcore.DriverRedis:
		d, err := redisconn.New(cfg.RedisClient)
		return orErrorDialer(cfg.Driver)(d, err)
	case poolcore.DriverNATS:
		d, err := natsconn.New(natsconn.Config{URL: cfg.NATSURL})
		return orErrorDialer(cfg.Driver)(d, err)
	case poolcore.DriverDynamo:
		d, err := dynamoconn.New(ctx, dynamoconn.Config{
			Client:   cfg.DynamoClient,
			Table:    cfg.DynamoTable,
			Region:   cfg.DynamoRegion,
			Endpoint: cfg.DynamoEndpoint,
		})
		return orErrorDialer(cfg.Driver)(d, err)
	default:
		return &errorDialer{driver: cfg.Driver, err: fmt.Errorf("%w: unknown driver %q", ErrConfiguration, cfg.Driver)}
	}
}

func orErrorDialer(driver poolcore.Driver) func(poolcore.Dialer, error) poolcore.Dialer {
	return func(d poolcore.Dialer, err error) poolcore.Dialer {
		if err != nil {
			return &errorDialer{driver: driver, err: err}
		}
		return d
	}
}
