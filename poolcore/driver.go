package poolcore

// Driver identifies a backing-store backend.
type Driver string

const (
	DriverNull     Driver = "null"
	DriverFake     Driver = "fake"
	DriverSQL      Driver = "sql"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
	DriverRedis    Driver = "redis"
	DriverNATS     Driver = "nats"
	DriverDynamo   Driver = "dynamodb"
)
