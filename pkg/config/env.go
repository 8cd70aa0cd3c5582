package config

import "github.com/shopspring/decimal"

const (
	EnvPrefix = "LARDER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv    = "LARDER_APP_ENV"
	EnvPort      = "LARDER_APP_PORT"
	EnvDBDSN     = "LARDER_DB_DSN"
	EnvDBHost    = "LARDER_DB_HOST"
	EnvDBUser    = "LARDER_DB_USER"
	EnvDBName    = "LARDER_DB_NAME"
	EnvUseSQLite = "LARDER_USE_SQLITE"
	EnvRedisURL  = "LARDER_REDIS_URL"
	EnvVATRate   = "LARDER_VAT_RATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// DefaultVATRate is the flat rate applied to purchase order subtotals.
var DefaultVATRate = decimal.RequireFromString("0.22")
