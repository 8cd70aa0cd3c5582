package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	FeatureFlags  FeatureFlagsConfig
	Replenishment ReplenishmentConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Replenishment.VAT(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LARDER_APP_ENV" required:"true"`
	Port         string `envconfig:"LARDER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LARDER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LARDER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LARDER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LARDER_DB_DSN"`
	Driver string `envconfig:"LARDER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LARDER_DB_HOST"`
	LegacyPort     int    `envconfig:"LARDER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LARDER_DB_USER"`
	LegacyPassword string `envconfig:"LARDER_DB_PASSWORD"`
	LegacyName     string `envconfig:"LARDER_DB_NAME"`
	LegacySSLMode  string `envconfig:"LARDER_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"LARDER_SQLITE_PATH" default:"larder.db"`

	MaxOpenConns    int           `envconfig:"LARDER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LARDER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LARDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LARDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LARDER_REDIS_URL"`
	Address      string        `envconfig:"LARDER_REDIS_ADDR"`
	Password     string        `envconfig:"LARDER_REDIS_PASSWORD"`
	DB           int           `envconfig:"LARDER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LARDER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LARDER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LARDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LARDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LARDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether enough settings exist to dial redis.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LARDER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LARDER_AUTO_MIGRATE" default:"false"`
}

type ReplenishmentConfig struct {
	VATRate string `envconfig:"LARDER_VAT_RATE" default:"0.22"`
}

// VAT parses the configured flat VAT rate.
func (r ReplenishmentConfig) VAT() (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.VATRate)
	if raw == "" {
		return DefaultVATRate, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", EnvVATRate, raw, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be within [0, 1), got %s", EnvVATRate, raw)
	}
	return rate, nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LARDER_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"LARDER_CRON_LOCK_TTL" default:"55m"`
	// AlertCooldown suppresses repeat low-stock alerts for one ingredient.
	AlertCooldown       time.Duration `envconfig:"LARDER_CRON_ALERT_COOLDOWN" default:"24h"`
	OutboxRetentionDays int           `envconfig:"LARDER_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LARDER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LARDER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LARDER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"LARDER_PUBSUB_ORDERS_TOPIC" default:"larder-purchase-orders"`
	AlertsTopic string `envconfig:"LARDER_PUBSUB_ALERTS_TOPIC" default:"larder-stock-alerts"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LARDER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LARDER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LARDER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LARDER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
