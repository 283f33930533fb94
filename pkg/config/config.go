package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable the platform reads.
const EnvPrefix = "STOCKLANE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	Outbox  OutboxConfig
	Webhook WebhookConfig
	Recon   ReconConfig
	Exports ExportsConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKLANE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKLANE_DB_DSN"`
	Driver string `envconfig:"STOCKLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKLANE_DB_USER"`
	LegacyPassword string `envconfig:"STOCKLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"STOCKLANE_DB_AUTO_MIGRATE" default:"false"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either STOCKLANE_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.LegacyUser),
		url.QueryEscape(d.LegacyPassword),
		d.LegacyHost,
		d.LegacyPort,
		d.LegacyName,
		d.LegacySSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKLANE_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type OutboxConfig struct {
	BatchSize      int  `envconfig:"STOCKLANE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int  `envconfig:"STOCKLANE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int  `envconfig:"STOCKLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PubSubEnabled  bool `envconfig:"STOCKLANE_OUTBOX_PUBSUB_ENABLED" default:"false"`
}

type WebhookConfig struct {
	BatchSize       int           `envconfig:"STOCKLANE_WEBHOOK_BATCH_SIZE" default:"25"`
	PollIntervalMS  int           `envconfig:"STOCKLANE_WEBHOOK_POLL_INTERVAL_MS" default:"1000"`
	MaxAttempts     int           `envconfig:"STOCKLANE_WEBHOOK_MAX_ATTEMPTS" default:"8"`
	InitialBackoff  time.Duration `envconfig:"STOCKLANE_WEBHOOK_INITIAL_BACKOFF" default:"30s"`
	MaxBackoff      time.Duration `envconfig:"STOCKLANE_WEBHOOK_MAX_BACKOFF" default:"1h"`
	RequestTimeout  time.Duration `envconfig:"STOCKLANE_WEBHOOK_REQUEST_TIMEOUT" default:"10s"`
	DisableAfterMax bool          `envconfig:"STOCKLANE_WEBHOOK_DISABLE_AFTER_MAX" default:"false"`
}

type ReconConfig struct {
	Interval time.Duration `envconfig:"STOCKLANE_RECON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"STOCKLANE_RECON_LOCK_TTL" default:"55m"`
}

type ExportsConfig struct {
	BatchSize int `envconfig:"STOCKLANE_EXPORTS_BATCH_SIZE" default:"500"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOCKLANE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"STOCKLANE_PUBSUB_DOMAIN_TOPIC" default:"inventory-domain-events"`
}
