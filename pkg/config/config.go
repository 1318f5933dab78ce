package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Eventing EventingConfig
	Remote   RemoteConfig
	Webhook  WebhookConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Features FeatureFlagsConfig
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
	Env          string `envconfig:"STOCKBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKBRIDGE_SERVICE_KIND" default:"webhook-receiver"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKBRIDGE_DB_DSN"`
	Driver string `envconfig:"STOCKBRIDGE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOCKBRIDGE_DB_HOST"`
	Port     int    `envconfig:"STOCKBRIDGE_DB_PORT" default:"5432"`
	User     string `envconfig:"STOCKBRIDGE_DB_USER"`
	Password string `envconfig:"STOCKBRIDGE_DB_PASSWORD"`
	Name     string `envconfig:"STOCKBRIDGE_DB_NAME"`
	SSLMode  string `envconfig:"STOCKBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKBRIDGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SyncConfig tunes the propagation queue and the per-shop throttle.
type SyncConfig struct {
	FlushInterval      time.Duration `envconfig:"STOCKBRIDGE_SYNC_FLUSH_INTERVAL" default:"2s"`
	FlushBatchSize     int           `envconfig:"STOCKBRIDGE_SYNC_FLUSH_BATCH_SIZE" default:"50"`
	BackoffBase        time.Duration `envconfig:"STOCKBRIDGE_SYNC_BACKOFF_BASE" default:"1s"`
	BackoffMax         time.Duration `envconfig:"STOCKBRIDGE_SYNC_BACKOFF_MAX" default:"60s"`
	DeadLetterErrors   int           `envconfig:"STOCKBRIDGE_SYNC_DEAD_LETTER_ERRORS" default:"5"`
	DelayHighWaterMark time.Duration `envconfig:"STOCKBRIDGE_SYNC_DELAY_HIGH_WATER" default:"10s"`
	LowWaterFraction   float64       `envconfig:"STOCKBRIDGE_SYNC_LOW_WATER_FRACTION" default:"0.1"`
}

type EventingConfig struct {
	DedupTTL  time.Duration `envconfig:"STOCKBRIDGE_EVENTING_DEDUP_TTL" default:"24h"`
	ItemIDTTL time.Duration `envconfig:"STOCKBRIDGE_EVENTING_ITEM_ID_TTL" default:"12h"`
}

// RemoteConfig points at the destination commerce platform's admin API.
type RemoteConfig struct {
	BaseURL     string        `envconfig:"STOCKBRIDGE_REMOTE_BASE_URL" required:"true"`
	APIVersion  string        `envconfig:"STOCKBRIDGE_REMOTE_API_VERSION" default:"2024-10"`
	HTTPTimeout time.Duration `envconfig:"STOCKBRIDGE_REMOTE_HTTP_TIMEOUT" default:"30s"`
}

type WebhookConfig struct {
	SharedSecret string `envconfig:"STOCKBRIDGE_WEBHOOK_SHARED_SECRET" required:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOCKBRIDGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"STOCKBRIDGE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"STOCKBRIDGE_PUBSUB_EVENTS_TOPIC" default:"sb-inbound-events"`
	EventsSubscription string `envconfig:"STOCKBRIDGE_PUBSUB_EVENTS_SUBSCRIPTION" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOCKBRIDGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOCKBRIDGE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if required[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
