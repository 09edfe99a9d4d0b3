package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Asaas        AsaasConfig
	Reconcile    ReconcileConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"LECTO_APP_ENV" required:"true"`
	Port         string `envconfig:"LECTO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LECTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LECTO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LECTO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LECTO_DB_DSN"`
	Driver string `envconfig:"LECTO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LECTO_DB_HOST"`
	LegacyPort     int    `envconfig:"LECTO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LECTO_DB_USER"`
	LegacyPassword string `envconfig:"LECTO_DB_PASSWORD"`
	LegacyName     string `envconfig:"LECTO_DB_NAME"`
	LegacySSLMode  string `envconfig:"LECTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LECTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LECTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LECTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LECTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LECTO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LECTO_REDIS_ADDR"`
	Password     string        `envconfig:"LECTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"LECTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LECTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LECTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LECTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LECTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LECTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LECTO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LECTO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LECTO_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LECTO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LECTO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LECTO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LECTO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LECTO_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LECTO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LECTO_AUTO_MIGRATE" default:"false"`
}

// AsaasConfig carries credentials for the payment gateway.
type AsaasConfig struct {
	APIKey         string        `envconfig:"LECTO_ASAAS_API_KEY"`
	WebhookToken   string        `envconfig:"LECTO_ASAAS_WEBHOOK_TOKEN"`
	Env            string        `envconfig:"LECTO_ASAAS_ENV" default:"sandbox"`
	RequestTimeout time.Duration `envconfig:"LECTO_ASAAS_REQUEST_TIMEOUT" default:"15s"`
	PixExpiry      time.Duration `envconfig:"LECTO_ASAAS_PIX_EXPIRY" default:"30m"`
	BoletoDueDays  int           `envconfig:"LECTO_ASAAS_BOLETO_DUE_DAYS" default:"3"`
}

// Environment returns the normalized Asaas environment (sandbox/production).
func (a AsaasConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(a.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// ReconcileConfig holds the per-rail pending-age thresholds for the
// reconciliation sweep. Values are configuration, not constants: the
// gateway settles each rail on a very different clock.
type ReconcileConfig struct {
	CardAge     time.Duration `envconfig:"LECTO_RECONCILE_CARD_AGE" default:"15m"`
	PixAge      time.Duration `envconfig:"LECTO_RECONCILE_PIX_AGE" default:"2h"`
	BoletoAge   time.Duration `envconfig:"LECTO_RECONCILE_BOLETO_AGE" default:"72h"`
	BatchSize   int           `envconfig:"LECTO_RECONCILE_BATCH_SIZE" default:"100"`
	RunInterval time.Duration `envconfig:"LECTO_RECONCILE_INTERVAL" default:"10m"`
	WebhookTTL  time.Duration `envconfig:"LECTO_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LECTO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LECTO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LECTO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LECTO_PUBSUB_ORDERS_TOPIC" default:"lecto-order-events"`
	OrdersSubscription string `envconfig:"LECTO_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LECTO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LECTO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LECTO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
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
