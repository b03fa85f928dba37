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
	WidgetAuth   WidgetAuthConfig
	Pricing      PricingConfig
	Reservation  ReservationConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
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
	Env          string `envconfig:"BOOKINGTMS_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKINGTMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKINGTMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKINGTMS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOOKINGTMS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKINGTMS_DB_DSN"`
	Driver string `envconfig:"BOOKINGTMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKINGTMS_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKINGTMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKINGTMS_DB_USER"`
	LegacyPassword string `envconfig:"BOOKINGTMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKINGTMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKINGTMS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKINGTMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKINGTMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKINGTMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKINGTMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKINGTMS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOOKINGTMS_REDIS_ADDR"`
	Password     string        `envconfig:"BOOKINGTMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKINGTMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKINGTMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKINGTMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKINGTMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKINGTMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKINGTMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOOKINGTMS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOOKINGTMS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOOKINGTMS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TokenTTL returns the admin token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type WidgetAuthConfig struct {
	ArgonMemoryKB    int `envconfig:"BOOKINGTMS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BOOKINGTMS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BOOKINGTMS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BOOKINGTMS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BOOKINGTMS_ARGON_KEY_LEN" default:"32"`
}

type PricingConfig struct {
	DefaultTaxRate float64       `envconfig:"BOOKINGTMS_DEFAULT_TAX_RATE" default:"0.08"`
	CacheTTL       time.Duration `envconfig:"BOOKINGTMS_PRICING_CACHE_TTL" default:"5m"`
}

type ReservationConfig struct {
	HoldTTL       time.Duration `envconfig:"BOOKINGTMS_RESERVATION_HOLD_TTL" default:"15m"`
	SweepInterval time.Duration `envconfig:"BOOKINGTMS_RESERVATION_SWEEP_INTERVAL" default:"1m"`
}

type RateLimitConfig struct {
	QuoteWindow   time.Duration `envconfig:"BOOKINGTMS_RATE_LIMIT_QUOTE_WINDOW" default:"1m"`
	QuoteIPLimit  int           `envconfig:"BOOKINGTMS_RATE_LIMIT_QUOTE_IP_LIMIT" default:"120"`
	ReserveWindow time.Duration `envconfig:"BOOKINGTMS_RATE_LIMIT_RESERVE_WINDOW" default:"1m"`
	ReserveLimit  int           `envconfig:"BOOKINGTMS_RATE_LIMIT_RESERVE_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BOOKINGTMS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BOOKINGTMS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BOOKINGTMS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BOOKINGTMS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BOOKINGTMS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PricingTopic        string `envconfig:"BOOKINGTMS_PUBSUB_PRICING_TOPIC" default:"btms-pricing-events"`
	PricingSubscription string `envconfig:"BOOKINGTMS_PUBSUB_PRICING_SUBSCRIPTION"`
	BookingTopic        string `envconfig:"BOOKINGTMS_PUBSUB_BOOKING_TOPIC" default:"btms-booking-events"`
	BookingSubscription string `envconfig:"BOOKINGTMS_PUBSUB_BOOKING_SUBSCRIPTION"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BOOKINGTMS_STRIPE_API_KEY"`
	Secret string `envconfig:"BOOKINGTMS_STRIPE_SECRET"`
	Env    string `envconfig:"BOOKINGTMS_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BOOKINGTMS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BOOKINGTMS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BOOKINGTMS_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"BOOKINGTMS_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
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
