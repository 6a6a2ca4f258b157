package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Telemetry     TelemetryConfig
	Ingest        IngestConfig
	Mirror        MirrorConfig
	Mail          MailConfig
	SMS           SMSConfig
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
	Env          string `envconfig:"RASTROMAX_APP_ENV" required:"true"`
	Port         string `envconfig:"RASTROMAX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RASTROMAX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RASTROMAX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RASTROMAX_DB_DSN"`
	Driver string `envconfig:"RASTROMAX_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"RASTROMAX_DB_HOST"`
	Port     int    `envconfig:"RASTROMAX_DB_PORT" default:"5432"`
	User     string `envconfig:"RASTROMAX_DB_USER"`
	Password string `envconfig:"RASTROMAX_DB_PASSWORD"`
	Name     string `envconfig:"RASTROMAX_DB_NAME"`
	SSLMode  string `envconfig:"RASTROMAX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RASTROMAX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RASTROMAX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RASTROMAX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RASTROMAX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RASTROMAX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RASTROMAX_REDIS_ADDR"`
	Password     string        `envconfig:"RASTROMAX_REDIS_PASSWORD"`
	DB           int           `envconfig:"RASTROMAX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RASTROMAX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RASTROMAX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RASTROMAX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RASTROMAX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RASTROMAX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RASTROMAX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RASTROMAX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RASTROMAX_JWT_EXPIRATION_MINUTES" default:"1440"`
	SessionTTLMinutes int    `envconfig:"RASTROMAX_SESSION_TTL_MINUTES" default:"1500"`
}

// SessionTTL returns the server-side session lifetime. It outlives the access
// token so the middleware can distinguish an expired token from a revoked one.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RASTROMAX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RASTROMAX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RASTROMAX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RASTROMAX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RASTROMAX_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"RASTROMAX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"RASTROMAX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"RASTROMAX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RASTROMAX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RASTROMAX_AUTO_MIGRATE" default:"false"`
}

type TelemetryConfig struct {
	GatewayURL   string        `envconfig:"RASTROMAX_TELEMETRY_GATEWAY_URL"`
	PollInterval time.Duration `envconfig:"RASTROMAX_TELEMETRY_POLL_INTERVAL" default:"10s"`
	FetchTimeout time.Duration `envconfig:"RASTROMAX_TELEMETRY_FETCH_TIMEOUT" default:"15s"`
}

type IngestConfig struct {
	Enabled    bool   `envconfig:"RASTROMAX_INGEST_ENABLED" default:"true"`
	ListenAddr string `envconfig:"RASTROMAX_INGEST_LISTEN_ADDR" default:":5023"`
}

type MirrorConfig struct {
	Enabled bool `envconfig:"RASTROMAX_MIRROR_ENABLED" default:"true"`
}

type MailConfig struct {
	FromEmail string `envconfig:"RASTROMAX_MAIL_FROM_EMAIL" default:"suporte@rastromax.com.br"`
}

type SMSConfig struct {
	SenderID string `envconfig:"RASTROMAX_SMS_SENDER_ID" default:"RASTROMAX"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	discrete := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if discrete[env] == "" {
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
