// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Session store backends
const (
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Config represents the application configuration
type Config struct {
	APIName        string `env:"FIN_API_APP_NAME" envDefault:"Finance API"`
	APIVersion     string `env:"FIN_API_APP_VERSION" envDefault:"v1"`
	ServerPort     string `env:"FIN_API_SERVER_PORT" envDefault:"5000"`
	ServerLogLevel string `env:"FIN_API_SERVER_LOG_LEVEL" envDefault:"info"`

	DBDriver         string `env:"FIN_API_DB_DRIVER" envDefault:"postgres"`
	PostgresDsn      string `env:"FIN_API_PG_DSN"`
	PostgresSchema   string `env:"FIN_API_PG_SCHEMA" envDefault:"finance"`
	PostgresLogLevel string `env:"FIN_API_PG_LOG_LEVEL" envDefault:"warn"`
	SQLitePath       string `env:"FIN_API_SQLITE_PATH" envDefault:"finance.db"`

	RedisHost     string `env:"FIN_API_REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"FIN_API_REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"FIN_API_REDIS_PASSWORD"`
	RedisDB       int    `env:"FIN_API_REDIS_DB" envDefault:"0"`

	SessionStore            string        `env:"FIN_API_SESSION_STORE" envDefault:"redis"`
	SessionTTL              time.Duration `env:"FIN_API_SESSION_TTL" envDefault:"600s"`
	SessionCookieSecure     bool          `env:"FIN_API_SESSION_COOKIE_SECURE" envDefault:"true"`
	TwoFactorMaxAttempts    int           `env:"FIN_API_TWO_FACTOR_MAX_ATTEMPTS" envDefault:"5"`
	LoginRateLimitPerMin    int           `env:"FIN_API_LOGIN_RATE_LIMIT_PER_MIN" envDefault:"20"`
	WebhookSharedSecret     string        `env:"FIN_API_WEBHOOK_SECRET"`
	IngestionReportSchedule string        `env:"FIN_API_INGESTION_REPORT_SCHEDULE" envDefault:"0 6 * * *"`

	JWTSecret string        `env:"FIN_API_JWT_SECRET,required,notEmpty"`
	JWTIssuer string        `env:"FIN_API_JWT_ISSUER" envDefault:"financeapi"`
	JWTTTL    time.Duration `env:"FIN_API_JWT_TTL" envDefault:"1h"`

	SMTPHost     string        `env:"FIN_API_SMTP_HOST"`
	SMTPPort     int           `env:"FIN_API_SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"FIN_API_SMTP_USERNAME"`
	SMTPPassword string        `env:"FIN_API_SMTP_PASSWORD"`
	SMTPFrom     string        `env:"FIN_API_SMTP_FROM"`
	SMTPTimeout  time.Duration `env:"FIN_API_SMTP_TIMEOUT" envDefault:"30s"`
}

var (
	SingleLine string = "--------------------------------------------------"
)

var (
	instance *Config
	once     sync.Once
	err      error
)

// Get returns the application configuration
func Get() (*Config, error) {
	once.Do(func() {
		zaplogger.Info(SingleLine)
		zaplogger.Info("Loading Configuration")
		instance, err = Load()
	})
	return instance, err
}

// Load parses and validates the configuration from the environment
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the combinations env tags cannot express
func (c *Config) validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.PostgresDsn == "" {
			return fmt.Errorf("FIN_API_PG_DSN is required when FIN_API_DB_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported FIN_API_DB_DRIVER %q", c.DBDriver)
	}

	switch c.SessionStore {
	case SessionStoreRedis, SessionStoreMemory:
	default:
		return fmt.Errorf("unsupported FIN_API_SESSION_STORE %q", c.SessionStore)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("FIN_API_SESSION_TTL must be positive")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("FIN_API_JWT_TTL must be positive")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("FIN_API_JWT_SECRET must be at least 32 characters")
	}
	if c.SMTPHost == "" || c.SMTPFrom == "" {
		return fmt.Errorf("FIN_API_SMTP_HOST and FIN_API_SMTP_FROM are required")
	}
	return nil
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// String returns the configuration as a string
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n--------------------------------------\n")
	sb.WriteString("Configuration:\n")
	sb.WriteString("--------------------------------------\n")

	t := reflect.TypeOf(*c)
	v := reflect.ValueOf(*c)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		value := fmt.Sprintf("%v", v.Field(i).Interface())

		value = maskSensitiveField(field.Name, value)
		sb.WriteString(fmt.Sprintf("  %s:  %s\n", field.Name, value))
	}

	sb.WriteString("--------------------------------------\n")

	return sb.String()
}

func maskSensitiveField(fieldName, value string) string {
	sensitiveFields := []string{"token", "dsn", "secret", "password", "key"}

	fieldNameLower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldNameLower, sensitive) {
			return maskValue(value)
		}
	}

	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
