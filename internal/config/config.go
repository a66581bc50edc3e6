package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Assignment AssignmentConfig
	Sweepers   SweeperConfig
	Email      EmailConfig
	Metrics    MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// StoreTimeout bounds every individual store call.
	StoreTimeout time.Duration
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
}

// AssignmentConfig tunes the agent selection strategies.
type AssignmentConfig struct {
	SeniorCeiling     int
	RoundRobinCeiling int
}

// SweeperConfig configures the background sweeps.
type SweeperConfig struct {
	Enabled            bool
	SLAInterval        time.Duration
	SLABatchSize       int
	AutoAssignInterval time.Duration
	AutoAssignBatch    int
	AutoAssignGrace    time.Duration
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
	BaseURL      string
	RatePerSec   float64
	Burst        int
	QueueSize    int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ratePerSec, err := strconv.ParseFloat(getEnv("EMAIL_RATE_PER_SECOND", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid EMAIL_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "assignment-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			StoreTimeout:   getEnvAsDuration("POSTGRES_STORE_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            redisDB,
			ChannelPrefix: getEnv("REDIS_NOTIFICATION_CHANNEL_PREFIX", "notifications"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", "support-portal"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Assignment: AssignmentConfig{
			SeniorCeiling:     getEnvAsInt("ASSIGNMENT_SENIOR_CEILING", 10),
			RoundRobinCeiling: getEnvAsInt("ASSIGNMENT_ROUND_ROBIN_CEILING", 20),
		},
		Sweepers: SweeperConfig{
			Enabled:            getEnvAsBool("SWEEPERS_ENABLED", true),
			SLAInterval:        getEnvAsDuration("SLA_SWEEP_INTERVAL", 5*time.Minute),
			SLABatchSize:       getEnvAsInt("SLA_SWEEP_BATCH_SIZE", 500),
			AutoAssignInterval: getEnvAsDuration("AUTO_ASSIGN_SWEEP_INTERVAL", 2*time.Minute),
			AutoAssignBatch:    getEnvAsInt("AUTO_ASSIGN_SWEEP_BATCH_SIZE", 10),
			AutoAssignGrace:    getEnvAsDuration("AUTO_ASSIGN_GRACE_PERIOD", 5*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			From:         getEnv("EMAIL_FROM", "noreply@example.com"),
			BaseURL:      getEnv("PORTAL_BASE_URL", "http://localhost:3000"),
			RatePerSec:   ratePerSec,
			Burst:        getEnvAsInt("EMAIL_BURST", 5),
			QueueSize:    getEnvAsInt("EMAIL_QUEUE_SIZE", 256),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether SMTP delivery is configured.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
