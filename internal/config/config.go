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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Queue        QueueConfig
	Notification NotificationConfig
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
	DSN              string
	MaxConns         int32
	MinConns         int32
	RunMigrations    bool
	MigrationsDir    string
	ConnMaxIdleSec   int32
	ConnMaxLifeSec   int32
	LockTimeoutMilli int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// QueueConfig controls the notification job queue and its worker pool.
type QueueConfig struct {
	Name           string
	MaxAttempts    int
	Concurrency    int
	PollTimeoutSec int
}

// NotificationConfig holds sender settings.
type NotificationConfig struct {
	EmailFrom string
	PushAppID string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "quotation-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:              os.Getenv("POSTGRES_DSN"),
			MaxConns:         int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:         int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:    getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:    getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:   int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:   int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			LockTimeoutMilli: getEnvAsInt("POSTGRES_LOCK_TIMEOUT_MS", 3000),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Queue: QueueConfig{
			Name:           getEnv("QUEUE_NAME", "notification-jobs"),
			MaxAttempts:    getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			Concurrency:    getEnvAsInt("QUEUE_CONCURRENCY", 4),
			PollTimeoutSec: getEnvAsInt("QUEUE_POLL_TIMEOUT_SECONDS", 5),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			PushAppID: getEnv("NOTIFY_PUSH_APP_ID", ""),
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

// PollTimeout returns the queue consumer blocking-pop timeout.
func (q QueueConfig) PollTimeout() time.Duration {
	if q.PollTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(q.PollTimeoutSec) * time.Second
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
