package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Engine   EngineConfig
	Events   EventsConfig
	Feed     FeedConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
	CORSOrigins             string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// QueryTimeout bounds every statement and transaction
	QueryTimeout time.Duration
	// Migrate applies the embedded schema on startup
	Migrate bool
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type AdminConfig struct {
	AdminSecret string
}

// EngineConfig tunes the verification and moderation rules
type EngineConfig struct {
	ProximityRadiusKm float64
	// VotesPerMinute throttles vote submissions per client, 0 disables it
	VotesPerMinute int
	BulkLimit      int
}

// EventsConfig is the redis list that receives broadcast triggers
type EventsConfig struct {
	ListKey string
	MaxLen  int64
}

// FeedConfig configures the external incident feed client
type FeedConfig struct {
	BaseURL   string
	RateLimit float64
	Workers   int
	Timeout   time.Duration
	Country   string
	UserAgent string
	// Areas lists watched areas as name|state|risk level, comma separated
	Areas        string
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// Load loads configuration from environment variables with sensible defaults.
// A .env.local file in the working directory is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(envFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:             getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			QueryTimeout:    getEnvDuration("DB_QUERY_TIMEOUT", 5*time.Second),
			Migrate:         getEnvBool("DB_MIGRATE", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Admin: AdminConfig{
			AdminSecret: getEnv("ADMIN_SECRET", ""),
		},
		Engine: EngineConfig{
			ProximityRadiusKm: getEnvFloat("ENGINE_PROXIMITY_RADIUS_KM", 3.0),
			VotesPerMinute:    getEnvInt("ENGINE_VOTES_PER_MINUTE", 10),
			BulkLimit:         getEnvInt("ENGINE_BULK_LIMIT", 500),
		},
		Events: EventsConfig{
			ListKey: getEnv("EVENTS_LIST_KEY", "incidentwatch:broadcast"),
			MaxLen:  int64(getEnvInt("EVENTS_MAX_LEN", 10000)),
		},
		Feed: FeedConfig{
			BaseURL:      getEnv("FEED_BASE_URL", "https://api.gdeltproject.org/api/v2/doc/doc"),
			RateLimit:    getEnvFloat("FEED_RATE_LIMIT", 1.0),
			Workers:      getEnvInt("FEED_WORKERS", 4),
			Timeout:      getEnvDuration("FEED_TIMEOUT", 15*time.Second),
			Country:      getEnv("FEED_COUNTRY", "Nigeria"),
			UserAgent:    getEnv("FEED_USER_AGENT", "incidentwatch/1.0"),
			Areas:        getEnv("FEED_AREAS", ""),
			PollInterval: getEnvDuration("FEED_POLL_INTERVAL", 30*time.Minute),
			RetryDelay:   getEnvDuration("FEED_RETRY_DELAY", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be positive")
	}
	if c.Engine.ProximityRadiusKm <= 0 {
		return fmt.Errorf("proximity radius must be positive, got %v", c.Engine.ProximityRadiusKm)
	}
	if c.Engine.VotesPerMinute < 0 {
		return fmt.Errorf("votes per minute must not be negative")
	}
	if c.Engine.BulkLimit < 1 {
		return fmt.Errorf("bulk limit must be at least 1")
	}
	if c.Feed.Workers < 1 {
		return fmt.Errorf("feed worker count must be at least 1")
	}
	if c.Feed.RateLimit <= 0 {
		return fmt.Errorf("feed rate limit must be positive")
	}
	if c.Feed.Areas != "" && c.Feed.PollInterval < time.Minute {
		return fmt.Errorf("feed poll interval must be at least 1m, got %s", c.Feed.PollInterval)
	}
	return nil
}

func envFile() string {
	return getEnv("ENV_FILE", ".env.local")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
