package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	RateLimit RateLimitConfig
	Flush     FlushConfig
	Cleanup   CleanupConfig
	App       AppConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
	QRTTL    time.Duration
}

// NATSConfig holds the click event channel settings
type NATSConfig struct {
	URL         string
	QueueGroup  string
	DurableName string
}

// RateLimitConfig holds admission control settings.
// Capacities are tokens per fixed window, counted separately for
// creation and redirect traffic.
type RateLimitConfig struct {
	Enabled      bool
	PostCapacity int64
	GetCapacity  int64
	Window       time.Duration
	FailOpen     bool
}

// FlushConfig holds click reconciliation settings
type FlushConfig struct {
	Interval   time.Duration
	BatchSize  int
	ScanCount  int
	PendingTTL time.Duration
}

// CleanupConfig holds URL table maintenance settings
type CleanupConfig struct {
	DeactivateInterval time.Duration
	PurgeInterval      time.Duration
	PurgeAfter         time.Duration
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Environment    string
	LogLevel       string
	BaseURL        string
	ShortKeyLength int
	MinShortKeyLen int
	DefaultQRSize  int
	EnableMetrics  bool
}

// Load reads configuration from environment variables.
// Environment variables keep the app portable across environments
// (dev, staging, prod) without rebuilding.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "10s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "120s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "linkshortener"),
			Password:        getEnv("DB_PASSWORD", "dev_password_123"),
			DBName:          getEnv("DB_NAME", "linkshortener"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt("REDIS_DB", 0),
			CacheTTL: parseDuration("REDIS_CACHE_TTL", "1h"),
			QRTTL:    parseDuration("REDIS_QR_TTL", "24h"),
		},
		NATS: NATSConfig{
			URL:         getEnv("NATS_URL", "nats://localhost:4222"),
			QueueGroup:  getEnv("NATS_QUEUE_GROUP", "clicks-group"),
			DurableName: getEnv("NATS_DURABLE_NAME", "clicks-aggregator"),
		},
		RateLimit: RateLimitConfig{
			Enabled:      parseBool("RATE_LIMIT_ENABLED", true),
			PostCapacity: parseInt64("RATE_LIMIT_POST_CAPACITY", 20),
			GetCapacity:  parseInt64("RATE_LIMIT_GET_CAPACITY", 20),
			Window:       parseDuration("RATE_LIMIT_WINDOW", "60s"),
			FailOpen:     parseBool("RATE_LIMIT_FAIL_OPEN", true),
		},
		Flush: FlushConfig{
			Interval:   parseDuration("FLUSH_INTERVAL", "30s"),
			BatchSize:  parseInt("FLUSH_BATCH_SIZE", 500),
			ScanCount:  parseInt("FLUSH_SCAN_COUNT", 500),
			PendingTTL: parseDuration("FLUSH_PENDING_TTL", "48h"),
		},
		Cleanup: CleanupConfig{
			DeactivateInterval: parseDuration("CLEANUP_DEACTIVATE_INTERVAL", "1h"),
			PurgeInterval:      parseDuration("CLEANUP_PURGE_INTERVAL", "24h"),
			PurgeAfter:         parseDuration("CLEANUP_PURGE_AFTER", "720h"),
		},
		App: AppConfig{
			Environment:    getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			BaseURL:        getEnv("APP_BASE_URL", "http://localhost:8080"),
			ShortKeyLength: parseInt("SHORT_KEY_LENGTH", 7),
			MinShortKeyLen: parseInt("MIN_SHORT_KEY_LENGTH", 3),
			DefaultQRSize:  parseInt("DEFAULT_QR_SIZE", 256),
			EnableMetrics:  parseBool("ENABLE_METRICS", true),
		},
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address in host:port format
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions to parse environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
