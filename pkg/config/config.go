package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Relational store (Wind-style daily tables, refdata documents)
	Database DatabaseConfig

	// Columnar store (intraday bins, optional second relational backend)
	ClickHouse ClickHouseConfig

	// Snapshot document cache
	Redis RedisConfig

	// Remote vendor feed
	Feed FeedConfig

	// Retrieval behaviour
	Source SourceConfig

	// Universe catalog file (yaml); empty = built-in catalog
	UniverseCatalog string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Table holding snapshot documents
	DocumentTable string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
	Timeout  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// FeedConfig holds the vendor HTTP feed configuration (Datayes-style)
type FeedConfig struct {
	BaseURL   string
	Version   string
	Token     string
	RateLimit float64 // requests per second, 0 = unlimited
	Timeout   time.Duration
}

// SourceConfig tunes batching and cache padding
type SourceConfig struct {
	Backend       string // postgres, clickhouse
	ChunkSize     int
	LookbackDays  int
	LookaheadDays int
	Country       string
	MemoEntries   int // reference lookups kept in memory
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			DocumentTable:   getEnv("DOCUMENT_TABLE", "refdata_documents"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		ClickHouse: ClickHouseConfig{
			Enabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("CLICKHOUSE_DATABASE", "market"),
			User:     getEnv("CLICKHOUSE_USER", "default"),
			Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			Timeout:  getEnvAsDuration("CLICKHOUSE_TIMEOUT", "30s"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		Feed: FeedConfig{
			BaseURL:   getEnv("FEED_BASE_URL", "https://api.wmcloud.com/data"),
			Version:   getEnv("FEED_VERSION", "v1"),
			Token:     getEnv("FEED_TOKEN", ""),
			RateLimit: getEnvAsFloat("FEED_RATE_LIMIT", 5),
			Timeout:   getEnvAsDuration("FEED_TIMEOUT", "30s"),
		},

		Source: SourceConfig{
			Backend:       getEnv("SOURCE_BACKEND", "postgres"),
			ChunkSize:     getEnvAsInt("SOURCE_CHUNK_SIZE", 100),
			LookbackDays:  getEnvAsInt("SOURCE_LOOKBACK_DAYS", 100),
			LookaheadDays: getEnvAsInt("SOURCE_LOOKAHEAD_DAYS", 1),
			Country:       getEnv("SOURCE_COUNTRY", "CN"),
			MemoEntries:   getEnvAsInt("MEMO_MAX_ENTRIES", 32),
		},

		UniverseCatalog: getEnv("UNIVERSE_CATALOG", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Source.Backend {
	case "postgres":
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("SOURCE_BACKEND=clickhouse requires CLICKHOUSE_ENABLED")
		}
	default:
		return fmt.Errorf("SOURCE_BACKEND must be one of: postgres, clickhouse")
	}

	if c.Source.ChunkSize < 1 {
		return fmt.Errorf("SOURCE_CHUNK_SIZE must be positive")
	}

	if c.Source.LookbackDays < 0 || c.Source.LookaheadDays < 0 {
		return fmt.Errorf("SOURCE_LOOKBACK_DAYS and SOURCE_LOOKAHEAD_DAYS must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
