package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// StoreDriver selects the persistence backend: "postgres" or "memory"
	StoreDriver string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// Market data provider configuration
	Provider ProviderConfig

	// Ingestion configuration
	Ingest IngestConfig

	// Read path configuration
	Read ReadConfig

	// API configuration
	APIPort       int
	CronSecretKey string
}

// ProviderConfig holds the upstream market data provider settings
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// IngestConfig holds parameters for the scheduled ingestion job
type IngestConfig struct {
	BatchSize    int
	BatchDelay   time.Duration
	FetchTimeout time.Duration // per-ticker upstream call budget
	Schedule     string        // cron expression, evaluated in UTC
	Tickers      []string      // optional override of the default universe
}

// ReadConfig holds parameters for the aggregation read path
type ReadConfig struct {
	PageSize   int
	WindowDays int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "trade_journal"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "journal"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "journal123"),
		StoreDriver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", "postgres")),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		Provider: ProviderConfig{
			BaseURL: getEnvOrDefault("FMP_BASE_URL", "https://financialmodelingprep.com"),
			APIKey:  getEnvOrDefault("FMP_API_KEY", ""),
		},

		Ingest: IngestConfig{
			BatchSize:    getEnvInt("INGEST_BATCH_SIZE", 5),
			BatchDelay:   getEnvDuration("INGEST_BATCH_DELAY", 100*time.Millisecond),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 5*time.Second),
			Schedule:     getEnvOrDefault("INGEST_SCHEDULE", "0 22 * * 1-5"),
			Tickers:      getEnvList("TICKERS"),
		},

		Read: ReadConfig{
			PageSize:   getEnvInt("PAGE_SIZE", 1000),
			WindowDays: getEnvInt("WINDOW_DAYS", 90),
		},

		APIPort:       getEnvInt("API_PORT", 8080),
		CronSecretKey: getEnvOrDefault("CRON_SECRET_KEY", ""),
	}
}

// DatabasePortInt returns the database port as an int
func (c *Config) DatabasePortInt() (int, error) {
	var port int
	if _, err := fmt.Sscanf(c.DatabasePort, "%d", &port); err != nil {
		return 0, fmt.Errorf("invalid database port %q: %w", c.DatabasePort, err)
	}
	return port, nil
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvDuration gets environment variable as time.Duration ("250ms", "5s") or returns default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

// getEnvList splits a comma separated environment variable, dropping blanks
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
