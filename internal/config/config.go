package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	QueryTimeout       time.Duration

	// Database
	DataDir            string
	DatabaseURL        string
	RailwayEnvironment string
	DataBackend        string

	// Logging
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Caches for the COUG list and reference period
	CacheTTL time.Duration

	// Metrics
	MetricsEnabled bool

	// AMQP (optional): ETL load notifications
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// ETL
	ETLInputDir         string
	ETLBatchSize        int
	GoogleSpreadsheetID string
	GoogleSheetRange    string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		QueryTimeout:       getEnvDuration("QUERY_TIMEOUT", 30*time.Second),

		DataDir:            getEnv("DATA_DIR", "./dados"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RailwayEnvironment: getEnv("RAILWAY_ENVIRONMENT", ""),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),

		CacheTTL: getEnvDuration("CACHE_TTL", 10*time.Minute),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "orcamento"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cargas_concluidas"),

		ETLInputDir:         getEnv("ETL_INPUT_DIR", "./dados/planilhas"),
		ETLBatchSize:        getEnvInt("ETL_BATCH_SIZE", 10000),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", ""),
	}
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.defaultBackend())
	return cfg
}

// defaultBackend selects Postgres whenever a connection string or the
// hosting environment marker is present.
func (c *Config) defaultBackend() string {
	if c.DatabaseURL != "" || c.RailwayEnvironment != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

// DBDir is the directory holding the embedded database files.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendSQLite, BackendPostgres}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.DataDir == "" {
			errors = append(errors, "DATA_DIR cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'json' or 'text'", c.LogFormat))
	}
	if c.LogFile != "" && c.LogMaxSizeMB < 1 {
		errors = append(errors, fmt.Sprintf("invalid log max size %d: must be at least 1", c.LogMaxSizeMB))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.QueryTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid query timeout %v: must be at least 1 second", c.QueryTimeout))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if c.ETLBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid ETL batch size %d: must be at least 1", c.ETLBatchSize))
	} else if c.ETLBatchSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid ETL batch size %d: must be at most 100000", c.ETLBatchSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
