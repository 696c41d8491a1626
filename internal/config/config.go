// Package config loads the process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finsight/internal/core"
)

// Data backends.
const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port        string
	LogLevel    string
	CORSOrigins []string

	// Collaborators
	DataBackend        string
	DataDir            string
	TransactionsAPIURL string
	UsersAPIURL        string
	AnalyticsAPIURL    string
	HTTPTimeout        time.Duration
	AnalyticsCacheTTL  time.Duration

	// Dashboard
	CurrencySymbol string
	MonthlyBudget  string
	PolicyFile     string
	MaxSessions    int
	SessionTTL     time.Duration

	// Outbox (empty SQLiteDBPath disables it)
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize  int
	SyncInterval   time.Duration
	SyncMaxRetries int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		DataBackend:        getEnv("DATA_BACKEND", BackendRemote),
		DataDir:            getEnv("DATA_DIR", "./data"),
		TransactionsAPIURL: getEnv("TRANSACTIONS_API_URL", "http://localhost:8000"),
		UsersAPIURL:        getEnv("USERS_API_URL", "http://localhost:8001"),
		AnalyticsAPIURL:    getEnv("ANALYTICS_API_URL", "http://localhost:5000"),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		AnalyticsCacheTTL:  getEnvDuration("ANALYTICS_CACHE_TTL", 5*time.Minute),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "₹"),
		MonthlyBudget:  getEnv("MONTHLY_BUDGET", ""),
		PolicyFile:     getEnv("POLICY_FILE", ""),
		MaxSessions:    getEnvInt("MAX_SESSIONS", 1000),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finsight"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_outbox"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Finsight"),

		SyncBatchSize:  getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 5),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	switch c.DataBackend {
	case BackendRemote:
		for _, u := range []struct{ name, value string }{
			{"TRANSACTIONS_API_URL", c.TransactionsAPIURL},
			{"USERS_API_URL", c.UsersAPIURL},
			{"ANALYTICS_API_URL", c.AnalyticsAPIURL},
		} {
			if msg := checkHTTPURL(u.name, u.value); msg != "" {
				errors = append(errors, msg)
			}
		}
	case BackendMemory:
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using memory backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendRemote, BackendMemory))
	}

	if c.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be positive", c.HTTPTimeout))
	}
	if c.AnalyticsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid analytics cache TTL %v: must not be negative", c.AnalyticsCacheTTL))
	}

	if c.MaxSessions < 0 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must not be negative", c.MaxSessions))
	}
	if c.SessionTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must not be negative", c.SessionTTL))
	}

	if _, err := c.Budget(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid monthly budget '%s': must be a non-negative amount", c.MonthlyBudget))
	}

	if c.PolicyFile != "" {
		if _, err := os.Stat(c.PolicyFile); err != nil {
			errors = append(errors, fmt.Sprintf("policy file does not exist: %s", c.PolicyFile))
		}
	}

	if c.SQLiteDBPath != "" {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
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
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path is required when AMQP URL is provided")
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync max retries %d: must be at least 1", c.SyncMaxRetries))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Budget parses MonthlyBudget. An empty value is the zero amount, which
// means the budget follows income.
func (c *Config) Budget() (core.Money, error) {
	if strings.TrimSpace(c.MonthlyBudget) == "" {
		return core.Money{}, nil
	}
	return core.ParseAmount(c.MonthlyBudget)
}

// OutboxEnabled reports whether failed writes are queued.
func (c *Config) OutboxEnabled() bool {
	return c.SQLiteDBPath != ""
}

func checkHTTPURL(name, value string) string {
	if value == "" {
		return fmt.Sprintf("%s cannot be empty when using remote backend", name)
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, value, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Sprintf("invalid %s '%s': missing host", name, value)
	}
	return ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
