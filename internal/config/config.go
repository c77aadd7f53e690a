package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	DBDriver      string
	DBConn        string
	LogLevel      string
	JWTSecret     string
	EncryptionKey string

	PlaidClientID string
	PlaidSecret   string
	PlaidEnv      string
	PlaidURL      string

	FeedTimeout  time.Duration
	FeedMaxPages int

	SyncSchedule   string
	ReportSchedule string
	RetrySchedule  string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	CategoryRules string
}

var plaidURLs = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// NewConfig loads configuration from environment variables, after reading
// a .env file when one exists
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=ledger password=ledger dbname=ledger sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),

		PlaidClientID: getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:   getEnv("PLAID_SECRET", ""),
		PlaidEnv:      getEnv("PLAID_ENV", "sandbox"),
		PlaidURL:      getEnv("PLAID_URL", ""),

		SyncSchedule:   getEnv("SYNC_SCHEDULE", "0 1 * * *"),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "0 2 * * *"),
		RetrySchedule:  getEnv("RETRY_SCHEDULE", "0 3 * * *"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", ""),

		CategoryRules: getEnv("CATEGORY_RULES", ""),
	}

	timeout, err := time.ParseDuration(getEnv("FEED_TIMEOUT", "30s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("FEED_TIMEOUT must be a positive duration")
	}
	cfg.FeedTimeout = timeout

	pages, err := strconv.Atoi(getEnv("FEED_MAX_PAGES", "10"))
	if err != nil || pages < 1 {
		return nil, fmt.Errorf("FEED_MAX_PAGES must be a positive integer")
	}
	cfg.FeedMaxPages = pages

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite3" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", cfg.DBDriver)
	}
	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.EncryptionKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}
	if cfg.PlaidURL == "" {
		url, ok := plaidURLs[cfg.PlaidEnv]
		if !ok {
			return nil, fmt.Errorf("PLAID_ENV must be sandbox, development or production, got %q", cfg.PlaidEnv)
		}
		cfg.PlaidURL = url
	}

	return cfg, nil
}

// EmailEnabled reports whether SMTP settings are complete enough to send mail.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
