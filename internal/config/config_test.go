package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("PLAID_ENV", "sandbox")
	t.Setenv("PLAID_URL", "")
	t.Setenv("FEED_TIMEOUT", "30s")
	t.Setenv("FEED_MAX_PAGES", "10")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.PlaidURL != "https://sandbox.plaid.com" {
		t.Errorf("PlaidURL = %q", cfg.PlaidURL)
	}
	if cfg.FeedTimeout != 30*time.Second {
		t.Errorf("FeedTimeout = %v", cfg.FeedTimeout)
	}
	if cfg.FeedMaxPages != 10 {
		t.Errorf("FeedMaxPages = %d", cfg.FeedMaxPages)
	}
	if cfg.SyncSchedule != "0 1 * * *" || cfg.ReportSchedule != "0 2 * * *" || cfg.RetrySchedule != "0 3 * * *" {
		t.Errorf("unexpected schedules: %q %q %q", cfg.SyncSchedule, cfg.ReportSchedule, cfg.RetrySchedule)
	}
}

func TestNewConfigPlaidURLOverride(t *testing.T) {
	t.Setenv("PLAID_ENV", "nowhere")
	t.Setenv("PLAID_URL", "http://localhost:9999")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.PlaidURL != "http://localhost:9999" {
		t.Errorf("PlaidURL = %q", cfg.PlaidURL)
	}
}

func TestNewConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad driver", "DB_DRIVER", "mysql"},
		{"empty conn", "DB_CONN", ""},
		{"empty jwt secret", "JWT_SECRET", ""},
		{"short key", "ENCRYPTION_KEY", "abcd"},
		{"bad timeout", "FEED_TIMEOUT", "soon"},
		{"zero pages", "FEED_MAX_PAGES", "0"},
		{"unknown plaid env", "PLAID_ENV", "staging"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PLAID_URL", "")
			t.Setenv(tt.key, tt.value)
			if _, err := NewConfig(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
