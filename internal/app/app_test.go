package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/Dan9191/ledger-service/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DBDriver:      "sqlite3",
		DBConn:        filepath.Join(t.TempDir(), "ledger.db"),
		EncryptionKey: strings.Repeat("ab", 32),
		PlaidURL:      "http://127.0.0.1:0",
		FeedTimeout:   time.Second,
		FeedMaxPages:  2,
	}
}

func TestNewMigratesAndSeeds(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), testutil.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	types, err := a.Service.ListSubAccountTypes(ctx)
	if err != nil {
		t.Fatalf("ListSubAccountTypes: %v", err)
	}
	if len(types) == 0 {
		t.Error("expected default sub account types")
	}
	if a.Reconciler == nil || a.Importer == nil {
		t.Error("expected reconciler and importer")
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.EncryptionKey = "zz"
	if _, err := New(ctx, cfg, testutil.Logger()); err == nil {
		t.Error("expected error for bad encryption key")
	}

	cfg = testConfig(t)
	cfg.CategoryRules = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(ctx, cfg, testutil.Logger()); err == nil {
		t.Error("expected error for missing rules file")
	}

	cfg = testConfig(t)
	cfg.CategoryRules = filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(cfg.CategoryRules, []byte("categories:\n  - name: Transport\n    keywords: [uber]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := New(ctx, cfg, testutil.Logger())
	if err != nil {
		t.Fatalf("New with rules: %v", err)
	}
	a.Close()
}

func TestNewLogger(t *testing.T) {
	if got := NewLogger("debug").GetLevel().String(); got != "debug" {
		t.Errorf("level = %s", got)
	}
	if got := NewLogger("nonsense").GetLevel().String(); got != "info" {
		t.Errorf("level = %s", got)
	}
}
