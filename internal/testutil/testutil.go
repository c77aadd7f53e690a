// Package testutil opens throwaway SQLite ledgers for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// OpenRepo creates a migrated SQLite database in t.TempDir().
func OpenRepo(t *testing.T) *repository.Repository {
	t.Helper()
	repo, err := repository.Open("sqlite3", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("initialize schema: %v", err)
	}
	return repo
}

// SeedUser inserts a user with a unique email.
func SeedUser(t *testing.T, repo *repository.Repository, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: fmt.Sprintf("%s@example.com", name)}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedAccount inserts an account directly, bypassing the service.
func SeedAccount(t *testing.T, repo *repository.Repository, ownerID int64, name string, num int, typ models.AccountType) *models.Account {
	t.Helper()
	a := &models.Account{OwnerID: ownerID, Name: name, Num: num, Type: typ, Icon: models.DefaultAccountIcon}
	if err := repo.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return a
}
