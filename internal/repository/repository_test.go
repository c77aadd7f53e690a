package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/shopspring/decimal"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open("sqlite3", filepath.Join(t.TempDir(), "db", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := repo.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("InitializeSchema: %v", err)
	}
	return repo
}

func seedOwner(t *testing.T, repo *Repository) int64 {
	t.Helper()
	u := &models.User{Username: "alice", Email: "alice@example.com"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u.ID
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: Postgres}
	if got := pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := &Repository{dialect: SQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestParseDialect(t *testing.T) {
	for driver, want := range map[string]Dialect{"postgres": Postgres, "sqlite3": SQLite, "sqlite": SQLite} {
		got, err := ParseDialect(driver)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %v, %v", driver, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestInitializeSchemaTwice(t *testing.T) {
	repo := openTestRepo(t)
	if err := repo.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("second InitializeSchema: %v", err)
	}
}

func TestAccountLifecycle(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	owner := seedOwner(t, repo)

	checking := &models.Account{OwnerID: owner, Name: "Checking", Num: 1000, Type: models.AccountTypeAsset}
	if err := repo.CreateAccount(ctx, checking); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	got, err := repo.GetAccount(ctx, checking.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Balance.Valid {
		t.Error("new account should have a null balance")
	}
	if got.Type != models.AccountTypeAsset || got.Num != 1000 || got.Name != "Checking" {
		t.Errorf("unexpected account %+v", got)
	}

	dup := &models.Account{OwnerID: owner, Name: "Savings", Num: 1000, Type: models.AccountTypeAsset}
	if err := repo.CreateAccount(ctx, dup); !errors.Is(err, models.ErrDuplicateAccountNumber) {
		t.Errorf("expected ErrDuplicateAccountNumber, got %v", err)
	}

	if err := repo.SetBalances(ctx, checking.ID, decimal.RequireFromString("12.34"), decimal.Zero); err != nil {
		t.Fatalf("SetBalances: %v", err)
	}
	got, _ = repo.GetAccount(ctx, checking.ID)
	if !got.Balance.Valid || !got.Balance.Decimal.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("balance = %+v, want 12.34", got.Balance)
	}

	if _, err := repo.GetAccount(ctx, 999); !errors.Is(err, models.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountNumbers(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	owner := seedOwner(t, repo)

	if _, ok, err := repo.MaxAccountNumber(ctx, owner); err != nil || ok {
		t.Fatalf("MaxAccountNumber on empty owner = %v, %v", ok, err)
	}
	for _, a := range []*models.Account{
		{OwnerID: owner, Name: "Checking", Num: 1000, Type: models.AccountTypeAsset},
		{OwnerID: owner, Name: "Savings", Num: 1001, Type: models.AccountTypeAsset},
		{OwnerID: owner, Name: "Uncategorized Expense", Num: 80000, Type: models.AccountTypeExpense, System: true},
	} {
		if err := repo.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}

	num, ok, err := repo.MaxAccountNumber(ctx, owner)
	if err != nil || !ok || num != 1001 {
		t.Errorf("MaxAccountNumber = %d, %v, %v; system accounts must be ignored", num, ok, err)
	}
	if next, _ := repo.FirstFreeNumber(ctx, owner, 1000); next != 1002 {
		t.Errorf("FirstFreeNumber(1000) = %d, want 1002", next)
	}
	if next, _ := repo.FirstFreeNumber(ctx, owner, 80000); next != 80001 {
		t.Errorf("FirstFreeNumber(80000) = %d, want 80001", next)
	}
	if taken, _ := repo.AccountNumberTaken(ctx, owner, 1001); !taken {
		t.Error("1001 should be taken")
	}
}

func TestLedgerSumsAndDelete(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	owner := seedOwner(t, repo)

	checking := &models.Account{OwnerID: owner, Name: "Checking", Num: 1000, Type: models.AccountTypeAsset}
	salary := &models.Account{OwnerID: owner, Name: "Salary", Num: 1001, Type: models.AccountTypeIncome}
	for _, a := range []*models.Account{checking, salary} {
		if err := repo.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}

	date := models.NewDate(2024, time.January, 15)
	pay := &models.Transaction{OwnerID: owner, Date: date, Amount: decimal.RequireFromString("1000"),
		DebitID: checking.ID, CreditID: salary.ID, Status: models.StatusReconciled}
	bonus := &models.Transaction{OwnerID: owner, Date: date, Amount: decimal.RequireFromString("50.25"),
		DebitID: checking.ID, CreditID: salary.ID, Status: models.StatusReview}
	for _, txn := range []*models.Transaction{pay, bonus} {
		if err := repo.CreateTransaction(ctx, txn); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}
	if !pay.IsReconciled || bonus.IsReconciled {
		t.Error("legacy flag should follow status")
	}

	sums, err := repo.LedgerSums(ctx, checking.ID)
	if err != nil {
		t.Fatalf("LedgerSums: %v", err)
	}
	if !sums.Debit.Equal(decimal.RequireFromString("1050.25")) || !sums.Credit.IsZero() {
		t.Errorf("sums = %+v", sums)
	}
	if !sums.ReconciledDebit.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("reconciled debit = %s, want 1000", sums.ReconciledDebit)
	}

	stored, err := repo.GetTransaction(ctx, bonus.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if stored.Date != date || !stored.Amount.Equal(bonus.Amount) {
		t.Errorf("round trip lost data: %+v", stored)
	}

	if err := repo.DeleteAccount(ctx, salary.ID); !errors.Is(err, models.ErrAccountInUse) {
		t.Errorf("expected ErrAccountInUse, got %v", err)
	}
	if n, _ := repo.CountAccountTransactions(ctx, salary.ID); n != 2 {
		t.Errorf("CountAccountTransactions = %d, want 2", n)
	}

	list, err := repo.ListTransactions(ctx, owner, models.TransactionFilter{Status: models.StatusReconciled})
	if err != nil || len(list) != 1 || list[0].ID != pay.ID {
		t.Errorf("ListTransactions by status = %v, %v", list, err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	owner := seedOwner(t, repo)

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx *Repository) error {
		a := &models.Account{OwnerID: owner, Name: "Temp", Num: 1, Type: models.AccountTypeAsset}
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v", err)
	}
	accounts, _ := repo.ListAccounts(ctx, owner)
	if len(accounts) != 0 {
		t.Errorf("rolled back account still present: %+v", accounts)
	}
}

func TestConnectionsAndLinks(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	owner := seedOwner(t, repo)
	checking := &models.Account{OwnerID: owner, Name: "Checking", Num: 1000, Type: models.AccountTypeAsset}
	if err := repo.CreateAccount(ctx, checking); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	conn := &models.FeedConnection{OwnerID: owner, AccountID: checking.ID, ItemID: "item-1", AccessToken: "sealed"}
	if err := repo.UpsertConnection(ctx, conn); err != nil {
		t.Fatalf("UpsertConnection: %v", err)
	}
	if err := repo.SaveCursor(ctx, conn.ID, "cursor-1", time.Now()); err != nil {
		t.Fatalf("SaveCursor: %v", err)
	}
	if err := repo.SetConnectionStatus(ctx, conn.ID, models.FeedError, "login required"); err != nil {
		t.Fatalf("SetConnectionStatus: %v", err)
	}

	again := &models.FeedConnection{OwnerID: owner, AccountID: checking.ID, ItemID: "item-1", AccessToken: "sealed-2"}
	if err := repo.UpsertConnection(ctx, again); err != nil {
		t.Fatalf("UpsertConnection again: %v", err)
	}
	if again.ID != conn.ID {
		t.Errorf("upsert created a second row: %d vs %d", again.ID, conn.ID)
	}
	stored, err := repo.GetConnection(ctx, conn.ID)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if stored.Status != models.FeedActive || stored.Cursor != "cursor-1" || stored.AccessToken != "sealed-2" {
		t.Errorf("relink should reactivate and keep the cursor: %+v", stored)
	}
	if stored.LastSync == nil {
		t.Error("last sync should be kept")
	}

	link, err := repo.GetLinkByExternalID(ctx, "ext-1")
	if err != nil || link != nil {
		t.Errorf("missing link = %v, %v", link, err)
	}
}
