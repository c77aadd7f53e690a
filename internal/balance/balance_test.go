package balance

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/testutil"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	accounts map[int64]*models.Account
	sums     map[int64]models.LedgerSums
	locked   [][]int64
	written  []int64
}

func (f *fakeStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeStore) LedgerSums(ctx context.Context, id int64) (models.LedgerSums, error) {
	return f.sums[id], nil
}

func (f *fakeStore) SetBalances(ctx context.Context, id int64, b, r decimal.Decimal) error {
	a := f.accounts[id]
	a.Balance = decimal.NewNullDecimal(b)
	a.ReconciledBalance = r
	f.written = append(f.written, id)
	return nil
}

func (f *fakeStore) LockAccounts(ctx context.Context, ids []int64) error {
	f.locked = append(f.locked, ids)
	return nil
}

func (f *fakeStore) ListAllAccounts(ctx context.Context) ([]models.Account, error) {
	var out []models.Account
	for id := int64(1); id <= int64(len(f.accounts)); id++ {
		out = append(out, *f.accounts[id])
	}
	return out, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	tests := []struct {
		typ   models.AccountType
		debit string
		cred  string
		want  string
	}{
		{models.AccountTypeAsset, "1000", "250", "750"},
		{models.AccountTypeExpense, "250", "0", "250"},
		{models.AccountTypeGoal, "100", "40", "60"},
		{models.AccountTypeIncome, "0", "1000", "1000"},
		{models.AccountTypeLiability, "300", "500", "200"},
		{models.AccountTypeEquity, "10", "0", "-10"},
	}
	for _, tt := range tests {
		got := Compute(tt.typ, d(tt.debit), d(tt.cred))
		if !got.Equal(d(tt.want)) {
			t.Errorf("Compute(%s, %s, %s) = %s, want %s", tt.typ, tt.debit, tt.cred, got, tt.want)
		}
	}
}

func TestFromSumsUsesReconciledOnlyForReconciledBalance(t *testing.T) {
	b := FromSums(models.AccountTypeAsset, models.LedgerSums{
		Debit:            d("1000"),
		Credit:           d("250"),
		ReconciledDebit:  d("1000"),
		ReconciledCredit: d("0"),
	})
	if !b.Balance.Equal(d("750")) || !b.Reconciled.Equal(d("1000")) {
		t.Errorf("got balance %s reconciled %s", b.Balance, b.Reconciled)
	}
}

func TestApplyRecomputesEachAccountOnce(t *testing.T) {
	store := &fakeStore{
		accounts: map[int64]*models.Account{
			1: {ID: 1, Type: models.AccountTypeAsset},
			2: {ID: 2, Type: models.AccountTypeIncome},
			3: {ID: 3, Type: models.AccountTypeExpense},
		},
		sums: map[int64]models.LedgerSums{
			1: {Debit: d("1000"), Credit: d("250")},
			2: {Credit: d("1000")},
			3: {Debit: d("250")},
		},
	}
	e := NewEngine(testutil.Logger())

	salary := &models.Transaction{DebitID: 1, CreditID: 2}
	rent := &models.Transaction{DebitID: 3, CreditID: 1}
	if err := e.Apply(context.Background(), store, TransactionCreated(salary), TransactionCreated(rent)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if want := []int64{1, 2, 3}; !reflect.DeepEqual(store.written, want) {
		t.Errorf("written = %v, want %v", store.written, want)
	}
	if len(store.locked) != 1 || !reflect.DeepEqual(store.locked[0], []int64{1, 2, 3}) {
		t.Errorf("locked = %v, want one sorted batch", store.locked)
	}
	if got := store.accounts[1].Balance.Decimal; !got.Equal(d("750")) {
		t.Errorf("checking balance = %s, want 750", got)
	}
	if got := store.accounts[2].Balance.Decimal; !got.Equal(d("1000")) {
		t.Errorf("salary balance = %s, want 1000", got)
	}
}

func TestApplyNoChanges(t *testing.T) {
	store := &fakeStore{}
	if err := NewEngine(testutil.Logger()).Apply(context.Background(), store); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(store.locked) != 0 {
		t.Error("no locks expected for an empty change set")
	}
}

func TestApplyMissingAccount(t *testing.T) {
	store := &fakeStore{accounts: map[int64]*models.Account{}}
	err := NewEngine(testutil.Logger()).Apply(context.Background(), store, Change{Accounts: []int64{9}})
	if !errors.Is(err, models.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAffected(t *testing.T) {
	before := &models.Transaction{DebitID: 5, CreditID: 2}
	after := &models.Transaction{DebitID: 7, CreditID: 2}
	got := Affected(TransactionUpdated(before, after), TransactionStatusChanged(after), Change{Accounts: []int64{0}})
	if want := []int64{2, 5, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("Affected = %v, want %v", got, want)
	}
}

func TestRecomputeAllIsIdempotent(t *testing.T) {
	store := &fakeStore{
		accounts: map[int64]*models.Account{
			1: {ID: 1, Name: "Checking", Type: models.AccountTypeAsset},
			2: {ID: 2, Name: "Salary", Type: models.AccountTypeIncome},
		},
		sums: map[int64]models.LedgerSums{
			1: {Debit: d("1000")},
			2: {Credit: d("1000")},
		},
	}
	e := NewEngine(testutil.Logger())
	persist := func(ctx context.Context, id int64) (Balances, error) { return e.Persist(ctx, store, id) }

	var progress []int
	first, err := e.RecomputeAll(context.Background(), store, persist, func(i, total int, r Recalculation) {
		progress = append(progress, i)
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	if !reflect.DeepEqual(progress, []int{1, 2}) {
		t.Errorf("progress = %v", progress)
	}
	for _, r := range first {
		if !r.Changed() {
			t.Errorf("%s: null balance should be reported as changed", r.Name)
		}
	}

	second, err := e.RecomputeAll(context.Background(), store, persist, nil)
	if err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	for _, r := range second {
		if r.Changed() {
			t.Errorf("%s: second run changed %s -> %s", r.Name, r.Old.Decimal, r.New)
		}
	}
}

func TestChangeKindString(t *testing.T) {
	if Created.String() != "created" || StatusChanged.String() != "status_changed" || ChangeKind(42).String() != "unknown" {
		t.Error("unexpected ChangeKind names")
	}
}
