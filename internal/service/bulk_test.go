package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dan9191/ledger-service/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestBulkReconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pay := f.post(t, "1000", f.checking.ID, f.salary.ID, models.StatusCategorized)
	rent := f.post(t, "250", f.rent.ID, f.checking.ID, models.StatusCategorized)
	f.expectBalance(t, f.checking, "750.00", "0.00")

	res, err := f.svc.BulkUpdateTransactions(ctx, f.owner, BulkUpdate{
		IDs:    []int64{pay.ID, rent.ID, pay.ID},
		Status: ptr("reconciled"),
	})
	if err != nil {
		t.Fatalf("BulkUpdateTransactions: %v", err)
	}
	if res.Updated != 2 {
		t.Errorf("updated = %d, want 2 (duplicate id counted once)", res.Updated)
	}
	want := []int64{f.checking.ID, f.salary.ID, f.rent.ID}
	if !reflect.DeepEqual(res.Accounts, want) {
		t.Errorf("accounts = %v, want %v", res.Accounts, want)
	}
	f.expectBalance(t, f.checking, "750.00", "750.00")
	f.expectBalance(t, f.salary, "1000.00", "1000.00")
	f.expectBalance(t, f.rent, "250.00", "250.00")

	got, _ := f.svc.GetTransaction(ctx, f.owner, rent.ID)
	if !got.IsReconciled {
		t.Error("legacy flag should follow status")
	}
}

func TestBulkIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txn := f.post(t, "10", f.rent.ID, f.checking.ID, models.StatusReview)

	tests := []struct {
		name  string
		patch BulkUpdate
		field string
	}{
		{"unknown id", BulkUpdate{IDs: []int64{txn.ID, 9999}, Notes: ptr("x")}, "id"},
		{"invalid status", BulkUpdate{IDs: []int64{txn.ID}, Notes: ptr("x"), Status: ptr("done")}, "status"},
		{"category without selected account", BulkUpdate{IDs: []int64{txn.ID}, CategoryID: &f.salary.ID}, "selectedAccount"},
		{"empty patch", BulkUpdate{IDs: []int64{txn.ID}}, "patch"},
		{"no ids", BulkUpdate{Notes: ptr("x")}, "ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.BulkUpdateTransactions(ctx, f.owner, tt.patch)
			var verr *models.BulkValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected BulkValidationError, got %v", err)
			}
			found := false
			for _, fail := range verr.Failures {
				if fail.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("failures %+v do not name %q", verr.Failures, tt.field)
			}
			got, _ := f.svc.GetTransaction(ctx, f.owner, txn.ID)
			if got.Notes != "" || got.Status != models.StatusReview {
				t.Errorf("transaction was written: %+v", got)
			}
		})
	}
}

func TestBulkCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spend := f.post(t, "40", f.checking.ID, f.checking.ID, models.StatusReview)
	income := f.post(t, "60", f.checking.ID, f.checking.ID, models.StatusReview)

	_, err := f.svc.BulkUpdateTransactions(ctx, f.owner, BulkUpdate{
		IDs:               []int64{spend.ID},
		CategoryID:        &f.rent.ID,
		SelectedAccountID: &f.checking.ID,
		Status:            ptr("categorized"),
	})
	if err != nil {
		t.Fatalf("expense category: %v", err)
	}
	got, _ := f.svc.GetTransaction(ctx, f.owner, spend.ID)
	if got.DebitID != f.rent.ID || got.CreditID != f.checking.ID || got.Status != models.StatusCategorized {
		t.Errorf("expense category applied as %+v", got)
	}

	_, err = f.svc.BulkUpdateTransactions(ctx, f.owner, BulkUpdate{
		IDs:               []int64{income.ID},
		CategoryID:        &f.salary.ID,
		SelectedAccountID: &f.checking.ID,
	})
	if err != nil {
		t.Fatalf("income category: %v", err)
	}
	got, _ = f.svc.GetTransaction(ctx, f.owner, income.ID)
	if got.DebitID != f.checking.ID || got.CreditID != f.salary.ID {
		t.Errorf("income category applied as %+v", got)
	}

	f.expectBalance(t, f.checking, "20.00", "0.00")
	f.expectBalance(t, f.rent, "40.00", "0.00")
	f.expectBalance(t, f.salary, "60.00", "0.00")

	_, err = f.svc.BulkUpdateTransactions(ctx, f.owner, BulkUpdate{
		IDs:               []int64{spend.ID},
		CategoryID:        &f.salary.ID,
		SelectedAccountID: &f.salary.ID,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("selected account not on transaction: %v", err)
	}
}

func TestBulkLegacyFlagOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	txn := f.post(t, "10", f.rent.ID, f.checking.ID, models.StatusCategorized)

	if _, err := f.svc.BulkUpdateTransactions(ctx, f.owner, BulkUpdate{IDs: []int64{txn.ID}, IsReconciled: ptr(true)}); err != nil {
		t.Fatalf("BulkUpdateTransactions: %v", err)
	}
	got, _ := f.svc.GetTransaction(ctx, f.owner, txn.ID)
	if !got.IsReconciled || got.Status != models.StatusCategorized {
		t.Errorf("legacy flag only: %+v", got)
	}
	f.expectBalance(t, f.checking, "-10.00", "0.00")

	notes := "rent for March"
	if _, err := f.svc.UpdateTransaction(ctx, f.owner, txn.ID, TransactionPatch{Notes: &notes}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, _ = f.svc.GetTransaction(ctx, f.owner, txn.ID)
	if !got.IsReconciled || got.Notes != notes {
		t.Errorf("notes edit must keep the legacy flag: %+v", got)
	}

	if _, err := f.svc.SetStatus(ctx, f.owner, txn.ID, "review"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, _ = f.svc.GetTransaction(ctx, f.owner, txn.ID)
	if got.IsReconciled {
		t.Errorf("status write must re-derive the legacy flag: %+v", got)
	}
}
