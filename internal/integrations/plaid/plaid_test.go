package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/sirupsen/logrus"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewClient(&config.Config{PlaidURL: srv.URL, PlaidClientID: "client", PlaidSecret: "secret"}, log)
}

func TestFetchTransactions(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/sync" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{
			"added": [
				{"transaction_id": "t1", "account_id": "a1", "amount": 12.5, "date": "2024-03-01",
				 "name": "COFFEE SHOP", "merchant_name": "Blue Bottle", "category": ["Food and Drink", "Coffee"]},
				{"transaction_id": "t2", "account_id": "a1", "amount": -1500, "date": "2024-03-02",
				 "name": "PAYROLL", "merchant_name": null, "category": null,
				 "personal_finance_category": {"primary": "INCOME", "detailed": "INCOME_WAGES"}}
			],
			"modified": [
				{"transaction_id": "t0", "account_id": "a1", "amount": 3.10, "date": "2024-02-28", "name": "BUS"}
			],
			"removed": [{"transaction_id": "t9"}],
			"next_cursor": "cursor-2",
			"has_more": true
		}`))
	})

	page, err := c.FetchTransactions(context.Background(), "access-token", "cursor-1")
	if err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
	if got["access_token"] != "access-token" || got["cursor"] != "cursor-1" || got["client_id"] != "client" {
		t.Errorf("unexpected request body: %v", got)
	}
	if page.NextCursor != "cursor-2" || !page.HasMore {
		t.Errorf("cursor = %q, hasMore = %v", page.NextCursor, page.HasMore)
	}
	if len(page.Added) != 2 || len(page.Modified) != 1 || len(page.Removed) != 1 {
		t.Fatalf("unexpected page sizes: %d added, %d modified, %d removed", len(page.Added), len(page.Modified), len(page.Removed))
	}

	coffee := page.Added[0]
	if coffee.Amount != "12.5" || coffee.MerchantName != "Blue Bottle" || coffee.Category[len(coffee.Category)-1] != "Coffee" {
		t.Errorf("unexpected mapping: %+v", coffee)
	}
	payroll := page.Added[1]
	if payroll.Amount != "-1500" || payroll.MerchantName != "" {
		t.Errorf("unexpected mapping: %+v", payroll)
	}
	if len(payroll.Category) != 2 || payroll.Category[1] != "INCOME_WAGES" {
		t.Errorf("personal finance category not used: %v", payroll.Category)
	}
	if page.Removed[0] != "t9" {
		t.Errorf("removed = %v", page.Removed)
	}
}

func TestFetchTransactionsOmitsEmptyCursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["cursor"]; ok {
			t.Errorf("cursor should be omitted on first sync: %v", body)
		}
		w.Write([]byte(`{"added": [], "modified": [], "removed": [], "next_cursor": "c1", "has_more": false}`))
	})
	if _, err := c.FetchTransactions(context.Background(), "tok", ""); err != nil {
		t.Fatalf("FetchTransactions: %v", err)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type": "ITEM_ERROR", "error_code": "ITEM_LOGIN_REQUIRED",
			"error_message": "the login details of this item have changed", "request_id": "req-1"}`))
	})

	_, err := c.FetchTransactions(context.Background(), "tok", "")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.ErrorCode != "ITEM_LOGIN_REQUIRED" || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestLinkFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/link/token/create":
			user := body["user"].(map[string]any)
			if user["client_user_id"] != "7-42" {
				t.Errorf("client_user_id = %v", user["client_user_id"])
			}
			w.Write([]byte(`{"link_token": "link-sandbox-1"}`))
		case "/item/public_token/exchange":
			w.Write([]byte(`{"access_token": "access-1", "item_id": "item-1"}`))
		case "/institutions/get_by_id":
			w.Write([]byte(`{"institution": {"institution_id": "ins_1", "name": "First Platypus Bank"}}`))
		case "/accounts/get":
			w.Write([]byte(`{"accounts": [{"account_id": "acc-1", "name": "Checking", "mask": "0000",
				"type": "depository", "subtype": "checking",
				"balances": {"available": 100.25, "current": 110, "iso_currency_code": "USD"}},
				{"account_id": "acc-2", "name": "Card", "type": "credit", "balances": {"available": null, "current": 5}}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	accountID := int64(42)
	token, err := c.CreateLinkToken(ctx, 7, &accountID)
	if err != nil || token != "link-sandbox-1" {
		t.Fatalf("CreateLinkToken = %q, %v", token, err)
	}
	access, item, err := c.ExchangePublicToken(ctx, "public-1")
	if err != nil || access != "access-1" || item != "item-1" {
		t.Fatalf("ExchangePublicToken = %q, %q, %v", access, item, err)
	}
	inst, err := c.GetInstitution(ctx, "ins_1")
	if err != nil || inst.Name != "First Platypus Bank" {
		t.Fatalf("GetInstitution = %+v, %v", inst, err)
	}
	accounts, err := c.GetAccounts(ctx, access)
	if err != nil {
		t.Fatalf("GetAccounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts", len(accounts))
	}
	if !accounts[0].Available.Valid || accounts[0].Available.Decimal.String() != "100.25" {
		t.Errorf("available = %+v", accounts[0].Available)
	}
	if accounts[1].Available.Valid {
		t.Errorf("null balance should stay null: %+v", accounts[1].Available)
	}
}
