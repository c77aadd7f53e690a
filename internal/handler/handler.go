package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/ledger-service/internal/banksync"
	"github.com/Dan9191/ledger-service/internal/importer"
	"github.com/Dan9191/ledger-service/internal/middleware"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc  *service.Service
	feed *banksync.Reconciler
	imp  *importer.Importer
	log  *logrus.Logger
}

func NewHandler(svc *service.Service, feed *banksync.Reconciler, imp *importer.Importer, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, feed: feed, imp: imp, log: log}
}

// Routes registers every owner-scoped endpoint on r. The caller is
// expected to install the auth middleware on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	r.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/next-number", h.NextAccountNumber).Methods("GET")
	r.HandleFunc("/accounts/{id:[0-9]+}", h.GetAccount).Methods("GET")
	r.HandleFunc("/accounts/{id:[0-9]+}", h.UpdateAccount).Methods("PATCH")
	r.HandleFunc("/accounts/{id:[0-9]+}", h.DeleteAccount).Methods("DELETE")
	r.HandleFunc("/accounts/{id:[0-9]+}/recompute", h.RecomputeAccount).Methods("POST")

	r.HandleFunc("/subaccounttypes", h.ListSubAccountTypes).Methods("GET")
	r.HandleFunc("/subaccounttypes", h.CreateSubAccountType).Methods("POST")

	r.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions/bulk-update", h.BulkUpdate).Methods("POST")
	r.HandleFunc("/transactions/import", h.ImportTransactions).Methods("POST")
	r.HandleFunc("/transactions/{id:[0-9]+}", h.GetTransaction).Methods("GET")
	r.HandleFunc("/transactions/{id:[0-9]+}", h.UpdateTransaction).Methods("PUT")
	r.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods("DELETE")
	r.HandleFunc("/transactions/{id:[0-9]+}/status", h.SetTransactionStatus).Methods("PATCH")

	r.HandleFunc("/merchants", h.ListMerchants).Methods("GET")

	r.HandleFunc("/feed/link-token", h.CreateLinkToken).Methods("POST")
	r.HandleFunc("/feed/exchange", h.ExchangePublicToken).Methods("POST")
	r.HandleFunc("/feed/accounts", h.ListExternalAccounts).Methods("POST")
	r.HandleFunc("/feed/map-accounts", h.MapAccounts).Methods("POST")
	r.HandleFunc("/feed/connections", h.ListConnections).Methods("GET")
	r.HandleFunc("/feed/connections/{id:[0-9]+}/sync", h.SyncConnection).Methods("POST")
	r.HandleFunc("/feed/connections/{id:[0-9]+}/disconnect", h.Disconnect).Methods("POST")
	r.HandleFunc("/feed/connections/{id:[0-9]+}/runs", h.ListSyncRuns).Methods("GET")
}

type errorResponse struct {
	Error    string               `json:"error"`
	Field    string               `json:"field,omitempty"`
	Failures []models.BulkFailure `json:"failures,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and hidden behind a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		bulk  *models.BulkValidationError
		field *models.FieldError
	)
	switch {
	case errors.As(err, &bulk):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Failures: bulk.Failures})
	case errors.As(err, &field):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: field.Message, Field: field.Field})
	case errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrTransactionNotFound),
		errors.Is(err, models.ErrConnectionNotFound),
		errors.Is(err, models.ErrMerchantNotFound),
		errors.Is(err, models.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidAccountType),
		errors.Is(err, models.ErrOwnerMismatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrDuplicateAccountNumber),
		errors.Is(err, models.ErrAccountInUse):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).Errorf("Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewFieldError("body", "invalid JSON: %v", err)
	}
	return nil
}

func owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}
	return id, ok
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, models.NewFieldError(key, "must be a non-negative integer")
	}
	return n, nil
}
