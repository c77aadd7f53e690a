package handler

import (
	"net/http"

	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/service"
)

// ListAccounts returns the caller's chart of accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	accounts, err := h.svc.ListAccounts(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in service.NewAccount
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), ownerID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// NextAccountNumber suggests a number for a new account
func (h *Handler) NextAccountNumber(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	floor, err := queryInt(r, "floor")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	num, err := h.svc.NextAvailableNumber(r.Context(), ownerID, floor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"num": num})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	account, err := h.svc.GetAccount(r.Context(), ownerID, pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var patch service.AccountPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := h.svc.UpdateAccount(r.Context(), ownerID, pathID(r), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), ownerID, pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecomputeAccount rebuilds one account's cached balances
func (h *Handler) RecomputeAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	account, err := h.svc.RecomputeAccount(r.Context(), ownerID, pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) ListSubAccountTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.ListSubAccountTypes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) CreateSubAccountType(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SubType     string `json:"subType"`
		AccountType string `json:"accountType"`
	}
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	st, err := h.svc.CreateSubAccountType(r.Context(), in.SubType, in.AccountType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *Handler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	merchants, err := h.svc.ListMerchants(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merchants)
}
