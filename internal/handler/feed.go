package handler

import (
	"net/http"

	"github.com/Dan9191/ledger-service/internal/banksync"
	"github.com/Dan9191/ledger-service/internal/models"
)

func (h *Handler) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		AccountID *int64 `json:"account"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &in); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	token, err := h.feed.CreateLinkToken(r.Context(), ownerID, in.AccountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

// ExchangePublicToken stores the bank connection. The response never
// contains the access token.
func (h *Handler) ExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var req banksync.ExchangeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	conn, err := h.feed.ExchangePublicToken(r.Context(), ownerID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (h *Handler) ListExternalAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		ConnectionID int64 `json:"connection"`
	}
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	accounts, err := h.feed.ListExternalAccounts(r.Context(), ownerID, in.ConnectionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) MapAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		ConnectionID int64            `json:"connection"`
		Mapping      map[string]int64 `json:"mapping"`
	}
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	conns, err := h.feed.MapAccounts(r.Context(), ownerID, in.ConnectionID, in.Mapping)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	conns, err := h.feed.ListConnections(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if conns == nil {
		conns = []models.FeedConnection{}
	}
	writeJSON(w, http.StatusOK, conns)
}

// SyncConnection runs a sync now. A failed fetch still returns the recorded
// run so the caller can see what happened.
func (h *Handler) SyncConnection(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	run, err := h.feed.SyncOwned(r.Context(), ownerID, pathID(r))
	if err != nil && run != nil {
		writeJSON(w, http.StatusBadGateway, run)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.feed.Disconnect(r.Context(), ownerID, pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSyncRuns(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	runs, err := h.feed.ListSyncRuns(r.Context(), ownerID, pathID(r), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
