package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Dan9191/ledger-service/internal/importer"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/Dan9191/ledger-service/internal/service"
)

const maxImportSize = 10 << 20

// ListTransactions supports account, status, from, to, limit and offset filters
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	f, err := transactionFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txns, err := h.svc.ListTransactions(r.Context(), ownerID, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	var f models.TransactionFilter
	if v := q.Get("account"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, models.NewFieldError("account", "must be an account id")
		}
		f.AccountID = id
	}
	f.Status = models.TransactionStatus(q.Get("status"))
	for key, dst := range map[string]*models.Date{"from": &f.From, "to": &f.To} {
		if v := q.Get(key); v != "" {
			d, err := models.ParseDate(v)
			if err != nil {
				return f, models.NewFieldError(key, "must be a YYYY-MM-DD date")
			}
			*dst = d
		}
	}
	var err error
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// CreateTransaction records a manual ledger entry
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in service.NewTransaction
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.CreateTransaction(r.Context(), ownerID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTransaction(r.Context(), ownerID, pathID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var patch service.TransactionPatch
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.UpdateTransaction(r.Context(), ownerID, pathID(r), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTransaction(r.Context(), ownerID, pathID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTransactionStatus moves a transaction to review, categorized or reconciled
func (h *Handler) SetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.SetStatus(r.Context(), ownerID, pathID(r), in.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	var patch service.BulkUpdate
	if err := decode(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.BulkUpdateTransactions(r.Context(), ownerID, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportTransactions reads a multipart upload with fields file, account,
// format (csv or camt) and, for CSV, mapping as JSON.
func (h *Handler) ImportTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		h.writeError(w, r, models.NewFieldError("file", "invalid upload: %v", err))
		return
	}
	accountID, err := strconv.ParseInt(r.FormValue("account"), 10, 64)
	if err != nil {
		h.writeError(w, r, models.NewFieldError("account", "must be an account id"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, models.NewFieldError("file", "is required"))
		return
	}
	defer file.Close()

	var summary *importer.Summary
	switch format := r.FormValue("format"); format {
	case "", "csv":
		var mapping importer.ColumnMapping
		if err := json.Unmarshal([]byte(r.FormValue("mapping")), &mapping); err != nil {
			h.writeError(w, r, models.NewFieldError("mapping", "invalid JSON: %v", err))
			return
		}
		summary, err = h.imp.ImportCSV(r.Context(), ownerID, accountID, file, mapping)
	case "camt":
		summary, err = h.imp.ImportCAMT(r.Context(), ownerID, accountID, file)
	default:
		err = models.NewFieldError("format", "unsupported format %q", format)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
