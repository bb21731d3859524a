package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-file-guard/internal/model"
	"go-file-guard/internal/service"
	"go-file-guard/pkg/apierror"
)

type OperationsHandler struct {
	engine *service.Engine
}

func NewOperationsHandler(engine *service.Engine) *OperationsHandler {
	return &OperationsHandler{engine: engine}
}

// Submit previews and records an operation. Interactive confirmation makes
// no sense over HTTP, so that mode degrades to preview-only: the caller gets
// the preview back and confirms by transaction id.
func (h *OperationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req model.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if req.ConfirmationMode == "" || req.ConfirmationMode == model.ModeInteractive {
		req.ConfirmationMode = model.ModePreviewOnly
	}
	req.RequestedBy = requesterID(r)

	resp, err := h.engine.Submit(r.Context(), req)
	if err != nil && resp.TransactionID == 0 {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Status == model.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeSuccess(w, status, resp, nil)
}

// Confirm resolves an awaiting transaction with an explicit verdict.
func (h *OperationsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	id, err := transactionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req model.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	resp, err := h.engine.Confirm(r.Context(), id, req.Approve)
	if err != nil && resp.TransactionID == 0 {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Status == model.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeSuccess(w, status, resp, nil)
}

func (h *OperationsHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.engine.Rollback(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func (h *OperationsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.engine.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tx, nil)
}

func (h *OperationsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := model.TransactionQuery{
		Kind:   model.OperationKind(strings.TrimSpace(r.URL.Query().Get("kind"))),
		Status: model.TransactionStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if since := strings.TrimSpace(r.URL.Query().Get("since")); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, apierror.New("BAD_REQUEST", "since must be RFC 3339", since, http.StatusBadRequest))
			return
		}
		q.Since = parsed
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			q.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n > 0 {
			q.Offset = n
		}
	}

	txs, err := h.engine.ListTransactions(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, txs, nil)
}

func (h *OperationsHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	var q model.TrashQuery
	if txID := r.URL.Query().Get("transaction_id"); txID != "" {
		n, err := strconv.ParseInt(txID, 10, 64)
		if err != nil {
			writeError(w, apierror.New("BAD_REQUEST", "transaction_id must be an integer", txID, http.StatusBadRequest))
			return
		}
		q.TransactionID = n
	}
	if age := strings.TrimSpace(r.URL.Query().Get("older_than")); age != "" {
		d, err := time.ParseDuration(age)
		if err != nil || d < 0 {
			writeError(w, apierror.New("BAD_REQUEST", "older_than must be a duration like 48h", age, http.StatusBadRequest))
			return
		}
		q.OlderThan = time.Now().UTC().Add(-d)
	}

	entries, err := h.engine.ListTrash(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, nil)
}

func (h *OperationsHandler) RestoreTrashEntry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, apierror.New("BAD_REQUEST", "trash entry id is required", "", http.StatusBadRequest))
		return
	}

	entry, err := h.engine.RestoreTrashEntry(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entry, nil)
}

func (h *OperationsHandler) RestoreTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := transactionID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.engine.RestoreTransaction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func (h *OperationsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Sweep(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func transactionID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.New("BAD_REQUEST", "transaction id must be a positive integer", raw, http.StatusBadRequest)
	}
	return id, nil
}
