package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
)

// JournalService reads the transaction journal.
type JournalService interface {
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	AggregateStats(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionStats, error)
}

// TransactionHandler handles journal queries.
type TransactionHandler struct {
	journal JournalService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(journal JournalService) *TransactionHandler {
	return &TransactionHandler{journal: journal}
}

// List lists journal entries. Non-admin callers only see their own.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.UserID = caller.UserID
	if caller.IsAdmin() {
		filter.UserID = r.URL.Query().Get("userId")
	}

	h.list(w, r, filter)
}

// ListByUser lists one user's journal entries for that user or an admin.
func (h *TransactionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID := chi.URLParam(r, "userId")
	if !caller.CanAccess(userID) {
		writeError(w, r, domain.ErrForbidden)
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.UserID = userID

	h.list(w, r, filter)
}

func (h *TransactionHandler) list(w http.ResponseWriter, r *http.Request, filter domain.TransactionFilter) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	txns, err := h.journal.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
		Data:   dto.TransactionsFromDomain(txns),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get returns one journal entry to its owner or an admin.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txn, err := h.journal.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !caller.CanAccess(txn.UserID) {
		writeError(w, r, domain.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Stats aggregates journal entries. Non-admin callers get their own totals.
func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.UserID = caller.UserID
	if caller.IsAdmin() {
		filter.UserID = r.URL.Query().Get("userId")
	}

	stats, err := h.journal.AggregateStats(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatsFromDomain(stats))
}
