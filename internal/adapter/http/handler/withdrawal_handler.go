package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// WithdrawalService is the withdrawal workflow.
type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, input usecase.RequestWithdrawalInput) (*domain.Transaction, error)
	Approve(ctx context.Context, requestID string) (*domain.Transaction, error)
	Reject(ctx context.Context, requestID, reason string) (*domain.Transaction, error)
	Get(ctx context.Context, requestID string) (*domain.Transaction, error)
	List(ctx context.Context, input usecase.ListWithdrawalsInput) ([]*domain.Transaction, error)
}

// WithdrawalHandler handles withdrawal-related HTTP requests.
type WithdrawalHandler struct {
	withdrawals WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawals WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Create requests a payout of the caller's funds.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.WithdrawalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	request, err := h.withdrawals.RequestWithdrawal(r.Context(), req.ToUseCaseInput(caller.UserID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(request))
}

// List lists withdrawal requests. Admins see every user's requests and may
// filter with ?userId; everyone else sees their own.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := domain.TransactionStatus(r.URL.Query().Get("status"))
	userID := caller.UserID
	if caller.IsAdmin() {
		userID = r.URL.Query().Get("userId")
	}

	limit, offset := domain.ValidatePagination(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
	requests, err := h.withdrawals.List(r.Context(), usecase.ListWithdrawalsInput{
		UserID: userID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.WithdrawalResponse]{
		Data:   dto.WithdrawalsFromDomain(requests),
		Limit:  limit,
		Offset: offset,
	})
}

// Get returns one withdrawal request to its owner or an admin.
func (h *WithdrawalHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	request, err := h.withdrawals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !caller.CanAccess(request.UserID) {
		writeError(w, r, domain.ErrForbidden)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(request))
}

// Approve marks a pending request as paid out. Admin only.
func (h *WithdrawalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	approved, err := h.withdrawals.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(approved))
}

// Reject turns down a pending request and returns the reserved funds. Admin only.
func (h *WithdrawalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rejected, err := h.withdrawals.Reject(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalFromDomain(rejected))
}
