package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// WalletService is the wallet store as seen by HTTP handlers.
type WalletService interface {
	GetWallet(ctx context.Context, userID string) (*domain.WalletSummary, error)
	Fund(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*usecase.MutationResult, error)
	Checkout(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*usecase.MutationResult, error)
}

// TopUpService starts gateway payments into a wallet.
type TopUpService interface {
	InitializeTopUp(ctx context.Context, input usecase.InitializeTopUpInput) (*usecase.PaymentInitResult, error)
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	wallets WalletService
	topUps  TopUpService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets WalletService, topUps TopUpService) *WalletHandler {
	return &WalletHandler{wallets: wallets, topUps: topUps}
}

// Get returns a wallet summary. Only the owner or an admin may read it.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(summary))
}

// Fund credits the caller's wallet.
func (h *WalletHandler) Fund(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.wallets.Fund)
}

// Checkout debits the caller's wallet.
func (h *WalletHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.wallets.Checkout)
}

func (h *WalletHandler) mutate(w http.ResponseWriter, r *http.Request, op func(context.Context, string, decimal.Decimal, string) (*usecase.MutationResult, error)) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := op(r.Context(), caller.UserID, req.Amount, req.Reference)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MutationFromDomain(result))
}

// TopUp starts a gateway payment that credits the caller's wallet once verified.
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.TopUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.topUps.InitializeTopUp(r.Context(), req.ToUseCaseInput(caller))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentInitFromDomain(result))
}
