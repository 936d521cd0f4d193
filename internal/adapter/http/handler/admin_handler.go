package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// ReconciliationService checks wallets against the journal.
type ReconciliationService interface {
	ReconcileWallet(ctx context.Context, userID string) (*usecase.ReconciliationResult, error)
	GenerateReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// SweepService re-verifies stale pending payments.
type SweepService interface {
	VerifyPending(ctx context.Context, olderThan time.Duration, limit, workers int) (*usecase.SweepResult, error)
}

// SweepDefaults are used when a sweep request leaves a field unset.
type SweepDefaults struct {
	Age     time.Duration
	Limit   int
	Workers int
}

// AdminHandler serves operator endpoints. The router mounts it behind RequireAdmin.
type AdminHandler struct {
	reconciliation ReconciliationService
	sweeps         SweepService
	defaults       SweepDefaults
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reconciliation ReconciliationService, sweeps SweepService, defaults SweepDefaults) *AdminHandler {
	return &AdminHandler{reconciliation: reconciliation, sweeps: sweeps, defaults: defaults}
}

// Report reconciles every wallet.
func (h *AdminHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliation.GenerateReport(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ReconcileWallet reconciles one user's wallet.
func (h *AdminHandler) ReconcileWallet(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciliation.ReconcileWallet(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Sweep re-verifies stale pending payments now. The body is optional.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req dto.SweepRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.OlderThanSeconds < 0 || req.Limit < 0 {
		writeError(w, r, fmt.Errorf("%w: olderThanSeconds and limit must not be negative", domain.ErrInvalidRequest))
		return
	}

	age := h.defaults.Age
	if req.OlderThanSeconds > 0 {
		age = time.Duration(req.OlderThanSeconds) * time.Second
	}
	limit := h.defaults.Limit
	if req.Limit > 0 {
		limit = req.Limit
	}

	result, err := h.sweeps.VerifyPending(r.Context(), age, limit, h.defaults.Workers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
