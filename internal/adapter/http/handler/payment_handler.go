package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusmart/ledger/internal/adapter/http/dto"
	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// SettlementService is the payment gateway settlement flow.
type SettlementService interface {
	Initialize(ctx context.Context, input usecase.InitializePaymentInput) (*usecase.PaymentInitResult, error)
	Verify(ctx context.Context, reference string) (*usecase.VerifyResult, error)
	Refund(ctx context.Context, input usecase.RefundInput) (*usecase.RefundResult, error)
}

// OrderPaymentService pays orders from wallets.
type OrderPaymentService interface {
	PayForOrder(ctx context.Context, input usecase.PayForOrderInput) (*usecase.PayForOrderResult, error)
}

// PaymentHandler handles payment and order settlement requests.
type PaymentHandler struct {
	settlement SettlementService
	orders     OrderPaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlement SettlementService, orders OrderPaymentService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement, orders: orders}
}

// Initialize starts a gateway payment for one of the caller's orders.
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.InitializePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(w, r, fmt.Errorf("%w: orderId is required", domain.ErrInvalidRequest))
		return
	}

	result, err := h.settlement.Initialize(r.Context(), req.ToUseCaseInput(caller))
	if err != nil {
		writeNotFoundAsBadRequest(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentInitFromDomain(result))
}

// Verify settles a payment reference with the provider. Repeating it is safe.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.settlement.Verify(r.Context(), req.Reference)
	if err != nil {
		writeNotFoundAsBadRequest(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.VerifyFromDomain(result))
}

// Refund returns an order's payment to the payer.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.RefundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(w, r, fmt.Errorf("%w: orderId is required", domain.ErrInvalidRequest))
		return
	}

	result, err := h.settlement.Refund(r.Context(), usecase.RefundInput{
		OrderID: req.OrderID,
		Reason:  req.Reason,
		Actor:   caller,
	})
	if err != nil {
		writeNotFoundAsBadRequest(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RefundFromDomain(result))
}

// PayOrder pays an order from the caller's wallet.
func (h *PaymentHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req dto.PayOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.orders.PayForOrder(r.Context(), usecase.PayForOrderInput{
		UserID:  caller.UserID,
		OrderID: chi.URLParam(r, "orderId"),
		Amount:  req.Amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PayOrderFromDomain(result))
}
