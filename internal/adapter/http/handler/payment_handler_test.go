package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

type settlementServiceStub struct {
	initializeFn func(ctx context.Context, input usecase.InitializePaymentInput) (*usecase.PaymentInitResult, error)
	verifyFn     func(ctx context.Context, reference string) (*usecase.VerifyResult, error)
	refundFn     func(ctx context.Context, input usecase.RefundInput) (*usecase.RefundResult, error)
	payFn        func(ctx context.Context, input usecase.PayForOrderInput) (*usecase.PayForOrderResult, error)
}

func (s *settlementServiceStub) Initialize(ctx context.Context, input usecase.InitializePaymentInput) (*usecase.PaymentInitResult, error) {
	return s.initializeFn(ctx, input)
}

func (s *settlementServiceStub) Verify(ctx context.Context, reference string) (*usecase.VerifyResult, error) {
	return s.verifyFn(ctx, reference)
}

func (s *settlementServiceStub) Refund(ctx context.Context, input usecase.RefundInput) (*usecase.RefundResult, error) {
	return s.refundFn(ctx, input)
}

func (s *settlementServiceStub) PayForOrder(ctx context.Context, input usecase.PayForOrderInput) (*usecase.PayForOrderResult, error) {
	return s.payFn(ctx, input)
}

func newPaymentHandler(stub *settlementServiceStub) *PaymentHandler {
	return NewPaymentHandler(stub, stub)
}

func TestPaymentHandler_Initialize(t *testing.T) {
	var got usecase.InitializePaymentInput
	h := newPaymentHandler(&settlementServiceStub{
		initializeFn: func(ctx context.Context, input usecase.InitializePaymentInput) (*usecase.PaymentInitResult, error) {
			got = input
			return &usecase.PaymentInitResult{Reference: "PAY-1", AuthorizationURL: "https://pay.example/PAY-1", AccessCode: "ac-1"}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Initialize(rec, newRequest(http.MethodPost, "/api/v1/payments/initialize", `{"orderId":"order-1","amount":"100","paymentMethod":"card"}`, customer))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buyer-1", got.UserID)
	assert.Equal(t, "order-1", got.OrderID)
	assert.True(t, dec("100").Equal(got.Amount))
	assert.Contains(t, rec.Body.String(), `"reference":"PAY-1"`)
}

func TestPaymentHandler_InitializeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{name: "missing order", body: `{"amount":"100"}`, want: http.StatusBadRequest},
		{name: "not the customer", body: `{"orderId":"order-1","amount":"100"}`, err: domain.ErrForbidden, want: http.StatusForbidden},
		{name: "wrong amount", body: `{"orderId":"order-1","amount":"99"}`, err: domain.ErrAmountMismatch, want: http.StatusBadRequest},
		{name: "unknown order", body: `{"orderId":"order-9","amount":"100"}`, err: domain.ErrOrderNotFound, want: http.StatusBadRequest},
		{name: "provider down", body: `{"orderId":"order-1","amount":"100"}`, err: domain.ErrGateway, want: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPaymentHandler(&settlementServiceStub{
				initializeFn: func(ctx context.Context, input usecase.InitializePaymentInput) (*usecase.PaymentInitResult, error) {
					if tt.err == nil {
						t.Fatal("Initialize should not be called")
					}
					return nil, tt.err
				},
			})

			rec := httptest.NewRecorder()
			h.Initialize(rec, newRequest(http.MethodPost, "/api/v1/payments/initialize", tt.body, customer))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPaymentHandler_Verify(t *testing.T) {
	tests := []struct {
		name     string
		result   *usecase.VerifyResult
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "completed",
			result:   &usecase.VerifyResult{Reference: "PAY-1", Status: domain.TransactionStatusCompleted, Message: "payment verified"},
			wantCode: http.StatusOK,
			wantBody: `"status":"COMPLETED"`,
		},
		{
			name:     "unknown reference is a bad request",
			err:      domain.ErrInvalidReference,
			wantCode: http.StatusBadRequest,
			wantBody: `"error":"NotFound"`,
		},
		{
			name:     "gateway error",
			err:      domain.ErrGateway,
			wantCode: http.StatusBadGateway,
			wantBody: `"error":"GatewayError"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newPaymentHandler(&settlementServiceStub{
				verifyFn: func(ctx context.Context, reference string) (*usecase.VerifyResult, error) {
					assert.Equal(t, "PAY-1", reference)
					return tt.result, tt.err
				},
			})

			rec := httptest.NewRecorder()
			h.Verify(rec, newRequest(http.MethodPost, "/api/v1/payments/verify", `{"reference":"PAY-1"}`, customer))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestPaymentHandler_Refund(t *testing.T) {
	var got usecase.RefundInput
	ref := "refund:t-1"
	h := newPaymentHandler(&settlementServiceStub{
		refundFn: func(ctx context.Context, input usecase.RefundInput) (*usecase.RefundResult, error) {
			got = input
			switch input.OrderID {
			case "order-9":
				return nil, domain.ErrOrderNotFound
			case "order-2":
				return nil, domain.ErrDuplicateOperation
			}
			return &usecase.RefundResult{
				Status:      domain.TransactionStatusCompleted,
				Message:     "refunded to wallet",
				Transaction: &domain.Transaction{ID: "r-1", Type: domain.TransactionTypeRefund, Reference: &ref},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Refund(rec, newRequest(http.MethodPost, "/api/v1/payments/refund", `{"orderId":"order-1","reason":"item not delivered"}`, customer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "item not delivered", got.Reason)
	assert.Equal(t, customer, got.Actor)
	assert.Contains(t, rec.Body.String(), `"reference":"refund:t-1"`)

	rec = httptest.NewRecorder()
	h.Refund(rec, newRequest(http.MethodPost, "/api/v1/payments/refund", `{"orderId":"order-9"}`, customer))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown order is rendered as a bad request")

	rec = httptest.NewRecorder()
	h.Refund(rec, newRequest(http.MethodPost, "/api/v1/payments/refund", `{"orderId":"order-2"}`, customer))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaymentHandler_PayOrder(t *testing.T) {
	var got usecase.PayForOrderInput
	h := newPaymentHandler(&settlementServiceStub{
		payFn: func(ctx context.Context, input usecase.PayForOrderInput) (*usecase.PayForOrderResult, error) {
			got = input
			res := mutationResult(input.UserID, "50", "100", domain.TransactionTypeCheckout)
			return &usecase.PayForOrderResult{
				Order:       &domain.Order{ID: input.OrderID, CustomerID: input.UserID, Total: dec("100"), Status: domain.OrderStatusPaid},
				Transaction: res.Transaction,
				Wallet:      res.Wallet,
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.PayOrder(rec, newRequest(http.MethodPost, "/api/v1/orders/order-1/pay", `{"amount":"100"}`, customer, "orderId", "order-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, "buyer-1", got.UserID)
	assert.Contains(t, rec.Body.String(), `"orderStatus":"PAID"`)
	assert.Contains(t, rec.Body.String(), `"balance":"50"`)
}
