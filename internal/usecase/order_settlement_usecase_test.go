package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

func TestOrderSettlementUseCase_PayForOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	book := e.withOrders(pendingOrder("order-1", "buyer-1", "75.50"))
	e.fund(t, "buyer-1", "100")

	res, err := e.orderPayments.PayForOrder(ctx, usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-1", Amount: dec("75.50")})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, res.Order.Status)
	assert.Equal(t, domain.OrderStatusPaid, book.status("order-1"))
	assert.Equal(t, "order:order-1:checkout", res.Transaction.ReferenceValue())
	assert.Equal(t, "order #order-1", res.Transaction.Description)
	requireDecimal(t, "24.50", res.Wallet.Balance)
	e.requireReconciled(t, "buyer-1")
}

func TestOrderSettlementUseCase_PayTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.withOrders(pendingOrder("order-1", "buyer-1", "30"))
	e.fund(t, "buyer-1", "100")

	input := usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-1", Amount: dec("30")}
	_, err := e.orderPayments.PayForOrder(ctx, input)
	require.NoError(t, err)

	_, err = e.orderPayments.PayForOrder(ctx, input)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	requireDecimal(t, "70", e.balance(t, "buyer-1"))
}

func TestOrderSettlementUseCase_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.PayForOrderInput
		wantErr error
	}{
		{name: "not the customer", input: usecase.PayForOrderInput{UserID: "buyer-2", OrderID: "order-1", Amount: dec("30")}, wantErr: domain.ErrForbidden},
		{name: "wrong amount", input: usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-1", Amount: dec("29")}, wantErr: domain.ErrAmountMismatch},
		{name: "unknown order", input: usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-9", Amount: dec("30")}, wantErr: domain.ErrOrderNotFound},
		{name: "insufficient funds", input: usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-2", Amount: dec("500")}, wantErr: domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			book := e.withOrders(pendingOrder("order-1", "buyer-1", "30"), pendingOrder("order-2", "buyer-1", "500"))
			e.fund(t, "buyer-1", "100")

			_, err := e.orderPayments.PayForOrder(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.wantErr)

			requireDecimal(t, "100", e.balance(t, "buyer-1"))
			assert.Equal(t, domain.OrderStatusPending, book.status("order-1"))
		})
	}
}

func TestOrderSettlementUseCase_CompensatesWhenOrderCannotBeMarked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	book := e.withOrders(pendingOrder("order-1", "buyer-1", "40"))
	book.markPaidErr = errors.New("order service unavailable")
	e.fund(t, "buyer-1", "100")

	_, err := e.orderPayments.PayForOrder(ctx, usecase.PayForOrderInput{UserID: "buyer-1", OrderID: "order-1", Amount: dec("40")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order service unavailable")

	requireDecimal(t, "100", e.balance(t, "buyer-1"))
	assert.Equal(t, domain.OrderStatusCancelled, book.status("order-1"))

	entries, err := e.txRepo.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TransactionTypeCheckout, entries[0].Type)
	assert.Equal(t, domain.TransactionTypeRefund, entries[1].Type)

	// The compensation already returned the money.
	_, err = e.settlement.Refund(ctx, usecase.RefundInput{OrderID: "order-1"})
	require.ErrorIs(t, err, domain.ErrDuplicateOperation)

	logs, err := e.audit.List(ctx, domain.AuditFilter{Action: string(domain.AuditActionOrderCompensate)})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	e.requireReconciled(t, "buyer-1")
}
