package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
)

// PayForOrderInput represents input for paying an order from a wallet.
type PayForOrderInput struct {
	UserID  string
	OrderID string
	Amount  decimal.Decimal
}

// PayForOrderResult is the paid order together with the checkout entry.
type PayForOrderResult struct {
	Order       *domain.Order
	Transaction *domain.Transaction
	Wallet      *domain.Wallet
}

// OrderSettlementUseCase pays orders from wallets and undoes the debit when
// the order service cannot record the payment.
type OrderSettlementUseCase struct {
	wallet    *WalletUseCase
	orders    OrderService
	auditRepo AuditRepository
	idGen     IDGenerator
	metrics   *metrics.Metrics
}

// NewOrderSettlementUseCase creates a new OrderSettlementUseCase.
func NewOrderSettlementUseCase(wallet *WalletUseCase, orders OrderService, auditRepo AuditRepository, idGen IDGenerator, metrics *metrics.Metrics) *OrderSettlementUseCase {
	return &OrderSettlementUseCase{
		wallet:    wallet,
		orders:    orders,
		auditRepo: auditRepo,
		idGen:     idGen,
		metrics:   metrics,
	}
}

// PayForOrder debits the customer's wallet for an order and marks it paid.
// If marking fails the debit is refunded and the order cancelled.
func (uc *OrderSettlementUseCase) PayForOrder(ctx context.Context, input PayForOrderInput) (*PayForOrderResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	order, err := uc.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != input.UserID {
		return nil, domain.ErrForbidden
	}
	if order.Status != domain.OrderStatusPending {
		return nil, fmt.Errorf("%w: order is %s", domain.ErrInvalidStateTransition, order.Status)
	}
	if !input.Amount.Equal(order.Total) {
		return nil, fmt.Errorf("%w: expected %s", domain.ErrAmountMismatch, order.Total)
	}

	debit, err := uc.wallet.Debit(ctx, WalletMutation{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Type:        domain.TransactionTypeCheckout,
		Description: "order #" + order.ID,
		Reference:   checkoutReference(order.ID),
		OrderID:     order.ID,
	})
	if err != nil {
		return nil, err
	}

	// The money has moved; finish the order even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	if err := uc.orders.MarkPaid(ctx, order.ID, debit.Transaction.ReferenceValue()); err != nil {
		return nil, uc.compensate(ctx, order, debit.Transaction, err)
	}

	uc.audit(ctx, domain.AuditActionOrderPay, debit.Transaction, domain.AuditStatusSuccess, "")

	order.Status = domain.OrderStatusPaid
	return &PayForOrderResult{
		Order:       order,
		Transaction: debit.Transaction,
		Wallet:      debit.Wallet,
	}, nil
}

func (uc *OrderSettlementUseCase) compensate(ctx context.Context, order *domain.Order, checkout *domain.Transaction, cause error) error {
	if uc.metrics != nil {
		uc.metrics.OrderCompensations.Inc()
	}

	errs := []error{fmt.Errorf("mark order %s paid: %w", order.ID, cause)}

	_, err := uc.wallet.Credit(ctx, WalletMutation{
		UserID:      checkout.UserID,
		Amount:      checkout.Amount,
		Type:        domain.TransactionTypeRefund,
		Description: "refund for order #" + order.ID,
		Reference:   refundReference(checkout.ID),
		OrderID:     order.ID,
		RelatedID:   checkout.ID,
		Metadata:    map[string]any{"reason": "order could not be marked paid"},
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicateOperation) {
		errs = append(errs, fmt.Errorf("refund checkout %s: %w", checkout.ID, err))
	}

	if err := uc.orders.Cancel(ctx, order.ID, "payment could not be recorded"); err != nil {
		errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
	}

	joined := errors.Join(errs...)
	uc.audit(ctx, domain.AuditActionOrderCompensate, checkout, domain.AuditStatusFailure, joined.Error())

	return joined
}

func (uc *OrderSettlementUseCase) audit(ctx context.Context, action domain.AuditAction, txn *domain.Transaction, status domain.AuditStatus, message string) {
	if uc.auditRepo == nil {
		return
	}
	entry := domain.NewTransactionAudit(uc.idGen.Generate(), domain.ActorID(ctx), action, nil, txn, time.Now().UTC())
	if status == domain.AuditStatusFailure {
		entry.Failed(message)
	}
	_ = uc.auditRepo.Create(ctx, entry)
}
