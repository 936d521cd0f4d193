package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
)

// InitializePaymentInput represents input for starting an order payment.
type InitializePaymentInput struct {
	UserID  string
	Email   string
	OrderID string
	Amount  decimal.Decimal
	Method  string
}

// InitializeTopUpInput represents input for funding a wallet through the gateway.
type InitializeTopUpInput struct {
	UserID string
	Email  string
	Amount decimal.Decimal
	Method string
}

// VerifyResult is the outcome of verifying a payment reference.
type VerifyResult struct {
	Reference   string                   `json:"reference"`
	Status      domain.TransactionStatus `json:"status"`
	Message     string                   `json:"message"`
	Transaction *domain.Transaction      `json:"-"`
}

// RefundInput represents input for refunding an order payment.
type RefundInput struct {
	OrderID string
	Reason  string
	// Actor is the caller; nil means a trusted internal caller.
	Actor *domain.Identity
}

// RefundResult is the outcome of a refund.
type RefundResult struct {
	Status      domain.TransactionStatus `json:"status"`
	Message     string                   `json:"message"`
	Transaction *domain.Transaction      `json:"-"`
}

// SettlementConfig configures the settlement gateway.
type SettlementConfig struct {
	Currency       string
	GatewayTimeout time.Duration
}

// SettlementUseCase turns payment provider outcomes into journal entries and
// wallet mutations, applying each payment exactly once however often it is verified.
type SettlementUseCase struct {
	txManager  TransactionManager
	wallet     *WalletUseCase
	journal    *JournalUseCase
	txRepo     TransactionRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	provider   PaymentProvider
	orders     OrderService
	retrier    Retrier
	idGen      IDGenerator
	metrics    *metrics.Metrics
	cfg        SettlementConfig
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	wallet *WalletUseCase,
	journal *JournalUseCase,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	provider PaymentProvider,
	orders OrderService,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	cfg SettlementConfig,
) *SettlementUseCase {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}

	return &SettlementUseCase{
		txManager:  txManager,
		wallet:     wallet,
		journal:    journal,
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		provider:   provider,
		orders:     orders,
		retrier:    retrier,
		idGen:      idGen,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// Initialize starts a gateway payment for an order.
func (uc *SettlementUseCase) Initialize(ctx context.Context, input InitializePaymentInput) (*PaymentInitResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.OrderID == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidRequest)
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

	return uc.start(ctx, &domain.Transaction{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Description: "payment for order #" + order.ID,
		OrderID:     &order.ID,
	}, domain.PaymentPurposeOrder, input.Email, input.Method)
}

// InitializeTopUp starts a gateway payment that credits the payer's wallet once verified.
func (uc *SettlementUseCase) InitializeTopUp(ctx context.Context, input InitializeTopUpInput) (*PaymentInitResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}

	return uc.start(ctx, &domain.Transaction{
		UserID:      input.UserID,
		Amount:      input.Amount,
		Description: "wallet top-up",
	}, domain.PaymentPurposeWalletTopUp, input.Email, input.Method)
}

func (uc *SettlementUseCase) start(ctx context.Context, intent *domain.Transaction, purpose domain.PaymentPurpose, email, method string) (*PaymentInitResult, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = "card"
	}

	reference := paymentReferencePrefix + uc.idGen.Generate()
	intent.ID = uc.idGen.Generate()
	intent.Type = domain.TransactionTypeDeposit
	intent.Status = domain.TransactionStatusPending
	intent.Reference = &reference
	intent.Metadata = map[string]any{
		domain.MetaKind:     domain.KindPaymentIntent,
		domain.MetaPurpose:  string(purpose),
		domain.MetaMethod:   method,
		domain.MetaProvider: uc.provider.Name(),
	}

	// The intent is recorded before the provider is contacted so that a
	// callback can never arrive for a reference the journal does not know.
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		if err := uc.journal.Append(ctx, tx, intent); err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypePaymentInitialized, intent, intent.CreatedAt))
	})
	if err != nil {
		return nil, err
	}

	req := PaymentInitRequest{
		Reference: reference,
		Amount:    intent.Amount,
		Currency:  uc.cfg.Currency,
		Email:     email,
		UserID:    intent.UserID,
		Method:    method,
		Metadata: map[string]string{
			domain.MetaPurpose: string(purpose),
			"transaction_id":   intent.ID,
		},
	}
	if intent.OrderID != nil {
		req.Metadata["order_id"] = *intent.OrderID
	}

	var result *PaymentInitResult
	callErr := uc.callProvider(ctx, "initialize", func(ctx context.Context) error {
		var err error
		result, err = uc.provider.Initialize(ctx, req)
		return err
	})
	if callErr != nil {
		// A timed-out initialization may still exist at the provider; leave the
		// intent PENDING so a later verify settles it either way.
		if !errors.Is(callErr, context.DeadlineExceeded) {
			uc.failIntent(ctx, intent, callErr.Error())
		}
		return nil, callErr
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsInitialized.WithLabelValues(string(purpose)).Inc()
	}

	result.Reference = reference
	return result, nil
}

// Verify settles a payment reference. Verifying a reference that is already
// settled returns the recorded outcome without touching any wallet.
func (uc *SettlementUseCase) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrInvalidReference
	}

	intent, err := uc.txRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, domain.ErrInvalidReference
		}
		return nil, err
	}
	if !intent.IsPaymentIntent() {
		return nil, domain.ErrInvalidReference
	}

	if intent.Status.IsTerminal() {
		return uc.settled(ctx, intent)
	}

	var verification *PaymentVerification
	if err := uc.callProvider(ctx, "verify", func(ctx context.Context) error {
		var err error
		verification, err = uc.provider.Verify(ctx, reference)
		return err
	}); err != nil {
		return nil, err
	}

	if verification.Status == ProviderStatusPending {
		uc.observeVerify("pending")
		return &VerifyResult{
			Reference:   reference,
			Status:      domain.TransactionStatusPending,
			Message:     "payment is still pending",
			Transaction: intent,
		}, nil
	}

	var settled *domain.Transaction
	applied := false
	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		applied = false

		locked, err := uc.txRepo.GetByReferenceForUpdate(ctx, tx, reference)
		if err != nil {
			return err
		}
		// A concurrent verification settled it first.
		if locked.Status != domain.TransactionStatusPending {
			settled = locked
			return nil
		}

		next, note := outcome(verification, locked.Amount, uc.cfg.Currency)
		switch {
		case next == domain.TransactionStatusCompleted && locked.Purpose() == domain.PaymentPurposeWalletTopUp:
			res, err := uc.wallet.SettleTx(ctx, tx, locked, note)
			if err != nil {
				return err
			}
			settled = res.Transaction
		default:
			settled, err = uc.journal.Transition(ctx, tx, locked, next, note)
			if err != nil {
				return err
			}
		}

		eventType := domain.EventTypePaymentCompleted
		if next == domain.TransactionStatusFailed {
			eventType = domain.EventTypePaymentFailed
		}
		applied = true
		return uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), eventType, settled, settled.UpdatedAt))
	})
	if err != nil {
		return nil, err
	}

	if applied {
		uc.observeVerify(strings.ToLower(string(settled.Status)))
		if settled.Purpose() == domain.PaymentPurposeWalletTopUp {
			uc.wallet.AfterCommit(ctx, settled.UserID)
		}
	}

	return uc.settled(ctx, settled)
}

// settled reports a terminal intent, making sure a completed order payment has
// reached the order service.
func (uc *SettlementUseCase) settled(ctx context.Context, intent *domain.Transaction) (*VerifyResult, error) {
	result := &VerifyResult{
		Reference:   intent.ReferenceValue(),
		Status:      intent.Status,
		Transaction: intent,
	}

	switch intent.Status {
	case domain.TransactionStatusCompleted:
		result.Message = "payment verified"
		if intent.Purpose() == domain.PaymentPurposeOrder && intent.OrderID != nil {
			if err := uc.ensureOrderPaid(ctx, *intent.OrderID, result.Reference); err != nil {
				return result, fmt.Errorf("payment verified but order %s was not updated: %w", *intent.OrderID, err)
			}
			result.Message = "payment verified, order marked paid"
		}
	case domain.TransactionStatusFailed:
		result.Message = "payment failed"
		if intent.Note != "" {
			result.Message = "payment failed: " + lastLine(intent.Note)
		}
	default:
		result.Message = "payment is " + strings.ToLower(string(intent.Status))
	}

	return result, nil
}

func (uc *SettlementUseCase) ensureOrderPaid(ctx context.Context, orderID, reference string) error {
	ctx = context.WithoutCancel(ctx)

	order, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == domain.OrderStatusPaid {
		return nil
	}
	return uc.orders.MarkPaid(ctx, orderID, reference)
}

// Refund returns an order's completed payment to the payer: to the wallet for
// wallet checkouts, through the provider for gateway payments.
func (uc *SettlementUseCase) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > domain.MaxReasonLen {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", domain.ErrInvalidRequest, domain.MaxReasonLen)
	}
	if reason == "" {
		reason = "refund requested"
	}

	order, err := uc.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.Actor != nil && !input.Actor.CanAccess(order.CustomerID) {
		return nil, domain.ErrForbidden
	}

	entries, err := uc.txRepo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	payment, attempts, err := refundablePayment(entries)
	if err != nil {
		return nil, err
	}

	if payment.Posted {
		return uc.refundToWallet(ctx, order, payment, reason)
	}
	return uc.refundThroughProvider(ctx, order, payment, reason, attempts)
}

func (uc *SettlementUseCase) refundToWallet(ctx context.Context, order *domain.Order, payment *domain.Transaction, reason string) (*RefundResult, error) {
	var refund *domain.Transaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		if _, err := uc.txRepo.GetByIDForUpdate(ctx, tx, payment.ID); err != nil {
			return err
		}

		res, err := uc.wallet.CreditTx(ctx, tx, WalletMutation{
			UserID:      payment.UserID,
			Amount:      payment.Amount,
			Type:        domain.TransactionTypeRefund,
			Description: "refund for order #" + order.ID,
			Reference:   refundReference(payment.ID),
			OrderID:     order.ID,
			RelatedID:   payment.ID,
			Metadata:    map[string]any{"reason": reason},
		})
		if err != nil {
			return err
		}
		refund = res.Transaction

		if err := uc.journal.AppendNote(ctx, tx, payment.ID, fmt.Sprintf("refunded by %s: %s", refund.ID, reason)); err != nil {
			return err
		}
		if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypePaymentRefunded, refund, refund.CreatedAt)); err != nil {
			return err
		}
		return uc.audit(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}

	uc.wallet.AfterCommit(ctx, payment.UserID)
	if uc.metrics != nil {
		uc.metrics.PaymentsRefunded.WithLabelValues("wallet").Inc()
	}

	return &RefundResult{
		Status:      refund.Status,
		Message:     "refund credited to wallet",
		Transaction: refund,
	}, nil
}

func (uc *SettlementUseCase) refundThroughProvider(ctx context.Context, order *domain.Order, payment *domain.Transaction, reason string, attempts int) (*RefundResult, error) {
	reference := refundReference(payment.ID)
	if attempts > 0 {
		reference = fmt.Sprintf("%s:%d", reference, attempts+1)
	}

	// Claim the refund first; the unique reference stops a concurrent refund
	// from reaching the provider twice.
	claim := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		UserID:      payment.UserID,
		Type:        domain.TransactionTypeRefund,
		Amount:      payment.Amount,
		Status:      domain.TransactionStatusPending,
		Reference:   &reference,
		Description: "refund for order #" + order.ID,
		OrderID:     &order.ID,
		RelatedID:   &payment.ID,
		Metadata:    map[string]any{"reason": reason, domain.MetaProvider: uc.provider.Name()},
	}
	if err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		return uc.journal.Append(ctx, tx, claim)
	}); err != nil {
		return nil, err
	}

	callErr := uc.callProvider(ctx, "refund", func(ctx context.Context) error {
		return uc.provider.Refund(ctx, payment.ReferenceValue(), payment.Amount)
	})
	if callErr != nil {
		// Only a definite rejection frees the order for another refund. Any
		// other failure may have reached the provider, so the claim stays
		// PENDING and blocks a second refund.
		if errors.Is(callErr, ErrProviderRejected) {
			uc.failIntent(ctx, claim, callErr.Error())
		}
		return nil, callErr
	}

	var refund *domain.Transaction
	err := runInTx(context.WithoutCancel(ctx), uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		refund, err = uc.journal.UpdateStatus(ctx, tx, claim.ID, domain.TransactionStatusCompleted, "refunded by "+uc.provider.Name())
		if err != nil {
			return err
		}
		if err := uc.journal.AppendNote(ctx, tx, payment.ID, fmt.Sprintf("refunded by %s: %s", refund.ID, reason)); err != nil {
			return err
		}
		if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypePaymentRefunded, refund, refund.UpdatedAt)); err != nil {
			return err
		}
		return uc.audit(ctx, tx, refund)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsRefunded.WithLabelValues("provider").Inc()
	}

	return &RefundResult{
		Status:      refund.Status,
		Message:     "refund sent to " + uc.provider.Name(),
		Transaction: refund,
	}, nil
}

// ListStalePayments returns payment intents left PENDING for longer than age.
func (uc *SettlementUseCase) ListStalePayments(ctx context.Context, age time.Duration, limit int) ([]*domain.Transaction, error) {
	limit, _ = domain.ValidatePagination(limit, 0)
	return uc.txRepo.ListStalePending(ctx, time.Now().UTC().Add(-age), limit)
}

// callProvider runs fn with the gateway timeout and classifies its failure as a gateway error.
func (uc *SettlementUseCase) callProvider(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.GatewayTimeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	if uc.metrics != nil {
		uc.metrics.GatewayDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
	if err == nil {
		return nil
	}

	if uc.metrics != nil {
		uc.metrics.GatewayErrors.WithLabelValues(operation).Inc()
	}
	if callCtx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
	}
	if errors.Is(err, domain.ErrGateway) {
		return fmt.Errorf("%s %s: %w", uc.provider.Name(), operation, err)
	}
	return fmt.Errorf("%w: %s %s: %w", domain.ErrGateway, uc.provider.Name(), operation, err)
}

// failIntent marks a PENDING entry FAILED after a definite provider failure.
func (uc *SettlementUseCase) failIntent(ctx context.Context, txn *domain.Transaction, note string) {
	_ = runInTx(context.WithoutCancel(ctx), uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		failed, err := uc.journal.UpdateStatus(ctx, tx, txn.ID, domain.TransactionStatusFailed, truncate(note, domain.MaxReasonLen))
		if err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypePaymentFailed, failed, failed.UpdatedAt))
	})
}

func (uc *SettlementUseCase) audit(ctx context.Context, tx Transaction, refund *domain.Transaction) error {
	if uc.auditRepo == nil {
		return nil
	}
	entry := domain.NewTransactionAudit(uc.idGen.Generate(), domain.ActorID(ctx), domain.AuditActionPaymentRefund, nil, refund, time.Now().UTC())
	return uc.auditRepo.CreateTx(ctx, tx, entry)
}

func (uc *SettlementUseCase) observeVerify(result string) {
	if uc.metrics != nil {
		uc.metrics.PaymentsVerified.WithLabelValues(result).Inc()
	}
}

// outcome decides the terminal status for a provider verdict.
func outcome(v *PaymentVerification, expected decimal.Decimal, currency string) (domain.TransactionStatus, string) {
	if v.Status != ProviderStatusSuccess {
		msg := v.Message
		if msg == "" {
			msg = "declined by provider"
		}
		return domain.TransactionStatusFailed, msg
	}
	if !v.Amount.Equal(expected) {
		return domain.TransactionStatusFailed, fmt.Sprintf("amount mismatch: provider reported %s %s, expected %s", v.Amount, currency, expected)
	}
	return domain.TransactionStatusCompleted, ""
}

// refundablePayment picks the completed payment of an order and counts earlier
// failed provider refund attempts.
func refundablePayment(entries []*domain.Transaction) (*domain.Transaction, int, error) {
	var payment *domain.Transaction
	pending := false

	for _, e := range entries {
		switch {
		case e.IsPaymentIntent():
			if e.Status == domain.TransactionStatusCompleted {
				payment = e
			} else if e.Status == domain.TransactionStatusPending {
				pending = true
			}
		case e.Type == domain.TransactionTypeCheckout && e.Posted && e.Status == domain.TransactionStatusCompleted:
			payment = e
		}
	}

	if payment == nil {
		if pending {
			return nil, 0, fmt.Errorf("%w: order payment is not completed", domain.ErrInvalidStateTransition)
		}
		return nil, 0, fmt.Errorf("%w: order has no completed payment", domain.ErrInvalidStateTransition)
	}

	failed := 0
	for _, e := range entries {
		if e.Type != domain.TransactionTypeRefund || e.RelatedID == nil || *e.RelatedID != payment.ID {
			continue
		}
		if e.Status == domain.TransactionStatusFailed {
			failed++
			continue
		}
		return nil, 0, fmt.Errorf("%w: order %s was already refunded", domain.ErrDuplicateOperation, *payment.OrderID)
	}

	return payment, failed, nil
}

func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
