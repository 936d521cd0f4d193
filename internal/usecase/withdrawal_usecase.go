package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
)

// RequestWithdrawalInput represents input for requesting a payout.
type RequestWithdrawalInput struct {
	UserID string
	Amount decimal.Decimal
	Payout domain.PayoutDetails
}

// WithdrawalUseCase runs the withdrawal state machine: funds are reserved when
// a payout is requested, then either released to the bank (approve) or credited
// back (reject).
type WithdrawalUseCase struct {
	txManager  TransactionManager
	wallet     *WalletUseCase
	journal    *JournalUseCase
	txRepo     TransactionRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	retrier    Retrier
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase.
func NewWithdrawalUseCase(
	txManager TransactionManager,
	wallet *WalletUseCase,
	journal *JournalUseCase,
	txRepo TransactionRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		txManager:  txManager,
		wallet:     wallet,
		journal:    journal,
		txRepo:     txRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		retrier:    retrier,
		idGen:      idGen,
		metrics:    metrics,
	}
}

// RequestWithdrawal reserves amount from the user's wallet and records a PENDING payout request.
func (uc *WithdrawalUseCase) RequestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := input.Payout.Validate(); err != nil {
		return nil, err
	}

	var request *domain.Transaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		requestID := uc.idGen.Generate()

		// Reserve funds
		reservation, err := uc.wallet.DebitTx(ctx, tx, WalletMutation{
			UserID:      input.UserID,
			Amount:      input.Amount,
			Type:        domain.TransactionTypeWithdrawal,
			Description: "withdrawal reservation",
			Reference:   reserveReference(requestID),
			RelatedID:   requestID,
		})
		if err != nil {
			return err
		}

		request = &domain.Transaction{
			ID:          requestID,
			UserID:      input.UserID,
			Type:        domain.TransactionTypeWithdrawal,
			Amount:      input.Amount,
			Status:      domain.TransactionStatusPending,
			Description: payoutDescription(input.Payout),
			RelatedID:   &reservation.Transaction.ID,
			Metadata:    input.Payout.Metadata(),
		}
		if err := uc.journal.Append(ctx, tx, request); err != nil {
			return err
		}

		now := request.CreatedAt
		if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypeWithdrawalRequested, request, now)); err != nil {
			return err
		}

		return uc.audit(ctx, tx, domain.AuditActionWithdrawalRequest, nil, request)
	})
	if err != nil {
		return nil, err
	}

	uc.wallet.AfterCommit(ctx, input.UserID)
	if uc.metrics != nil {
		uc.metrics.WithdrawalsRequested.Inc()
	}

	return request, nil
}

// Approve finalizes a PENDING request. Funds already left the wallet at request time.
func (uc *WithdrawalUseCase) Approve(ctx context.Context, requestID string) (*domain.Transaction, error) {
	var approved *domain.Transaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		request, err := uc.lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		approved, err = uc.journal.Transition(ctx, tx, request, domain.TransactionStatusApproved, "approved by "+domain.ActorID(ctx))
		if err != nil {
			return err
		}

		if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypeWithdrawalApproved, approved, approved.UpdatedAt)); err != nil {
			return err
		}

		return uc.audit(ctx, tx, domain.AuditActionWithdrawalApprove, request, approved)
	})
	if err != nil {
		return nil, err
	}

	uc.wallet.AfterCommit(ctx, approved.UserID)
	if uc.metrics != nil {
		uc.metrics.WithdrawalsApproved.Inc()
	}

	return approved, nil
}

// Reject releases the reservation back to the wallet and closes the request with reason.
func (uc *WithdrawalUseCase) Reject(ctx context.Context, requestID, reason string) (*domain.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", domain.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(reason) > domain.MaxReasonLen {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", domain.ErrInvalidRequest, domain.MaxReasonLen)
	}

	var rejected *domain.Transaction
	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		request, err := uc.lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		if !request.Status.CanTransitionTo(domain.TransactionStatusRejected) {
			return fmt.Errorf("%w: withdrawal is %s", domain.ErrInvalidStateTransition, request.Status)
		}

		if _, err := uc.wallet.CreditTx(ctx, tx, WalletMutation{
			UserID:      request.UserID,
			Amount:      request.Amount,
			Type:        domain.TransactionTypeRefund,
			Description: "withdrawal rejected: " + truncate(reason, 200),
			Reference:   releaseReference(request.ID),
			RelatedID:   request.ID,
		}); err != nil {
			return err
		}

		rejected, err = uc.journal.Transition(ctx, tx, request, domain.TransactionStatusRejected, "rejected: "+reason)
		if err != nil {
			return err
		}

		if err := uc.outboxRepo.Create(ctx, tx, domain.NewTransactionEvent(uc.idGen.Generate(), domain.EventTypeWithdrawalRejected, rejected, rejected.UpdatedAt)); err != nil {
			return err
		}

		return uc.audit(ctx, tx, domain.AuditActionWithdrawalReject, request, rejected)
	})
	if err != nil {
		return nil, err
	}

	uc.wallet.AfterCommit(ctx, rejected.UserID)
	if uc.metrics != nil {
		uc.metrics.WithdrawalsRejected.Inc()
	}

	return rejected, nil
}

// Get retrieves a withdrawal request by ID.
func (uc *WithdrawalUseCase) Get(ctx context.Context, requestID string) (*domain.Transaction, error) {
	txn, err := uc.txRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !txn.IsWithdrawalRequest() {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

// ListWithdrawalsInput represents input for listing withdrawal requests.
type ListWithdrawalsInput struct {
	// UserID scopes the list to one owner; empty lists every user's requests.
	UserID string
	Status domain.TransactionStatus
	Limit  int
	Offset int
}

// List lists withdrawal requests, newest first.
func (uc *WithdrawalUseCase) List(ctx context.Context, input ListWithdrawalsInput) ([]*domain.Transaction, error) {
	return uc.journal.List(ctx, domain.TransactionFilter{
		UserID:                 input.UserID,
		Type:                   domain.TransactionTypeWithdrawal,
		Status:                 input.Status,
		WithdrawalRequestsOnly: true,
		Limit:                  input.Limit,
		Offset:                 input.Offset,
	})
}

func (uc *WithdrawalUseCase) lockRequest(ctx context.Context, tx Transaction, requestID string) (*domain.Transaction, error) {
	request, err := uc.txRepo.GetByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsWithdrawalRequest() {
		return nil, domain.ErrTransactionNotFound
	}
	return request, nil
}

func (uc *WithdrawalUseCase) audit(ctx context.Context, tx Transaction, action domain.AuditAction, before, after *domain.Transaction) error {
	if uc.auditRepo == nil {
		return nil
	}

	entry := domain.NewTransactionAudit(uc.idGen.Generate(), domain.ActorID(ctx), action, before, after, time.Now().UTC())
	return uc.auditRepo.CreateTx(ctx, tx, entry)
}

func payoutDescription(p domain.PayoutDetails) string {
	return fmt.Sprintf("withdrawal to %s %s", strings.TrimSpace(p.BankName), maskAccount(p.AccountNumber))
}

func maskAccount(number string) string {
	number = strings.TrimSpace(number)
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// truncate keeps at most n bytes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
