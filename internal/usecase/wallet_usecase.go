package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
)

// WalletMutation describes one credit or debit.
type WalletMutation struct {
	UserID      string
	Amount      decimal.Decimal
	Type        domain.TransactionType
	Description string
	// Reference, when set, makes the mutation single-use: a second mutation
	// with the same reference fails with domain.ErrDuplicateOperation.
	Reference string
	OrderID   string
	RelatedID string
	Metadata  map[string]any
}

// MutationResult is the wallet state after a mutation and the entry that recorded it.
type MutationResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
}

// WalletUseCase is the wallet store. Every balance change goes through CreditTx,
// DebitTx or SettleTx, each of which locks the wallet row and appends a journal
// entry in the caller's database transaction.
type WalletUseCase struct {
	txManager  TransactionManager
	walletRepo WalletRepository
	txRepo     TransactionRepository
	journal    *JournalUseCase
	outboxRepo OutboxRepository
	cache      Cache
	retrier    Retrier
	idGen      IDGenerator
	metrics    *metrics.Metrics
	cacheTTL   time.Duration
}

// NewWalletUseCase creates a new WalletUseCase. cache, retrier and metrics may be nil.
func NewWalletUseCase(
	txManager TransactionManager,
	walletRepo WalletRepository,
	txRepo TransactionRepository,
	journal *JournalUseCase,
	outboxRepo OutboxRepository,
	cache Cache,
	retrier Retrier,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *WalletUseCase {
	return &WalletUseCase{
		txManager:  txManager,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		journal:    journal,
		outboxRepo: outboxRepo,
		cache:      cache,
		retrier:    retrier,
		idGen:      idGen,
		metrics:    metrics,
		cacheTTL:   WalletCacheTTL,
	}
}

// WithCacheTTL overrides how long a wallet summary stays cached. Non-positive
// values keep WalletCacheTTL.
func (uc *WalletUseCase) WithCacheTTL(ttl time.Duration) *WalletUseCase {
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// GetBalance returns the stored balance of a user's wallet.
func (uc *WalletUseCase) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// GetAvailableBalance returns the funds a user can spend or withdraw: the
// gross balance (net of posted entries plus pending reservations) minus the
// pending reservations. Reservations are real debits, so the result must equal
// the stored balance; a wallet that disagrees with its journal reports
// ErrBalanceMismatch instead of a spendable figure.
func (uc *WalletUseCase) GetAvailableBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	sums, err := uc.txRepo.SumsByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	gross := sums.Net().Add(sums.Reserved)
	available := gross.Sub(sums.Reserved)
	if !available.Equal(wallet.Balance) {
		return decimal.Zero, fmt.Errorf("%w: wallet %s stores %s, journal gives %s",
			domain.ErrBalanceMismatch, userID, wallet.Balance.StringFixed(2), available.StringFixed(2))
	}
	return available, nil
}

// GetWallet returns the wallet summary, serving it from cache when possible.
func (uc *WalletUseCase) GetWallet(ctx context.Context, userID string) (*domain.WalletSummary, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, walletCacheKey(userID)); err == nil && len(data) > 0 {
			var summary domain.WalletSummary
			if json.Unmarshal(data, &summary) == nil {
				uc.observeCache("hit")
				return &summary, nil
			}
		}
		uc.observeCache("miss")
	}

	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums, err := uc.txRepo.SumsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &domain.WalletSummary{
		ID:               wallet.ID,
		UserID:           wallet.UserID,
		Balance:          wallet.Balance,
		TotalRevenue:     sums.Revenue,
		TotalWithdrawals: sums.Withdrawn,
		ReservedBalance:  sums.Reserved,
		AvailableBalance: wallet.Balance,
		Version:          wallet.Version,
		UpdatedAt:        wallet.UpdatedAt,
	}

	if uc.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			_ = uc.cache.Set(ctx, walletCacheKey(userID), data, uc.cacheTTL)
		}
	}

	return summary, nil
}

// Fund credits a wallet directly.
func (uc *WalletUseCase) Fund(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*MutationResult, error) {
	return uc.Credit(ctx, WalletMutation{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeFund,
		Description: "wallet funding",
		Reference:   reference,
	})
}

// Checkout debits a wallet for a purchase not tied to a tracked order.
func (uc *WalletUseCase) Checkout(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*MutationResult, error) {
	return uc.Debit(ctx, WalletMutation{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.TransactionTypeCheckout,
		Description: "wallet checkout",
		Reference:   reference,
	})
}

// Credit adds funds to a wallet in its own database transaction.
func (uc *WalletUseCase) Credit(ctx context.Context, m WalletMutation) (*MutationResult, error) {
	var result *MutationResult
	start := time.Now()

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = uc.CreditTx(ctx, tx, m)
		return err
	})
	if err != nil {
		uc.observeFailure(err)
		return nil, err
	}

	uc.AfterCommit(ctx, m.UserID)
	if uc.metrics != nil {
		uc.metrics.WalletDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

// Debit removes funds from a wallet in its own database transaction.
func (uc *WalletUseCase) Debit(ctx context.Context, m WalletMutation) (*MutationResult, error) {
	var result *MutationResult
	start := time.Now()

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		result, err = uc.DebitTx(ctx, tx, m)
		return err
	})
	if err != nil {
		uc.observeFailure(err)
		return nil, err
	}

	uc.AfterCommit(ctx, m.UserID)
	if uc.metrics != nil {
		uc.metrics.WalletDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

// CreditTx adds funds inside tx, opening the wallet if the user has none.
func (uc *WalletUseCase) CreditTx(ctx context.Context, tx Transaction, m WalletMutation) (*MutationResult, error) {
	if err := validateMutation(m); err != nil {
		return nil, err
	}
	if !m.Type.IsCredit() {
		return nil, fmt.Errorf("%w: %s is not a credit type", domain.ErrInvalidRequest, m.Type)
	}

	wallet, err := uc.lockOrOpen(ctx, tx, m.UserID)
	if err != nil {
		return nil, err
	}

	return uc.apply(ctx, tx, wallet, m, wallet.ApplyCredit(m.Amount), domain.EventTypeWalletCredited)
}

// DebitTx removes funds inside tx. It never takes the balance below zero.
func (uc *WalletUseCase) DebitTx(ctx context.Context, tx Transaction, m WalletMutation) (*MutationResult, error) {
	if err := validateMutation(m); err != nil {
		return nil, err
	}
	if !m.Type.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a debit type", domain.ErrInvalidRequest, m.Type)
	}

	wallet, err := uc.walletRepo.GetByUserIDForUpdate(ctx, tx, m.UserID)
	if errors.Is(err, domain.ErrWalletNotFound) {
		// No wallet means nothing available.
		return nil, fmt.Errorf("%w: user %s has no wallet, requested %s",
			domain.ErrInsufficientFunds, m.UserID, m.Amount.StringFixed(2))
	}
	if err != nil {
		return nil, err
	}

	if err := wallet.ValidateDebit(m.Amount); err != nil {
		return nil, err
	}

	return uc.apply(ctx, tx, wallet, m, wallet.ApplyDebit(m.Amount), domain.EventTypeWalletDebited)
}

// SettleTx credits a wallet with a locked PENDING credit entry, completing and
// posting that entry instead of appending a new one.
func (uc *WalletUseCase) SettleTx(ctx context.Context, tx Transaction, txn *domain.Transaction, note string) (*MutationResult, error) {
	if !txn.Type.IsCredit() {
		return nil, fmt.Errorf("%w: %s is not a credit type", domain.ErrInvalidRequest, txn.Type)
	}
	if txn.Posted {
		return nil, fmt.Errorf("%w: entry %s already posted", domain.ErrDuplicateOperation, txn.ID)
	}

	wallet, err := uc.lockOrOpen(ctx, tx, txn.UserID)
	if err != nil {
		return nil, err
	}

	settled, err := uc.journal.transition(ctx, tx, txn, domain.TransactionStatusCompleted, note, true)
	if err != nil {
		return nil, err
	}

	now := settled.UpdatedAt
	newBalance := wallet.ApplyCredit(txn.Amount)
	if err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, now); err != nil {
		return nil, err
	}

	if err := uc.emit(ctx, tx, domain.EventTypeWalletCredited, settled, now); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.WalletCredits.WithLabelValues(string(txn.Type)).Inc()
		uc.metrics.WalletAmount.WithLabelValues("credit").Observe(txn.Amount.InexactFloat64())
	}

	return &MutationResult{Wallet: updatedWallet(wallet, newBalance, now), Transaction: settled}, nil
}

// AfterCommit drops the cached summary of a wallet that changed.
func (uc *WalletUseCase) AfterCommit(ctx context.Context, userID string) {
	if uc.cache == nil {
		return
	}
	// A failed delete leaves an entry that expires with WalletCacheTTL.
	_ = uc.cache.Delete(context.WithoutCancel(ctx), walletCacheKey(userID))
}

func (uc *WalletUseCase) lockOrOpen(ctx context.Context, tx Transaction, userID string) (*domain.Wallet, error) {
	wallet, err := uc.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.walletRepo.Create(ctx, tx, &domain.Wallet{
		ID:        uc.idGen.Generate(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}

	return uc.walletRepo.GetByUserIDForUpdate(ctx, tx, userID)
}

func (uc *WalletUseCase) apply(ctx context.Context, tx Transaction, wallet *domain.Wallet, m WalletMutation, newBalance decimal.Decimal, eventType string) (*MutationResult, error) {
	now := time.Now().UTC()

	txn := &domain.Transaction{
		ID:          uc.idGen.Generate(),
		UserID:      m.UserID,
		Type:        m.Type,
		Amount:      m.Amount,
		Status:      domain.TransactionStatusCompleted,
		Reference:   domain.StrPtr(m.Reference),
		Description: m.Description,
		OrderID:     domain.StrPtr(m.OrderID),
		RelatedID:   domain.StrPtr(m.RelatedID),
		Posted:      true,
		Metadata:    m.Metadata,
		CreatedAt:   now,
	}
	if err := uc.journal.Append(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err := uc.walletRepo.UpdateBalance(ctx, tx, wallet.ID, newBalance, wallet.Version, now); err != nil {
		return nil, err
	}

	if err := uc.emit(ctx, tx, eventType, txn, now); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		if m.Type.IsCredit() {
			uc.metrics.WalletCredits.WithLabelValues(string(m.Type)).Inc()
			uc.metrics.WalletAmount.WithLabelValues("credit").Observe(m.Amount.InexactFloat64())
		} else {
			uc.metrics.WalletDebits.WithLabelValues(string(m.Type)).Inc()
			uc.metrics.WalletAmount.WithLabelValues("debit").Observe(m.Amount.InexactFloat64())
		}
	}

	return &MutationResult{Wallet: updatedWallet(wallet, newBalance, now), Transaction: txn}, nil
}

func (uc *WalletUseCase) emit(ctx context.Context, tx Transaction, eventType string, txn *domain.Transaction, at time.Time) error {
	event := domain.NewTransactionEvent(uc.idGen.Generate(), eventType, txn, at)
	return uc.outboxRepo.Create(ctx, tx, event)
}

func (uc *WalletUseCase) observeFailure(err error) {
	if uc.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		uc.metrics.InsufficientFunds.Inc()
	case errors.Is(err, domain.ErrDuplicateOperation):
		uc.metrics.DuplicateRejected.Inc()
	}
}

func (uc *WalletUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.WalletCacheLookups.WithLabelValues(result).Inc()
	}
}

func validateMutation(m WalletMutation) error {
	if m.UserID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateAmount(m.Amount); err != nil {
		return err
	}
	return domain.ValidateDescription(m.Description)
}

func updatedWallet(w *domain.Wallet, balance decimal.Decimal, at time.Time) *domain.Wallet {
	updated := *w
	updated.Balance = balance
	updated.Version = w.Version + 1
	updated.UpdatedAt = at
	return &updated
}
