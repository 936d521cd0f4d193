package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase checks stored wallet balances against the journal.
type ReconciliationUseCase struct {
	walletRepo WalletRepository
	txRepo     TransactionRepository
	metrics    *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(walletRepo WalletRepository, txRepo TransactionRepository, metrics *metrics.Metrics) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		metrics:    metrics,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	UserID            string          `json:"userId"`
	RecordedBalance   decimal.Decimal `json:"recordedBalance"`
	CalculatedBalance decimal.Decimal `json:"calculatedBalance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"isReconciled"`
	LastChecked       time.Time       `json:"lastChecked"`
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalWallets      int                     `json:"totalWallets"`
	ReconciledWallets int                     `json:"reconciledWallets"`
	Discrepancies     []*ReconciliationResult `json:"discrepancies"`
	CheckedAt         time.Time               `json:"checkedAt"`
}

// ReconcileWallet compares a wallet's balance with the net of its posted entries.
func (uc *ReconciliationUseCase) ReconcileWallet(ctx context.Context, userID string) (*ReconciliationResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}

	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sums, err := uc.txRepo.SumsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	calculated := sums.Net()
	diff := wallet.Balance.Sub(calculated)

	return &ReconciliationResult{
		UserID:            userID,
		RecordedBalance:   wallet.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// GenerateReport reconciles every wallet.
func (uc *ReconciliationUseCase) GenerateReport(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		Discrepancies: make([]*ReconciliationResult, 0),
	}

	for offset := 0; ; offset += ReconciliationPageSize {
		wallets, err := uc.walletRepo.List(ctx, ReconciliationPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, wallet := range wallets {
			result, err := uc.ReconcileWallet(ctx, wallet.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile wallet %s: %w", wallet.UserID, err)
			}

			report.TotalWallets++
			if result.IsReconciled {
				report.ReconciledWallets++
			} else {
				report.Discrepancies = append(report.Discrepancies, result)
			}
		}

		if len(wallets) < ReconciliationPageSize {
			break
		}
	}

	report.CheckedAt = time.Now().UTC()

	if uc.metrics != nil {
		uc.metrics.ReconciliationRuns.Inc()
		uc.metrics.ReconciliationDiscrepancies.Set(float64(len(report.Discrepancies)))
	}

	return report, nil
}
