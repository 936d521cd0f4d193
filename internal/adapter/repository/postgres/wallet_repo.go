package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

const walletColumns = `id, user_id, balance, version, created_at, updated_at`

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	db querier
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create inserts a wallet. An existing wallet for the same user is left untouched.
func (r *WalletRepository) Create(ctx context.Context, tx usecase.Transaction, wallet *domain.Wallet) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO wallets (id, user_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING`,
		wallet.ID, wallet.UserID, wallet.Balance, wallet.Version, wallet.CreatedAt, wallet.UpdatedAt,
	)
	return mapWriteError(err)
}

// GetByUserID retrieves a user's wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

// GetByUserIDForUpdate retrieves a user's wallet with a FOR UPDATE lock.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) (*domain.Wallet, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

// UpdateBalance sets the balance if the wallet is still at expectedVersion.
func (r *WalletRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, walletID string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE wallets
		SET balance = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3`,
		walletID, balance, expectedVersion, updatedAt,
	)
	if err != nil {
		// The balance >= 0 check is the last line of defence against overdraft.
		if pgCode(err) == pgErrCheckViolation {
			return domain.ErrInsufficientFunds
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}

	return nil
}

// List returns wallets ordered by user.
func (r *WalletRepository) List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY user_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make([]*domain.Wallet, 0, limit)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}

func scanWallet(row scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, mapNotFound(err, domain.ErrWalletNotFound)
	}
	return &w, nil
}
