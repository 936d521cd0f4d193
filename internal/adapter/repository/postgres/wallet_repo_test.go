package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

var walletRowColumns = []string{"id", "user_id", "balance", "version", "created_at", "updated_at"}

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := NewTxManager(pool).Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestWalletRepository_GetByUserID(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)
	now := time.Now().UTC()

	pool.ExpectQuery(`SELECT id, user_id, balance, version, created_at, updated_at FROM wallets WHERE user_id = \$1$`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(walletRowColumns).AddRow("w-1", "user-1", "150.00", int64(3), now, now))

	w, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "w-1", w.ID)
	assert.True(t, decimal.RequireFromString("150").Equal(w.Balance))
	assert.Equal(t, int64(3), w.Version)
	assertExpectations(t, pool)
}

func TestWalletRepository_GetByUserIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)

	pool.ExpectQuery(`FROM wallets WHERE user_id`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assertExpectations(t, pool)
}

func TestWalletRepository_GetByUserIDForUpdateLocks(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM wallets WHERE user_id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(walletRowColumns).AddRow("w-1", "user-1", "0.00", int64(0), now, now))

	w, err := repo.GetByUserIDForUpdate(context.Background(), tx, "user-1")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assertExpectations(t, pool)
}

func TestWalletRepository_CreateIgnoresExisting(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	pool.ExpectExec(`INSERT INTO wallets .* ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs("w-1", "user-1", pgxmock.AnyArg(), int64(0), now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := repo.Create(context.Background(), tx, &domain.Wallet{
		ID: "w-1", UserID: "user-1", Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assertExpectations(t, pool)
}

func TestWalletRepository_UpdateBalance(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		result  pgconn.CommandTag
		err     error
		wantErr error
	}{
		{name: "version matches", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "version moved on", result: pgxmock.NewResult("UPDATE", 0), wantErr: domain.ErrConcurrentUpdate},
		{name: "negative balance rejected", err: &pgconn.PgError{Code: pgErrCheckViolation}, wantErr: domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			repo := NewWalletRepository(pool)
			tx := beginTx(t, pool)

			exp := pool.ExpectExec(`UPDATE wallets\s+SET balance = \$2, version = version \+ 1`).
				WithArgs("w-1", pgxmock.AnyArg(), int64(4), now)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := repo.UpdateBalance(context.Background(), tx, "w-1", decimal.NewFromInt(10), 4, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestWalletRepository_List(t *testing.T) {
	pool := newMockPool(t)
	repo := NewWalletRepository(pool)
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM wallets ORDER BY user_id LIMIT \$1 OFFSET \$2`).
		WithArgs(2, 0).
		WillReturnRows(pgxmock.NewRows(walletRowColumns).
			AddRow("w-1", "alice", "10.00", int64(1), now, now).
			AddRow("w-2", "bob", "20.50", int64(2), now, now))

	wallets, err := repo.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, "bob", wallets[1].UserID)
	assert.Equal(t, "20.5", wallets[1].Balance.String())
	assertExpectations(t, pool)
}

func TestWalletRepository_RejectsForeignTransaction(t *testing.T) {
	repo := NewWalletRepository(newMockPool(t))
	err := repo.UpdateBalance(context.Background(), nil, "w-1", decimal.Zero, 0, time.Now())
	assert.True(t, errors.Is(err, errForeignTx))
}
