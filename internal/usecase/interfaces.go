package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
)

// WalletRepository defines data access for wallets.
type WalletRepository interface {
	// Create inserts the wallet unless one already exists for the user.
	Create(ctx context.Context, tx Transaction, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx Transaction, userID string) (*domain.Wallet, error)
	// UpdateBalance writes balance if the stored version still equals expectedVersion
	// and increments it; otherwise it returns domain.ErrConcurrentUpdate.
	UpdateBalance(ctx context.Context, tx Transaction, walletID string, balance decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Wallet, error)
}

// StatusUpdate is a compare-and-swap status change of a journal entry.
type StatusUpdate struct {
	ID   string
	From domain.TransactionStatus
	To   domain.TransactionStatus
	// Post marks the entry as having changed a wallet balance.
	Post bool
	Note string
	At   time.Time
}

// TransactionRepository defines data access for journal entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, tx Transaction, reference string) (*domain.Transaction, error)
	// UpdateStatus returns domain.ErrInvalidStateTransition when the entry is no longer in update.From.
	UpdateStatus(ctx context.Context, tx Transaction, update StatusUpdate) error
	AppendNote(ctx context.Context, tx Transaction, id, note string, at time.Time) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	Stats(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionStats, error)
	SumsByUser(ctx context.Context, userID string) (domain.JournalSums, error)
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Transaction, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed with a transient database error.
// The operation must be a whole transaction so that nothing is committed before a retry.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not succeed.
	Release(ctx context.Context, key string) error
}
