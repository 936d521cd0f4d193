package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

const transactionColumns = `id, user_id, type, amount, status, reference, description, order_id, related_id, posted, metadata, note, created_at, updated_at, completed_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db querier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a journal entry. A reused reference fails with domain.ErrDuplicateOperation.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	metadata, err := marshalMetadata(txn.Metadata)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		txn.ID, txn.UserID, string(txn.Type), txn.Amount, string(txn.Status), txn.Reference,
		txn.Description, txn.OrderID, txn.RelatedID, txn.Posted, metadata, txn.Note,
		txn.CreatedAt, txn.UpdatedAt, txn.CompletedAt,
	)
	return mapWriteError(err)
}

// GetByID retrieves an entry by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIDForUpdate retrieves an entry by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return scanTransaction(q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

// GetByReference retrieves an entry by its unique reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
}

// GetByReferenceForUpdate retrieves an entry by reference with a FOR UPDATE lock.
func (r *TransactionRepository) GetByReferenceForUpdate(ctx context.Context, tx usecase.Transaction, reference string) (*domain.Transaction, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return scanTransaction(q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = $1 FOR UPDATE`, reference))
}

// UpdateStatus moves an entry from update.From to update.To.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, update usecase.StatusUpdate) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE transactions
		SET status = $3,
		    posted = posted OR $4,
		    note = `+noteAppendExpr("$5")+`,
		    updated_at = $6,
		    completed_at = $6
		WHERE id = $1 AND status = $2`,
		update.ID, string(update.From), string(update.To), update.Post, update.Note, update.At,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s is no longer %s", domain.ErrInvalidStateTransition, update.ID, update.From)
	}

	return nil
}

// AppendNote adds a line to an entry's note.
func (r *TransactionRepository) AppendNote(ctx context.Context, tx usecase.Transaction, id, note string, at time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE transactions
		SET note = `+noteAppendExpr("$2")+`, updated_at = $3
		WHERE id = $1`,
		id, note, at,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// List returns entries matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	where, args := filterClause(filter)
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// Stats counts and sums entries matching filter.
func (r *TransactionRepository) Stats(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionStats, error) {
	where, args := filterClause(filter)

	rows, err := r.db.Query(ctx, `SELECT type, status, COUNT(*), COALESCE(SUM(amount), 0) FROM transactions`+where+` GROUP BY type, status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.TransactionStats{
		TotalAmount:  decimal.Zero,
		StatusCounts: make(map[domain.TransactionStatus]int64),
		TypeCounts:   make(map[domain.TransactionType]int64),
	}

	for rows.Next() {
		var (
			txnType, status string
			count           int64
			total           decimal.Decimal
		)
		if err := rows.Scan(&txnType, &status, &count, &total); err != nil {
			return nil, err
		}
		stats.Count += count
		stats.TotalAmount = stats.TotalAmount.Add(total)
		stats.TypeCounts[domain.TransactionType(txnType)] += count
		stats.StatusCounts[domain.TransactionStatus(status)] += count
	}

	return stats, rows.Err()
}

// SumsByUser aggregates a user's journal in one pass.
func (r *TransactionRepository) SumsByUser(ctx context.Context, userID string) (domain.JournalSums, error) {
	var sums domain.JournalSums

	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE posted AND status = 'COMPLETED' AND type IN ('FUND', 'DEPOSIT', 'REFUND')), 0),
			COALESCE(SUM(amount) FILTER (WHERE posted AND status = 'COMPLETED' AND type IN ('CHECKOUT', 'WITHDRAWAL')), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT posted AND type = 'WITHDRAWAL' AND status = 'PENDING' AND metadata->>'kind' = 'withdrawal_request'), 0),
			COALESCE(SUM(amount) FILTER (WHERE posted AND status = 'COMPLETED' AND type IN ('FUND', 'DEPOSIT')), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT posted AND type = 'WITHDRAWAL' AND status = 'APPROVED' AND metadata->>'kind' = 'withdrawal_request'), 0)
		FROM transactions
		WHERE user_id = $1`,
		userID,
	).Scan(&sums.Credits, &sums.Debits, &sums.Reserved, &sums.Revenue, &sums.Withdrawn)

	return sums, err
}

// ListByOrder returns an order's entries, oldest first.
func (r *TransactionRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Transaction, error) {
	return r.query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE order_id = $1 ORDER BY created_at, id`, orderID)
}

// ListStalePending returns payment intents still PENDING that were created before the cutoff.
func (r *TransactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	return r.query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'PENDING' AND metadata->>'kind' = 'payment_intent' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`,
		before, limit,
	)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

func filterClause(f domain.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	if f.WithdrawalRequestsOnly {
		conds = append(conds, "NOT posted", "metadata->>'kind' = 'withdrawal_request'")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func noteAppendExpr(param string) string {
	return fmt.Sprintf(`CASE WHEN %[1]s = '' THEN note WHEN note = '' THEN %[1]s ELSE note || E'\n' || %[1]s END`, param)
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		txn             domain.Transaction
		txnType, status string
		metadata        []byte
	)

	err := row.Scan(
		&txn.ID, &txn.UserID, &txnType, &txn.Amount, &status, &txn.Reference,
		&txn.Description, &txn.OrderID, &txn.RelatedID, &txn.Posted, &metadata, &txn.Note,
		&txn.CreatedAt, &txn.UpdatedAt, &txn.CompletedAt,
	)
	if err != nil {
		return nil, mapNotFound(err, domain.ErrTransactionNotFound)
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Status = domain.TransactionStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", txn.ID, err)
		}
	}

	return &txn, nil
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
