package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pgErrUniqueViolation = "23505"
	pgErrCheckViolation  = "23514"
)

var errForeignTx = errors.New("postgres: transaction was not started by TxManager")

// querier is the query surface shared by pools and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a connection pool. *pgxpool.Pool satisfies it.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func txQuerier(tx usecase.Transaction) (querier, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errForeignTx
	}
	return t.PgxTx(), nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapWriteError translates constraint violations into domain errors.
func mapWriteError(err error) error {
	switch pgCode(err) {
	case "":
		return err
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %w", domain.ErrDuplicateOperation, err)
	case pgErrCheckViolation:
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	default:
		return err
	}
}

// mapNotFound turns pgx.ErrNoRows into notFound.
func mapNotFound(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}
