//go:build integration

// Package testutil connects integration tests to a migrated PostgreSQL database.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/campusmart/ledger/internal/infrastructure/postgres"
)

// TestDB provides an isolated test database connection.
type TestDB struct {
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewTestDB migrates the database named by TEST_DATABASE_URL and connects to it.
// The test is skipped when TEST_DATABASE_URL is unset.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	migrationsPath := "../../migrations"
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		migrationsPath = "migrations"
	}

	if err := postgres.NewMigrator(dbURL, migrationsPath, zerolog.Nop()).Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dbURL, 20, 2)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := &TestDB{Pool: pool, t: t}
	t.Cleanup(pool.Close)
	return db
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, "TRUNCATE audit_logs, outbox_events, transactions, wallets")
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}
