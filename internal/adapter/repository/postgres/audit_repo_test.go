package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/domain"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestAuditRepository_CreateAssignsID(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAuditRepository(pool, fixedID("a-1"))
	now := time.Now().UTC()

	pool.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("a-1", "admin-1", "withdrawal.approve", "transaction", "t-1",
			pgxmock.AnyArg(), []byte(`{"status":"APPROVED"}`), "success", "", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	log := &domain.AuditLog{
		UserID:       "admin-1",
		Action:       string(domain.AuditActionWithdrawalApprove),
		ResourceType: "transaction",
		ResourceID:   "t-1",
		AfterState:   domain.JSON{"status": "APPROVED"},
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), log))
	assert.Equal(t, "a-1", log.ID)
	assertExpectations(t, pool)
}

func TestAuditRepository_CreateTx(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	pool.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewAuditRepository(pool, fixedID("a-2")).CreateTx(context.Background(), tx, &domain.AuditLog{
		ID:     "preset",
		Action: string(domain.AuditActionPaymentRefund),
	})
	require.NoError(t, err)
	assertExpectations(t, pool)
}

func TestAuditRepository_List(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()

	pool.ExpectQuery(`FROM audit_logs WHERE action = \$1 AND resource_id = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs("withdrawal.reject", "t-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "action", "resource_type", "resource_id",
			"before_state", "after_state", "status", "error_message", "created_at",
		}).AddRow("a-1", "admin-1", "withdrawal.reject", "transaction", "t-1",
			[]byte(`{"status":"PENDING"}`), []byte(`{"status":"REJECTED"}`), "success", "", now))

	logs, err := NewAuditRepository(pool, fixedID("x")).List(context.Background(), domain.AuditFilter{
		Action:     "withdrawal.reject",
		ResourceID: "t-1",
		Limit:      5,
	})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "PENDING", logs[0].BeforeState["status"])
	assert.Equal(t, "REJECTED", logs[0].AfterState["status"])
	assertExpectations(t, pool)
}
