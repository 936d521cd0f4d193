package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionAudit(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := &Transaction{ID: "TX-1", UserID: "vendor-1", Amount: decimal.RequireFromString("40.00"), Status: TransactionStatusPending}
	after := &Transaction{ID: "TX-1", UserID: "vendor-1", Amount: decimal.RequireFromString("40.00"), Status: TransactionStatusApproved}

	entry := NewTransactionAudit("AUD-1", "admin-1", AuditActionWithdrawalApprove, before, after, at)

	assert.Equal(t, "AUD-1", entry.ID)
	assert.Equal(t, "admin-1", entry.UserID)
	assert.Equal(t, string(AuditActionWithdrawalApprove), entry.Action)
	assert.Equal(t, AggregateTypeTransaction, entry.ResourceType)
	assert.Equal(t, "TX-1", entry.ResourceID)
	assert.Equal(t, string(AuditStatusSuccess), entry.Status)
	assert.Equal(t, at, entry.CreatedAt)
	require.NotNil(t, entry.BeforeState)
	assert.NotEqual(t, entry.BeforeState, entry.AfterState)
}

func TestNewTransactionAudit_NoBeforeState(t *testing.T) {
	entry := NewTransactionAudit("AUD-2", "system", AuditActionOrderPay, nil, &Transaction{ID: "TX-2"}, time.Now())

	assert.Nil(t, entry.BeforeState)
	assert.NotNil(t, entry.AfterState)
}

func TestAuditLog_Failed(t *testing.T) {
	entry := NewTransactionAudit("AUD-3", "system", AuditActionOrderCompensate, nil, &Transaction{ID: "TX-3"}, time.Now()).
		Failed("cancel order o-1: timeout")

	assert.Equal(t, string(AuditStatusFailure), entry.Status)
	assert.Equal(t, "cancel order o-1: timeout", entry.ErrorMessage)
}

func TestMarshalState(t *testing.T) {
	assert.Nil(t, MarshalState(nil))

	state := MarshalState(map[string]any{"balance": "10.00"})
	assert.Equal(t, "10.00", state["balance"])

	assert.Equal(t, JSON{"error": "failed to marshal state"}, MarshalState(func() {}))
}
