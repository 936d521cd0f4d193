package domain

import (
	"encoding/json"
	"time"
)

// AuditLog records who moved money or changed the state of a payout.
type AuditLog struct {
	ID           string
	UserID       string // actor
	Action       string
	ResourceType string
	ResourceID   string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is free-form state captured in audit logs.
type JSON map[string]any

// AuditAction names an auditable action.
type AuditAction string

const (
	AuditActionWithdrawalRequest AuditAction = "withdrawal.request"
	AuditActionWithdrawalApprove AuditAction = "withdrawal.approve"
	AuditActionWithdrawalReject  AuditAction = "withdrawal.reject"
	AuditActionPaymentRefund     AuditAction = "payment.refund"
	AuditActionOrderPay          AuditAction = "order.pay"
	AuditActionOrderCompensate   AuditAction = "order.compensate"
)

// AuditStatus represents the outcome of an audited action.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// NewTransactionAudit records an action taken on a ledger transaction.
// before is nil for actions that create the transaction.
func NewTransactionAudit(id, actor string, action AuditAction, before, after *Transaction, at time.Time) *AuditLog {
	entry := &AuditLog{
		ID:           id,
		UserID:       actor,
		Action:       string(action),
		ResourceType: AggregateTypeTransaction,
		ResourceID:   after.ID,
		AfterState:   MarshalState(after),
		Status:       string(AuditStatusSuccess),
		CreatedAt:    at,
	}
	if before != nil {
		entry.BeforeState = MarshalState(before)
	}
	return entry
}

// Failed marks the entry as a failed attempt.
func (a *AuditLog) Failed(message string) *AuditLog {
	a.Status = string(AuditStatusFailure)
	a.ErrorMessage = message
	return a
}

// MarshalState flattens v into a JSON object for the audit trail.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
	Offset       int
}
