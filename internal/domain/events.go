package domain

import "time"

// Event types
const (
	EventTypeWalletCredited      = "wallet.credited"
	EventTypeWalletDebited       = "wallet.debited"
	EventTypeWithdrawalRequested = "withdrawal.requested"
	EventTypeWithdrawalApproved  = "withdrawal.approved"
	EventTypeWithdrawalRejected  = "withdrawal.rejected"
	EventTypePaymentInitialized  = "payment.initialized"
	EventTypePaymentCompleted    = "payment.completed"
	EventTypePaymentFailed       = "payment.failed"
	EventTypePaymentRefunded     = "payment.refunded"
)

// Aggregate types
const (
	AggregateTypeWallet      = "wallet"
	AggregateTypeTransaction = "transaction"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewTransactionEvent builds an outbox event describing a journal entry.
func NewTransactionEvent(id, eventType string, txn *Transaction, at time.Time) *OutboxEvent {
	payload := map[string]any{
		"transaction_id": txn.ID,
		"user_id":        txn.UserID,
		"type":           string(txn.Type),
		"status":         string(txn.Status),
		"amount":         txn.Amount.String(),
	}
	if txn.Reference != nil {
		payload["reference"] = *txn.Reference
	}
	if txn.OrderID != nil {
		payload["order_id"] = *txn.OrderID
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   txn.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
