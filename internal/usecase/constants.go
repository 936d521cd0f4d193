package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultGatewayTimeout bounds a single payment provider call.
	DefaultGatewayTimeout = 15 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// WalletCacheTTL bounds how stale a cached wallet summary may be.
	WalletCacheTTL = 30 * time.Second

	// DefaultCurrency is the ledger's single currency.
	DefaultCurrency = "NGN"

	// ReconciliationPageSize is the number of wallets reconciled per query.
	ReconciliationPageSize = 100
)

// Journal reference formats. References are unique, so reusing one is rejected
// by the store instead of applying the same money movement twice.
const (
	paymentReferencePrefix = "PAY-"
)

func reserveReference(requestID string) string { return "withdrawal:" + requestID + ":reserve" }
func releaseReference(requestID string) string { return "withdrawal:" + requestID + ":release" }
func checkoutReference(orderID string) string  { return "order:" + orderID + ":checkout" }
func refundReference(paymentID string) string  { return "refund:" + paymentID }
func walletCacheKey(userID string) string      { return "wallet:" + userID }
