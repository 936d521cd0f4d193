package domain

import "errors"

var (
	// Wallet errors
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConcurrentUpdate  = errors.New("wallet was modified concurrently")
	// ErrBalanceMismatch is an internal error: the stored balance disagrees with the journal.
	ErrBalanceMismatch = errors.New("wallet balance does not match journal")

	// Amount errors
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrAmountMismatch = errors.New("amount does not match order total")

	// Journal errors
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidReference       = errors.New("unknown payment reference")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateOperation     = errors.New("duplicate operation")

	// Order errors
	ErrOrderNotFound = errors.New("order not found")

	// Request errors
	ErrInvalidPayoutDetails = errors.New("invalid payout details")
	ErrInvalidRequest       = errors.New("invalid request")

	// Gateway errors
	ErrGateway = errors.New("payment gateway error")
)

// ErrorKind is the machine-readable class of a ledger error.
type ErrorKind string

const (
	KindInvalidAmount          ErrorKind = "InvalidAmount"
	KindInvalidRequest         ErrorKind = "InvalidRequest"
	KindInsufficientFunds      ErrorKind = "InsufficientFunds"
	KindNotFound               ErrorKind = "NotFound"
	KindUnauthorized           ErrorKind = "Unauthorized"
	KindForbidden              ErrorKind = "Forbidden"
	KindInvalidStateTransition ErrorKind = "InvalidStateTransition"
	KindDuplicateOperation     ErrorKind = "DuplicateOperation"
	KindGateway                ErrorKind = "GatewayError"
	KindInternal               ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrAmountMismatch, KindInvalidAmount},
	{ErrAmountTooSmall, KindInvalidAmount},
	{ErrAmountTooLarge, KindInvalidAmount},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrWalletNotFound, KindNotFound},
	{ErrTransactionNotFound, KindNotFound},
	{ErrInvalidReference, KindNotFound},
	{ErrOrderNotFound, KindNotFound},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidToken, KindUnauthorized},
	{ErrExpiredToken, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrInvalidStateTransition, KindInvalidStateTransition},
	{ErrDuplicateOperation, KindDuplicateOperation},
	{ErrGateway, KindGateway},
	{ErrInvalidPayoutDetails, KindInvalidRequest},
	{ErrInvalidRequest, KindInvalidRequest},
}

// KindOf classifies err. Unknown errors are Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
