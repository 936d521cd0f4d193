package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a journal entry.
type TransactionType string

const (
	TransactionTypeFund       TransactionType = "FUND"
	TransactionTypeCheckout   TransactionType = "CHECKOUT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
)

// IsValid reports whether t is a known type.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeFund, TransactionTypeCheckout, TransactionTypeWithdrawal,
		TransactionTypeRefund, TransactionTypeDeposit:
		return true
	}
	return false
}

// IsCredit reports whether entries of this type add to a wallet.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeFund || t == TransactionTypeDeposit || t == TransactionTypeRefund
}

// IsDebit reports whether entries of this type remove from a wallet.
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeCheckout || t == TransactionTypeWithdrawal
}

// TransactionStatus is the lifecycle state of a journal entry.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusApproved  TransactionStatus = "APPROVED"
	TransactionStatusRejected  TransactionStatus = "REJECTED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// IsValid reports whether s is a known status.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusApproved,
		TransactionStatusRejected, TransactionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s.IsValid() && s != TransactionStatusPending
}

// CanTransitionTo reports whether s -> next is a legal status change.
// Only PENDING entries move, and only to a terminal status.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionStatusPending && next.IsTerminal()
}

// PaymentPurpose tells verification what a settled payment should do.
type PaymentPurpose string

const (
	PaymentPurposeOrder       PaymentPurpose = "ORDER"
	PaymentPurposeWalletTopUp PaymentPurpose = "WALLET_TOPUP"
)

// Metadata keys stored on journal entries.
const (
	MetaPurpose       = "purpose"
	MetaMethod        = "payment_method"
	MetaProvider      = "provider"
	MetaAccessCode    = "access_code"
	MetaAuthURL       = "authorization_url"
	MetaBankName      = "bank_name"
	MetaAccountNumber = "account_number"
	MetaAccountName   = "account_name"
	MetaKind          = "kind"
)

// Entry kinds recorded under MetaKind.
const (
	KindWithdrawalRequest = "withdrawal_request"
	KindPaymentIntent     = "payment_intent"
)

// Transaction is a journal entry. Entries are never deleted and, once terminal,
// only Note may change.
type Transaction struct {
	ID          string
	UserID      string
	Type        TransactionType
	Amount      decimal.Decimal
	Status      TransactionStatus
	Reference   *string
	Description string
	OrderID     *string
	RelatedID   *string
	// Posted is set when the entry changed a wallet balance.
	Posted      bool
	Metadata    map[string]any
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// IsWithdrawalRequest reports whether the entry is a payout request rather than a money movement.
func (t *Transaction) IsWithdrawalRequest() bool {
	return t.Type == TransactionTypeWithdrawal && !t.Posted && t.metaString(MetaKind) == KindWithdrawalRequest
}

// IsPaymentIntent reports whether the entry was created by a gateway initialization.
func (t *Transaction) IsPaymentIntent() bool {
	return t.metaString(MetaKind) == KindPaymentIntent
}

// Purpose returns the payment purpose of an intent.
func (t *Transaction) Purpose() PaymentPurpose {
	return PaymentPurpose(t.metaString(MetaPurpose))
}

// Payout returns the payout details of a withdrawal request.
func (t *Transaction) Payout() PayoutDetails {
	return PayoutDetails{
		BankName:      t.metaString(MetaBankName),
		AccountNumber: t.metaString(MetaAccountNumber),
		AccountName:   t.metaString(MetaAccountName),
	}
}

// ReferenceValue returns the reference or an empty string.
func (t *Transaction) ReferenceValue() string {
	if t.Reference == nil {
		return ""
	}
	return *t.Reference
}

func (t *Transaction) metaString(key string) string {
	if t.Metadata == nil {
		return ""
	}
	v, _ := t.Metadata[key].(string)
	return v
}

// PayoutDetails identifies the bank account a withdrawal is paid to.
type PayoutDetails struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// Metadata returns the details as journal metadata.
func (p PayoutDetails) Metadata() map[string]any {
	return map[string]any{
		MetaKind:          KindWithdrawalRequest,
		MetaBankName:      p.BankName,
		MetaAccountNumber: p.AccountNumber,
		MetaAccountName:   p.AccountName,
	}
}

// TransactionFilter narrows journal queries.
type TransactionFilter struct {
	UserID string
	Type   TransactionType
	Status TransactionStatus
	From   *time.Time
	To     *time.Time
	// WithdrawalRequestsOnly restricts results to payout requests.
	WithdrawalRequestsOnly bool
	Limit                  int
	Offset                 int
}

// TransactionStats aggregates journal entries matching a filter.
type TransactionStats struct {
	Count        int64                       `json:"count"`
	TotalAmount  decimal.Decimal             `json:"total_amount"`
	StatusCounts map[TransactionStatus]int64 `json:"status_counts"`
	TypeCounts   map[TransactionType]int64   `json:"type_counts"`
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
