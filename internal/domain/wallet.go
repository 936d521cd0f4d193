package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the spendable balance of a single user.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks that the wallet can cover amount.
func (w *Wallet) ValidateDebit(amount decimal.Decimal) error {
	if amount.GreaterThan(w.Balance) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the balance after a debit.
func (w *Wallet) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return w.Balance.Sub(amount)
}

// ApplyCredit returns the balance after a credit.
func (w *Wallet) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return w.Balance.Add(amount)
}

// WalletSummary is the read model served to wallet owners.
type WalletSummary struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	ReservedBalance  decimal.Decimal `json:"reserved_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Version          int64           `json:"version"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// JournalSums aggregates a user's journal.
type JournalSums struct {
	// Credits and Debits cover posted, completed entries only.
	Credits decimal.Decimal
	Debits  decimal.Decimal
	// Reserved is the total of pending withdrawal requests.
	Reserved decimal.Decimal
	// Revenue is the total of posted FUND and DEPOSIT entries.
	Revenue decimal.Decimal
	// Withdrawn is the total of approved withdrawal requests.
	Withdrawn decimal.Decimal
}

// Net returns credits minus debits.
func (s JournalSums) Net() decimal.Decimal {
	return s.Credits.Sub(s.Debits)
}
