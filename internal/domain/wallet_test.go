package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWallet_ValidateDebit(t *testing.T) {
	tests := []struct {
		name    string
		balance decimal.Decimal
		amount  decimal.Decimal
		wantErr error
	}{
		{"exact balance", decimal.NewFromInt(100), decimal.NewFromInt(100), nil},
		{"below balance", decimal.NewFromInt(150), decimal.NewFromInt(100), nil},
		{"above balance", decimal.NewFromInt(300), decimal.NewFromInt(1_000_000), ErrInsufficientFunds},
		{"empty wallet", decimal.Zero, decimal.RequireFromString("0.01"), ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Wallet{Balance: tt.balance}
			err := w.ValidateDebit(tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDebit() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWallet_ApplyCreditDebit(t *testing.T) {
	w := &Wallet{Balance: decimal.RequireFromString("10.50")}

	if got := w.ApplyCredit(decimal.RequireFromString("0.25")); !got.Equal(decimal.RequireFromString("10.75")) {
		t.Errorf("ApplyCredit() = %s, want 10.75", got)
	}
	if got := w.ApplyDebit(decimal.RequireFromString("10.50")); !got.IsZero() {
		t.Errorf("ApplyDebit() = %s, want 0", got)
	}
}

func TestJournalSums_Net(t *testing.T) {
	p := JournalSums{Credits: decimal.NewFromInt(1000), Debits: decimal.NewFromInt(500)}
	if !p.Net().Equal(decimal.NewFromInt(500)) {
		t.Errorf("Net() = %s, want 500", p.Net())
	}
}
