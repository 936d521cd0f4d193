package domain

import "testing"

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	all := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusCompleted,
		TransactionStatusApproved,
		TransactionStatusRejected,
		TransactionStatusFailed,
	}

	for _, from := range all {
		for _, to := range all {
			want := from == TransactionStatusPending && to != TransactionStatusPending
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: got %v, want %v", from, to, got, want)
			}
		}
	}

	if TransactionStatusPending.CanTransitionTo("BOGUS") {
		t.Error("transition to unknown status must be rejected")
	}
}

func TestTransactionType_Sign(t *testing.T) {
	credits := []TransactionType{TransactionTypeFund, TransactionTypeDeposit, TransactionTypeRefund}
	debits := []TransactionType{TransactionTypeCheckout, TransactionTypeWithdrawal}

	for _, typ := range credits {
		if !typ.IsCredit() || typ.IsDebit() {
			t.Errorf("%s should be a credit", typ)
		}
	}
	for _, typ := range debits {
		if !typ.IsDebit() || typ.IsCredit() {
			t.Errorf("%s should be a debit", typ)
		}
	}
	if TransactionType("TIP").IsValid() {
		t.Error("unknown type must be invalid")
	}
}

func TestTransaction_WithdrawalRequest(t *testing.T) {
	payout := PayoutDetails{BankName: "First Bank", AccountNumber: "0123456789", AccountName: "Ada Obi"}

	req := &Transaction{Type: TransactionTypeWithdrawal, Metadata: payout.Metadata()}
	if !req.IsWithdrawalRequest() {
		t.Fatal("expected withdrawal request")
	}
	if got := req.Payout(); got != payout {
		t.Fatalf("Payout() = %+v, want %+v", got, payout)
	}

	reservation := &Transaction{Type: TransactionTypeWithdrawal, Posted: true}
	if reservation.IsWithdrawalRequest() {
		t.Fatal("posted reservation is not a request")
	}
}

func TestTransaction_PaymentIntent(t *testing.T) {
	txn := &Transaction{
		Type: TransactionTypeDeposit,
		Metadata: map[string]any{
			MetaKind:    KindPaymentIntent,
			MetaPurpose: string(PaymentPurposeWalletTopUp),
		},
	}

	if !txn.IsPaymentIntent() {
		t.Fatal("expected payment intent")
	}
	if txn.Purpose() != PaymentPurposeWalletTopUp {
		t.Fatalf("Purpose() = %s", txn.Purpose())
	}
	if txn.ReferenceValue() != "" {
		t.Fatal("nil reference should render empty")
	}
}
