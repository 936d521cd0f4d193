package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

func TestAmountRequest_AcceptsStringAndNumber(t *testing.T) {
	for _, body := range []string{`{"amount":"150.50"}`, `{"amount":150.50}`} {
		var req AmountRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		assert.True(t, decimal.RequireFromString("150.5").Equal(req.Amount), body)
	}
}

func TestWithdrawalFromDomain(t *testing.T) {
	payout := domain.PayoutDetails{BankName: "First Bank", AccountNumber: "0123456789", AccountName: "Ada Obi"}
	txn := &domain.Transaction{
		ID:       "wd-1",
		UserID:   "vendor-1",
		Type:     domain.TransactionTypeWithdrawal,
		Amount:   decimal.RequireFromString("500"),
		Status:   domain.TransactionStatusPending,
		Metadata: payout.Metadata(),
	}

	resp := WithdrawalFromDomain(txn)
	assert.Equal(t, "First Bank", resp.BankName)
	assert.Equal(t, "0123456789", resp.AccountNumber)
	assert.Equal(t, "Ada Obi", resp.AccountName)
	assert.Equal(t, domain.TransactionStatusPending, resp.Status)
}

func TestRefundFromDomain(t *testing.T) {
	resp := RefundFromDomain(&usecase.RefundResult{Status: domain.TransactionStatusCompleted, Message: "refunded"})
	assert.Empty(t, resp.Reference)
	assert.Nil(t, resp.Transaction)

	ref := "refund:pay-1"
	resp = RefundFromDomain(&usecase.RefundResult{
		Status:      domain.TransactionStatusCompleted,
		Transaction: &domain.Transaction{ID: "r-1", Reference: &ref},
	})
	assert.Equal(t, ref, resp.Reference)
	assert.Equal(t, "r-1", resp.Transaction.ID)
}

func TestTransactionResponse_OmitsEmptyOptionalFields(t *testing.T) {
	out, err := json.Marshal(TransactionFromDomain(&domain.Transaction{ID: "t-1", Amount: decimal.RequireFromString("10")}))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.NotContains(t, fields, "reference")
	assert.NotContains(t, fields, "orderId")
	assert.Equal(t, "10", fields["amount"])
}
