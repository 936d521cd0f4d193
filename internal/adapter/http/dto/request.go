package dto

import (
	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// AmountRequest is the body of fund and checkout requests.
type AmountRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// TopUpRequest starts a gateway payment into the caller's wallet.
type TopUpRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// ToUseCaseInput converts to use case input.
func (r *TopUpRequest) ToUseCaseInput(id *domain.Identity) usecase.InitializeTopUpInput {
	return usecase.InitializeTopUpInput{
		UserID: id.UserID,
		Email:  id.Email,
		Amount: r.Amount,
		Method: r.PaymentMethod,
	}
}

// WithdrawalRequest asks for a payout to a bank account.
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bankName"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawalRequest) ToUseCaseInput(userID string) usecase.RequestWithdrawalInput {
	return usecase.RequestWithdrawalInput{
		UserID: userID,
		Amount: r.Amount,
		Payout: domain.PayoutDetails{
			BankName:      r.BankName,
			AccountNumber: r.AccountNumber,
			AccountName:   r.AccountName,
		},
	}
}

// RejectRequest carries the reason a withdrawal was turned down.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// InitializePaymentRequest starts a gateway payment for an order.
type InitializePaymentRequest struct {
	OrderID       string          `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

// ToUseCaseInput converts to use case input.
func (r *InitializePaymentRequest) ToUseCaseInput(id *domain.Identity) usecase.InitializePaymentInput {
	return usecase.InitializePaymentInput{
		UserID:  id.UserID,
		Email:   id.Email,
		OrderID: r.OrderID,
		Amount:  r.Amount,
		Method:  r.PaymentMethod,
	}
}

// VerifyPaymentRequest asks for a payment's final outcome.
type VerifyPaymentRequest struct {
	Reference string `json:"reference"`
}

// RefundRequest returns an order's payment to the payer.
type RefundRequest struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// PayOrderRequest pays an order from the caller's wallet.
type PayOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SweepRequest tunes a manual pending-payment sweep. Zero values use the server defaults.
type SweepRequest struct {
	OlderThanSeconds int `json:"olderThanSeconds"`
	Limit            int `json:"limit"`
}
