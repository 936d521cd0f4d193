package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
	"github.com/campusmart/ledger/internal/usecase"
)

// WalletResponse represents a wallet summary in API responses.
type WalletResponse struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	ReservedBalance  decimal.Decimal `json:"reservedBalance"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	TotalWithdrawals decimal.Decimal `json:"totalWithdrawals"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// WalletFromDomain converts a wallet summary to response.
func WalletFromDomain(s *domain.WalletSummary) *WalletResponse {
	return &WalletResponse{
		ID:               s.ID,
		UserID:           s.UserID,
		Balance:          s.Balance,
		AvailableBalance: s.AvailableBalance,
		ReservedBalance:  s.ReservedBalance,
		TotalRevenue:     s.TotalRevenue,
		TotalWithdrawals: s.TotalWithdrawals,
		UpdatedAt:        s.UpdatedAt,
	}
}

// TransactionResponse represents a journal entry in API responses.
type TransactionResponse struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"userId"`
	Type        domain.TransactionType   `json:"type"`
	Amount      decimal.Decimal          `json:"amount"`
	Status      domain.TransactionStatus `json:"status"`
	Reference   *string                  `json:"reference,omitempty"`
	Description string                   `json:"description,omitempty"`
	OrderID     *string                  `json:"orderId,omitempty"`
	RelatedID   *string                  `json:"relatedId,omitempty"`
	Posted      bool                     `json:"posted"`
	Metadata    map[string]any           `json:"metadata,omitempty"`
	Note        string                   `json:"note,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
}

// TransactionFromDomain converts a journal entry to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        t.Type,
		Amount:      t.Amount,
		Status:      t.Status,
		Reference:   t.Reference,
		Description: t.Description,
		OrderID:     t.OrderID,
		RelatedID:   t.RelatedID,
		Posted:      t.Posted,
		Metadata:    t.Metadata,
		Note:        t.Note,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// TransactionsFromDomain converts journal entries to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// MutationResponse is returned by fund, checkout and order payment.
type MutationResponse struct {
	Balance     decimal.Decimal      `json:"balance"`
	Transaction *TransactionResponse `json:"transaction"`
}

// MutationFromDomain converts a wallet mutation to response.
func MutationFromDomain(m *usecase.MutationResult) *MutationResponse {
	return &MutationResponse{
		Balance:     m.Wallet.Balance,
		Transaction: TransactionFromDomain(m.Transaction),
	}
}

// PayOrderResponse is returned after a wallet checkout for an order.
type PayOrderResponse struct {
	OrderID     string               `json:"orderId"`
	OrderStatus domain.OrderStatus   `json:"orderStatus"`
	Balance     decimal.Decimal      `json:"balance"`
	Transaction *TransactionResponse `json:"transaction"`
}

// PayOrderFromDomain converts an order payment to response.
func PayOrderFromDomain(r *usecase.PayForOrderResult) *PayOrderResponse {
	return &PayOrderResponse{
		OrderID:     r.Order.ID,
		OrderStatus: r.Order.Status,
		Balance:     r.Wallet.Balance,
		Transaction: TransactionFromDomain(r.Transaction),
	}
}

// WithdrawalResponse represents a withdrawal request in API responses.
type WithdrawalResponse struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"userId"`
	Amount        decimal.Decimal          `json:"amount"`
	Status        domain.TransactionStatus `json:"status"`
	BankName      string                   `json:"bankName"`
	AccountNumber string                   `json:"accountNumber"`
	AccountName   string                   `json:"accountName"`
	Note          string                   `json:"note,omitempty"`
	CreatedAt     time.Time                `json:"createdAt"`
	CompletedAt   *time.Time               `json:"completedAt,omitempty"`
}

// WithdrawalFromDomain converts a withdrawal request to response.
func WithdrawalFromDomain(t *domain.Transaction) *WithdrawalResponse {
	payout := t.Payout()
	return &WithdrawalResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		Amount:        t.Amount,
		Status:        t.Status,
		BankName:      payout.BankName,
		AccountNumber: payout.AccountNumber,
		AccountName:   payout.AccountName,
		Note:          t.Note,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
	}
}

// WithdrawalsFromDomain converts withdrawal requests to responses.
func WithdrawalsFromDomain(txns []*domain.Transaction) []*WithdrawalResponse {
	result := make([]*WithdrawalResponse, len(txns))
	for i, t := range txns {
		result[i] = WithdrawalFromDomain(t)
	}
	return result
}

// PaymentInitResponse is what the payer needs to complete a payment.
type PaymentInitResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
}

// PaymentInitFromDomain converts a provider init result to response.
func PaymentInitFromDomain(r *usecase.PaymentInitResult) *PaymentInitResponse {
	return &PaymentInitResponse{
		Reference:        r.Reference,
		AuthorizationURL: r.AuthorizationURL,
		AccessCode:       r.AccessCode,
	}
}

// PaymentStatusResponse reports the outcome of a verify or refund.
type PaymentStatusResponse struct {
	Reference   string                   `json:"reference,omitempty"`
	Status      domain.TransactionStatus `json:"status"`
	Message     string                   `json:"message"`
	Transaction *TransactionResponse     `json:"transaction,omitempty"`
}

// VerifyFromDomain converts a verification result to response.
func VerifyFromDomain(r *usecase.VerifyResult) *PaymentStatusResponse {
	return &PaymentStatusResponse{
		Reference:   r.Reference,
		Status:      r.Status,
		Message:     r.Message,
		Transaction: TransactionFromDomain(r.Transaction),
	}
}

// RefundFromDomain converts a refund result to response.
func RefundFromDomain(r *usecase.RefundResult) *PaymentStatusResponse {
	resp := &PaymentStatusResponse{
		Status:      r.Status,
		Message:     r.Message,
		Transaction: TransactionFromDomain(r.Transaction),
	}
	if r.Transaction != nil {
		resp.Reference = r.Transaction.ReferenceValue()
	}
	return resp
}

// StatsResponse aggregates journal entries.
type StatsResponse struct {
	Count        int64                              `json:"count"`
	TotalAmount  decimal.Decimal                    `json:"totalAmount"`
	StatusCounts map[domain.TransactionStatus]int64 `json:"statusCounts"`
	TypeCounts   map[domain.TransactionType]int64   `json:"typeCounts"`
}

// StatsFromDomain converts journal stats to response.
func StatsFromDomain(s *domain.TransactionStats) *StatsResponse {
	return &StatsResponse{
		Count:        s.Count,
		TotalAmount:  s.TotalAmount,
		StatusCounts: s.StatusCounts,
		TypeCounts:   s.TypeCounts,
	}
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
