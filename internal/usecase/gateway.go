package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/domain"
)

//go:generate mockgen -source=gateway.go -destination=mocks/mock_gateway.go -package=mocks

// ErrProviderRejected marks a provider answer that definitely did not move
// money, such as a validation failure. Any other provider error leaves the
// outcome unknown.
var ErrProviderRejected = errors.New("rejected by payment provider")

// ProviderStatus is a payment provider's view of a payment.
type ProviderStatus string

const (
	ProviderStatusSuccess ProviderStatus = "success"
	ProviderStatusFailed  ProviderStatus = "failed"
	ProviderStatusPending ProviderStatus = "pending"
)

// PaymentInitRequest asks a provider to start collecting a payment.
type PaymentInitRequest struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Email     string
	UserID    string
	Method    string
	Metadata  map[string]string
}

// PaymentInitResult is what the payer needs to complete a payment.
type PaymentInitResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// PaymentVerification is the provider's verdict on a reference.
type PaymentVerification struct {
	Reference string
	Status    ProviderStatus
	Amount    decimal.Decimal
	Message   string
}

// PaymentProvider is an external payment gateway.
type PaymentProvider interface {
	Name() string
	Initialize(ctx context.Context, req PaymentInitRequest) (*PaymentInitResult, error)
	Verify(ctx context.Context, reference string) (*PaymentVerification, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) error
}

// OrderService is the external order collaborator.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// MarkPaid must be idempotent.
	MarkPaid(ctx context.Context, orderID, reference string) error
	Cancel(ctx context.Context, orderID, reason string) error
}
