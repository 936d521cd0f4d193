package razorpay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmart/ledger/internal/usecase"
)

type fakeOrders struct {
	created  map[string]interface{}
	orders   []interface{}
	payments []interface{}
	err      error
	block    chan struct{}
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	if f.block != nil {
		<-f.block
	}
	f.created = data
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"id": "order_123", "status": "created"}, nil
}

func (f *fakeOrders) All(query map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"items": f.orders}, f.err
}

func (f *fakeOrders) Payments(orderID string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return map[string]interface{}{"items": f.payments}, f.err
}

type fakePayments struct {
	paymentID string
	amount    int
	err       error
}

func (f *fakePayments) Refund(paymentID string, amount int, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.paymentID, f.amount = paymentID, amount
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"id": "rfnd_1"}, nil
}

func TestProvider_Initialize(t *testing.T) {
	orders := &fakeOrders{}
	p := &Provider{orders: orders, cfg: Config{CheckoutURL: "https://pay.campusmart.test/checkout"}}

	res, err := p.Initialize(context.Background(), usecase.PaymentInitRequest{
		Reference: "PAY-1",
		Amount:    decimal.RequireFromString("99.99"),
		Currency:  "NGN",
		Email:     "ada@campus.edu",
		Metadata:  map[string]string{"purpose": "ORDER"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_123", res.AccessCode)
	assert.Equal(t, "https://pay.campusmart.test/checkout?order_id=order_123", res.AuthorizationURL)
	assert.Equal(t, 9999, orders.created["amount"])
	assert.Equal(t, "PAY-1", orders.created["receipt"])
}

func TestProvider_InitializeHonoursContext(t *testing.T) {
	orders := &fakeOrders{block: make(chan struct{})}
	defer close(orders.block)
	p := &Provider{orders: orders}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Initialize(ctx, usecase.PaymentInitRequest{Reference: "PAY-1", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProvider_Verify(t *testing.T) {
	tests := []struct {
		name     string
		order    map[string]interface{}
		payments []interface{}
		want     usecase.ProviderStatus
		amount   string
	}{
		{
			name:   "paid",
			order:  map[string]interface{}{"id": "order_1", "status": "paid", "amount_paid": float64(150000)},
			want:   usecase.ProviderStatusSuccess,
			amount: "1500",
		},
		{
			name:   "created",
			order:  map[string]interface{}{"id": "order_1", "status": "created"},
			want:   usecase.ProviderStatusPending,
			amount: "0",
		},
		{
			name:     "every attempt failed",
			order:    map[string]interface{}{"id": "order_1", "status": "attempted"},
			payments: []interface{}{map[string]interface{}{"id": "pay_1", "status": "failed"}},
			want:     usecase.ProviderStatusFailed,
			amount:   "0",
		},
		{
			name:  "attempt still authorizing",
			order: map[string]interface{}{"id": "order_1", "status": "attempted"},
			payments: []interface{}{
				map[string]interface{}{"id": "pay_1", "status": "failed"},
				map[string]interface{}{"id": "pay_2", "status": "authorized"},
			},
			want:   usecase.ProviderStatusPending,
			amount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{orders: &fakeOrders{orders: []interface{}{tt.order}, payments: tt.payments}}

			v, err := p.Verify(context.Background(), "PAY-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, tt.amount, v.Amount.String())
		})
	}
}

func TestProvider_VerifyUnknownReceipt(t *testing.T) {
	p := &Provider{orders: &fakeOrders{}}
	_, err := p.Verify(context.Background(), "PAY-missing")
	assert.ErrorIs(t, err, ErrUnknownReceipt)
}

func TestProvider_SDKErrorsAreWrapped(t *testing.T) {
	sdkErr := errors.New("BAD_REQUEST_ERROR")
	p := &Provider{orders: &fakeOrders{err: sdkErr}}
	_, err := p.Verify(context.Background(), "PAY-1")
	assert.ErrorIs(t, err, sdkErr)
}

func TestProvider_RefundCapturedPayment(t *testing.T) {
	payments := &fakePayments{}
	p := &Provider{
		orders: &fakeOrders{
			orders: []interface{}{map[string]interface{}{"id": "order_1", "status": "paid"}},
			payments: []interface{}{
				map[string]interface{}{"id": "pay_1", "status": "failed"},
				map[string]interface{}{"id": "pay_2", "status": "captured"},
			},
		},
		payments: payments,
	}

	require.NoError(t, p.Refund(context.Background(), "PAY-1", decimal.RequireFromString("25.50")))
	assert.Equal(t, "pay_2", payments.paymentID)
	assert.Equal(t, 2550, payments.amount)
}

func TestProvider_RefundWithoutCapture(t *testing.T) {
	p := &Provider{
		orders: &fakeOrders{
			orders:   []interface{}{map[string]interface{}{"id": "order_1", "status": "attempted"}},
			payments: []interface{}{map[string]interface{}{"id": "pay_1", "status": "failed"}},
		},
		payments: &fakePayments{},
	}

	err := p.Refund(context.Background(), "PAY-1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, usecase.ErrProviderRejected)
}

func TestProvider_RefundUnknownReceiptIsRejected(t *testing.T) {
	p := &Provider{orders: &fakeOrders{}, payments: &fakePayments{}}

	err := p.Refund(context.Background(), "PAY-missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, usecase.ErrProviderRejected)
	assert.ErrorIs(t, err, ErrUnknownReceipt)
}

func TestProvider_RefundSDKFailureOutcomeUnknown(t *testing.T) {
	p := &Provider{
		orders: &fakeOrders{
			orders:   []interface{}{map[string]interface{}{"id": "order_1", "status": "paid"}},
			payments: []interface{}{map[string]interface{}{"id": "pay_1", "status": "captured"}},
		},
		payments: &fakePayments{err: errors.New("read: connection reset by peer")},
	}

	err := p.Refund(context.Background(), "PAY-1", decimal.NewFromInt(1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrProviderRejected)
}
