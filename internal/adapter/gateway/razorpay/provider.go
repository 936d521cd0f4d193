// Package razorpay is a PaymentProvider backed by Razorpay orders.
//
// The ledger reference travels as the Razorpay order receipt, so a payment is
// found again by receipt and its captured payment is the one refunded.
package razorpay

import (
	"context"
	"errors"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/usecase"
)

var minorUnits = decimal.NewFromInt(100)

// ErrUnknownReceipt is returned when no Razorpay order carries the reference.
var ErrUnknownReceipt = errors.New("razorpay: no order for reference")

type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	All(queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Payments(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Config configures the provider.
type Config struct {
	KeyID     string
	KeySecret string
	// CheckoutURL, when set, is returned as the authorization URL with the order id appended.
	CheckoutURL string
}

// Provider implements usecase.PaymentProvider.
type Provider struct {
	orders   orderAPI
	payments paymentAPI
	cfg      Config
}

// NewProvider creates a Razorpay provider using the official SDK.
func NewProvider(cfg Config) *Provider {
	client := rzp.NewClient(cfg.KeyID, cfg.KeySecret)
	return &Provider{orders: client.Order, payments: client.Payment, cfg: cfg}
}

// Name implements usecase.PaymentProvider.
func (p *Provider) Name() string { return "razorpay" }

// Initialize creates a Razorpay order whose receipt is the ledger reference.
func (p *Provider) Initialize(ctx context.Context, req usecase.PaymentInitRequest) (*usecase.PaymentInitResult, error) {
	notes := make(map[string]interface{}, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		notes[k] = v
	}
	if req.Email != "" {
		notes["email"] = req.Email
	}

	data := map[string]interface{}{
		"amount":          toMinor(req.Amount),
		"currency":        req.Currency,
		"receipt":         req.Reference,
		"payment_capture": 1,
		"notes":           notes,
	}

	order, err := call(ctx, func() (map[string]interface{}, error) { return p.orders.Create(data, nil) })
	if err != nil {
		return nil, err
	}

	orderID := str(order["id"])
	if orderID == "" {
		return nil, fmt.Errorf("razorpay: order response without id")
	}

	res := &usecase.PaymentInitResult{Reference: req.Reference, AccessCode: orderID}
	if p.cfg.CheckoutURL != "" {
		res.AuthorizationURL = p.cfg.CheckoutURL + "?order_id=" + orderID
	}
	return res, nil
}

// Verify reports the state of the order carrying reference as its receipt.
func (p *Provider) Verify(ctx context.Context, reference string) (*usecase.PaymentVerification, error) {
	order, err := p.orderByReceipt(ctx, reference)
	if err != nil {
		return nil, err
	}

	v := &usecase.PaymentVerification{
		Reference: reference,
		Status:    usecase.ProviderStatusPending,
		Message:   str(order["status"]),
	}

	switch str(order["status"]) {
	case "paid":
		v.Status = usecase.ProviderStatusSuccess
		v.Amount = fromMinor(order["amount_paid"])
	case "attempted":
		payments, err := p.orderPayments(ctx, str(order["id"]))
		if err != nil {
			return nil, err
		}
		if allFailed(payments) {
			v.Status = usecase.ProviderStatusFailed
		}
	}

	return v, nil
}

// Refund refunds amount of the captured payment of the order carrying reference.
// Only failures found before the refund request is sent are reported as
// usecase.ErrProviderRejected.
func (p *Provider) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	order, err := p.orderByReceipt(ctx, reference)
	if errors.Is(err, ErrUnknownReceipt) {
		return fmt.Errorf("%w: %w", usecase.ErrProviderRejected, err)
	}
	if err != nil {
		return err
	}

	payments, err := p.orderPayments(ctx, str(order["id"]))
	if err != nil {
		return err
	}

	var paymentID string
	for _, pay := range payments {
		if str(pay["status"]) == "captured" {
			paymentID = str(pay["id"])
			break
		}
	}
	if paymentID == "" {
		return fmt.Errorf("%w: razorpay: order %s has no captured payment", usecase.ErrProviderRejected, str(order["id"]))
	}

	_, err = call(ctx, func() (map[string]interface{}, error) {
		return p.payments.Refund(paymentID, toMinor(amount), map[string]interface{}{"notes": map[string]interface{}{"reference": reference}}, nil)
	})
	return err
}

func (p *Provider) orderByReceipt(ctx context.Context, receipt string) (map[string]interface{}, error) {
	resp, err := call(ctx, func() (map[string]interface{}, error) {
		return p.orders.All(map[string]interface{}{"receipt": receipt}, nil)
	})
	if err != nil {
		return nil, err
	}

	items := itemsOf(resp)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w %s", ErrUnknownReceipt, receipt)
	}
	return items[0], nil
}

func (p *Provider) orderPayments(ctx context.Context, orderID string) ([]map[string]interface{}, error) {
	resp, err := call(ctx, func() (map[string]interface{}, error) {
		return p.orders.Payments(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return itemsOf(resp), nil
}

// call runs a blocking SDK request, returning early when ctx ends.
func call(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}

	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("razorpay: %w", r.err)
		}
		return r.body, nil
	}
}

func allFailed(payments []map[string]interface{}) bool {
	if len(payments) == 0 {
		return false
	}
	for _, pay := range payments {
		if str(pay["status"]) != "failed" {
			return false
		}
	}
	return true
}

func itemsOf(resp map[string]interface{}) []map[string]interface{} {
	raw, _ := resp["items"].([]interface{})
	items := make([]map[string]interface{}, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]interface{}); ok {
			items = append(items, m)
		}
	}
	return items
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toMinor(amount decimal.Decimal) int {
	return int(amount.Mul(minorUnits).Round(0).IntPart())
}

// fromMinor accepts the float64 that encoding/json produces for numbers.
func fromMinor(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n).Div(minorUnits)
	case int:
		return decimal.NewFromInt(int64(n)).Div(minorUnits)
	case int64:
		return decimal.NewFromInt(n).Div(minorUnits)
	default:
		return decimal.Zero
	}
}
