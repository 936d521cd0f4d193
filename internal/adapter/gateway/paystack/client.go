// Package paystack is a PaymentProvider backed by the Paystack REST API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/campusmart/ledger/internal/usecase"
)

// DefaultBaseURL is Paystack's production API.
const DefaultBaseURL = "https://api.paystack.co"

// Amounts are exchanged in the currency's minor unit (kobo for NGN).
var minorUnits = decimal.NewFromInt(100)

// ErrRejected is returned when Paystack answers with status=false.
var ErrRejected error = rejectedError("paystack: request rejected")

type rejectedError string

func (e rejectedError) Error() string { return string(e) }

func (e rejectedError) Is(target error) bool { return target == usecase.ErrProviderRejected }

// Config configures the client.
type Config struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	// MaxRetries bounds retries of idempotent GET requests.
	MaxRetries uint64
}

// Client implements usecase.PaymentProvider.
type Client struct {
	http *http.Client
	cfg  Config
}

// NewClient creates a Paystack client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, cfg: cfg}
}

// Name implements usecase.PaymentProvider.
func (c *Client) Name() string { return "paystack" }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Channels    []string          `json:"channels,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

type refundRequest struct {
	Transaction string `json:"transaction"`
	Amount      string `json:"amount,omitempty"`
}

// Initialize starts a transaction and returns the checkout link.
func (c *Client) Initialize(ctx context.Context, req usecase.PaymentInitRequest) (*usecase.PaymentInitResult, error) {
	body := initializeRequest{
		Email:       req.Email,
		Amount:      toMinor(req.Amount),
		Reference:   req.Reference,
		Currency:    req.Currency,
		CallbackURL: c.cfg.CallbackURL,
		Channels:    channelsFor(req.Method),
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}

	return &usecase.PaymentInitResult{
		Reference:        ref,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// Verify asks Paystack for the outcome of a reference. Transient failures are retried.
func (c *Client) Verify(ctx context.Context, reference string) (*usecase.PaymentVerification, error) {
	var data verifyData

	operation := func() error {
		err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &data)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	return &usecase.PaymentVerification{
		Reference: reference,
		Status:    mapStatus(data.Status),
		Amount:    fromMinor(data.Amount),
		Message:   data.GatewayResponse,
	}, nil
}

// Refund returns amount of a settled transaction to the payer.
func (c *Client) Refund(ctx context.Context, reference string, amount decimal.Decimal) error {
	return c.do(ctx, http.MethodPost, "/refund", refundRequest{
		Transaction: reference,
		Amount:      toMinor(amount),
	}, nil)
}

// statusError is a non-2xx response.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("paystack: http %d: %s", e.Code, e.Message)
}

// Is reports a 4xx answer as a rejection. Timeouts and throttling are not:
// the request may still be processed.
func (e *statusError) Is(target error) bool {
	if target != usecase.ErrProviderRejected {
		return false
	}
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.Code >= 400 && e.Code < 500
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &statusError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("paystack: decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &statusError{Code: resp.StatusCode, Message: env.Message}
	}
	if !env.Status {
		return fmt.Errorf("%w: %s", ErrRejected, env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("paystack: decode data: %w", err)
		}
	}

	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func mapStatus(s string) usecase.ProviderStatus {
	switch s {
	case "success":
		return usecase.ProviderStatusSuccess
	case "failed", "abandoned", "reversed":
		return usecase.ProviderStatusFailed
	default:
		return usecase.ProviderStatusPending
	}
}

func channelsFor(method string) []string {
	switch method {
	case "card", "bank", "ussd", "qr", "mobile_money", "bank_transfer":
		return []string{method}
	default:
		return nil
	}
}

func toMinor(amount decimal.Decimal) string {
	return amount.Mul(minorUnits).Round(0).String()
}

func fromMinor(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(minorUnits)
}
