// Package orders talks to the marketplace order service over HTTP.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/campusmart/ledger/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client implements usecase.OrderService.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an order service client. token, when set, is sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetOrder fetches an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	status, err := c.do(ctx, http.MethodGet, orderPath(orderID), nil, &order)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrOrderNotFound
	}
	if order.ID == "" {
		order.ID = orderID
	}
	return &order, nil
}

// MarkPaid records the payment on the order. An order that is already paid is accepted.
func (c *Client) MarkPaid(ctx context.Context, orderID, reference string) error {
	status, err := c.do(ctx, http.MethodPost, orderPath(orderID)+"/paid", map[string]string{"reference": reference}, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusNotFound:
		return domain.ErrOrderNotFound
	case http.StatusConflict:
		order, err := c.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.OrderStatusPaid {
			return nil
		}
		return fmt.Errorf("%w: order %s is %s", domain.ErrInvalidStateTransition, orderID, order.Status)
	}
	return nil
}

// Cancel cancels an order.
func (c *Client) Cancel(ctx context.Context, orderID, reason string) error {
	status, err := c.do(ctx, http.MethodPost, orderPath(orderID)+"/cancel", map[string]string{"reason": reason}, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return domain.ErrOrderNotFound
	}
	return nil
}

// do sends a request. 404 and 409 are returned as statuses for the caller to
// interpret; any other non-2xx status is an error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("order service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusConflict:
		return resp.StatusCode, nil
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("order service: %s %s: http %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("order service: decode: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func orderPath(orderID string) string {
	return "/orders/" + url.PathEscape(orderID)
}
