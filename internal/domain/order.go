package domain

import "github.com/shopspring/decimal"

// OrderStatus mirrors the order service's lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is owned by the order service; the ledger only reads it.
type Order struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	Status     OrderStatus     `json:"status"`
}
