package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a recognised status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order represents a customer order.
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CustomerName string          `json:"customer_name" db:"customer_name"`
	Items        []OrderItem     `json:"items"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	Status       OrderStatus     `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is a snapshot of a product at the time the order was placed.
// ProductID is a lookup key only; the product may since have been deleted.
type OrderItem struct {
	ID        uuid.UUID       `json:"-" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	Position  int             `json:"-" db:"position"`
	ProductID string          `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Quantity  int             `json:"quantity" db:"quantity"`
}

// Subtotal returns price × quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ComputeTotal returns the sum of every line's subtotal.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderRequest represents the request payload for placing an order.
type OrderRequest struct {
	CustomerName string             `json:"customer_name"`
	Items        []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single line in an order request.
type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StatusUpdateRequest represents the request payload for changing an order status.
type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}
