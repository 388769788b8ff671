// Package events publishes order lifecycle events after their transaction
// has committed.
package events

import (
	"context"
	"encoding/json"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Envelope is the wire format of every published event.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	OrderID      string          `json:"order_id"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderPlacedPayload describes a newly placed order.
type OrderPlacedPayload struct {
	OrderID      string            `json:"order_id"`
	CustomerName string            `json:"customer_name"`
	Items        []model.OrderItem `json:"items"`
	TotalPrice   decimal.Decimal   `json:"total_price"`
}

// StatusChangedPayload describes a status transition. StockRestored is set
// when the transition returned the order's quantities to the catalogue.
type StatusChangedPayload struct {
	OrderID       string            `json:"order_id"`
	From          model.OrderStatus `json:"from"`
	To            model.OrderStatus `json:"to"`
	StockRestored bool              `json:"stock_restored"`
}

// Publisher delivers events. Publish never blocks the caller on the broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope)
	Close() error
}

const producerName = "stockroom"

// NewOrderPlaced builds the envelope for a committed order.
func NewOrderPlaced(order *model.Order) Envelope {
	return newEnvelope(TypeOrderPlaced, order.ID.String(), order.CreatedAt, OrderPlacedPayload{
		OrderID:      order.ID.String(),
		CustomerName: order.CustomerName,
		Items:        order.Items,
		TotalPrice:   order.TotalPrice,
	})
}

// NewStatusChanged builds the envelope for a committed status transition.
func NewStatusChanged(order *model.Order, from model.OrderStatus, stockRestored bool) Envelope {
	return newEnvelope(TypeOrderStatusChanged, order.ID.String(), order.UpdatedAt, StatusChangedPayload{
		OrderID:       order.ID.String(),
		From:          from,
		To:            order.Status,
		StockRestored: stockRestored,
	})
}

func newEnvelope(eventType, orderID string, at time.Time, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs; marshalling cannot fail.
		panic(err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   at.UTC(),
		Producer:     producerName,
		OrderID:      orderID,
		Payload:      raw,
	}
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that discards every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Envelope) {}

func (nopPublisher) Close() error { return nil }
