package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"stockroom/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWriter records written messages.
type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	block    chan struct{}
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func testOrder() *model.Order {
	now := time.Now()
	return &model.Order{
		ID:           uuid.New(),
		CustomerName: "Alice",
		Items: []model.OrderItem{
			{ProductID: "P1", Name: "Widget", Price: decimal.NewFromInt(10), Quantity: 2},
		},
		TotalPrice: decimal.NewFromInt(20),
		Status:     model.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestKafkaPublisher_PublishAndClose(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, 8, zerolog.Nop())

	order := testOrder()
	pub.Publish(context.Background(), NewOrderPlaced(order))
	order.Status = model.OrderStatusCancelled
	pub.Publish(context.Background(), NewStatusChanged(order, model.OrderStatusPending, true))

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	assert.True(t, writer.closed)
	require.Len(t, writer.messages, 2)

	first := writer.messages[0]
	assert.Equal(t, order.ID.String(), string(first.Key))
	assert.Equal(t, "x-event-type", first.Headers[0].Key)
	assert.Equal(t, TypeOrderPlaced, string(first.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(first.Value, &env))
	assert.Equal(t, TypeOrderPlaced, env.EventType)
	assert.Equal(t, 1, env.EventVersion)

	var placed OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &placed))
	assert.Equal(t, "Alice", placed.CustomerName)
	assert.True(t, decimal.NewFromInt(20).Equal(placed.TotalPrice))

	var changed Envelope
	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &changed))
	var payload StatusChangedPayload
	require.NoError(t, json.Unmarshal(changed.Payload, &payload))
	assert.Equal(t, model.OrderStatusPending, payload.From)
	assert.Equal(t, model.OrderStatusCancelled, payload.To)
	assert.True(t, payload.StockRestored)
}

func TestKafkaPublisher_WriteErrorDoesNotStopLoop(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	pub := newKafkaPublisher(writer, 4, zerolog.Nop())

	pub.Publish(context.Background(), NewOrderPlaced(testOrder()))
	pub.Publish(context.Background(), NewOrderPlaced(testOrder()))

	require.NoError(t, pub.Close())
	assert.Len(t, writer.messages, 2)
}

func TestKafkaPublisher_DropsWhenBufferFull(t *testing.T) {
	writer := &fakeWriter{block: make(chan struct{})}
	pub := newKafkaPublisher(writer, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		// The first event is held by the blocked writer, the second fills
		// the buffer, the rest are dropped without blocking.
		for i := 0; i < 5; i++ {
			pub.Publish(context.Background(), NewOrderPlaced(testOrder()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}

	close(writer.block)
	require.NoError(t, pub.Close())
	assert.LessOrEqual(t, len(writer.messages), 2)
	assert.GreaterOrEqual(t, len(writer.messages), 1)
}

func TestKafkaPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, 4, zerolog.Nop())

	require.NoError(t, pub.Close())

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), NewOrderPlaced(testOrder()))
	})
	assert.Empty(t, writer.messages)
}

func TestKafkaPublisher_ConcurrentPublishAndClose(t *testing.T) {
	writer := &fakeWriter{}
	pub := newKafkaPublisher(writer, 16, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				pub.Publish(context.Background(), NewOrderPlaced(testOrder()))
			}
		}()
	}

	require.NoError(t, pub.Close())
	wg.Wait()
	assert.True(t, writer.closed)
}

func TestNopPublisher(t *testing.T) {
	pub := NewNopPublisher()
	pub.Publish(context.Background(), NewOrderPlaced(testOrder()))
	assert.NoError(t, pub.Close())
}
