package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaPublisher queues events in memory and writes them from a single
// goroutine, keyed by order ID so one order's events stay ordered.
type kafkaPublisher struct {
	writer       messageWriter
	inbox        chan kafka.Message
	done         chan struct{}
	mu           sync.RWMutex
	closed       bool
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, bufferSize int, logger zerolog.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(writer, bufferSize, logger.With().Str("topic", topic).Logger())
}

func newKafkaPublisher(writer messageWriter, bufferSize int, logger zerolog.Logger) *kafkaPublisher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	p := &kafkaPublisher{
		writer:       writer,
		inbox:        make(chan kafka.Message, bufferSize),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
		logger:       logger.With().Str("component", "kafka-publisher").Logger(),
	}
	go p.run()
	return p
}

func (p *kafkaPublisher) run() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		if err := p.writer.WriteMessages(ctx, m); err != nil {
			p.logger.Error().
				Err(err).
				Str("order_id", string(m.Key)).
				Msg("failed to publish event")
		}
		cancel()
	}
}

// Publish enqueues env. When the buffer is full the event is dropped and
// logged rather than blocking the request.
func (p *kafkaPublisher) Publish(ctx context.Context, env Envelope) {
	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error().Err(err).Str("event_type", env.EventType).Msg("failed to encode event")
		return
	}

	msg := kafka.Message{
		Key:   []byte(env.OrderID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(env.EventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn().
			Str("event_type", env.EventType).
			Str("order_id", env.OrderID).
			Msg("publisher closed, dropping event")
		return
	}

	select {
	case p.inbox <- msg:
	default:
		p.logger.Warn().
			Str("event_type", env.EventType).
			Str("order_id", env.OrderID).
			Msg("event buffer full, dropping event")
	}
}

// Close flushes queued events and closes the writer. Events published
// after Close are dropped.
func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
