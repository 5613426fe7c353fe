package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Order lifecycle event types published to the bus.
const (
	EventOrderCreated    = "order.created"
	EventOrderCancelled  = "order.cancelled"
	EventPaymentCaptured = "payment.captured"
	EventOrderRefunded   = "order.refunded"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	OrderID    int64           `json:"order_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Publisher emits order lifecycle events. Publishing is best effort: a bus
// outage must never fail the order operation that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, eventType string, orderID int64, payload any)
}

// KafkaPublisher writes envelopes to a Kafka topic, keyed by order id so
// events for one order stay in partition order.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaPublisher builds an async producer.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
	}
	writer.Completion = func(messages []kafka.Message, err error) {
		if err != nil {
			logger.Error("publish order event failed",
				slog.Int("messages", len(messages)), slog.String("error", err.Error()))
		}
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish enqueues the event; errors are logged, not returned.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, orderID int64, payload any) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			p.logger.Error("marshal event payload failed",
				slog.String("event", eventType), slog.String("error", err.Error()))
			return
		}
		raw = encoded
	}

	envelope := Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		Payload:    raw,
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Error("marshal event envelope failed",
			slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: value,
		Time:  envelope.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("enqueue order event failed",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
}

// Close flushes buffered messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
