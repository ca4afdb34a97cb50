// Package events publishes message lifecycle events to a RabbitMQ topic
// exchange, so downstream systems (notification fan-out, audit) can react
// without this service knowing about them. Publishing is best effort:
// a failed publish is logged, never surfaced to the sender — the message
// is already committed and an event hiccup must not fail the request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys on the exchange.
const (
	KeyMessageCreated = "message.created"
	KeyMessageDeleted = "message.deleted"
)

// MessageEvent is the envelope emitted for message lifecycle changes.
// Content is deliberately absent — consumers that need the body fetch it
// through the API under their own credentials.
type MessageEvent struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	OccurredAt     time.Time `json:"occurred_at"`
	TenantID       uuid.UUID `json:"tenant_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      int64     `json:"message_id"`
	SenderType     string    `json:"sender_type"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, event MessageEvent) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// New dials RabbitMQ, declares the topic exchange and switches the setup
// channel to confirm mode to fail fast on a broken broker config.
func New(url, exchange string, logger *zap.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{conn: conn, exchange: exchange, logger: logger}, nil
}

func (p *rmqPublisher) Publish(ctx context.Context, key string, event MessageEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil {
		p.logger.Debug("event published",
			zap.String("key", key),
			zap.String("exchange", p.exchange),
		)
	}
	return err
}

func (p *rmqPublisher) Close() error {
	return p.conn.Close()
}

// NewNop returns a publisher that drops everything — used when no AMQP
// broker is configured.
func NewNop() Publisher {
	return nopPublisher{}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, MessageEvent) error { return nil }
func (nopPublisher) Close() error                                        { return nil }
