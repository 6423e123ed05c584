package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeExecutionPending   MessageType = "execution.pending"
	MessageTypeExecutionCompleted MessageType = "execution.completed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ExecutionPendingPayload — execution ожидает выполнения.
type ExecutionPendingPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// ExecutionCompletedPayload — execution завершён.
type ExecutionCompletedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Status      string    `json:"status"` // SUCCEEDED или FAILED
	ResultKey   string    `json:"result_key,omitempty"`
	Attempts    int       `json:"attempts"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishExecutionPending публикует событие о новом execution.
// Потребитель: Worker.
func (p *Publisher) PublishExecutionPending(ctx context.Context, executionID uuid.UUID) error {
	msg := NewMessage(MessageTypeExecutionPending, ExecutionPendingPayload{ExecutionID: executionID})
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyPending, msg)
}

// PublishExecutionCompleted публикует событие о завершённом execution.
func (p *Publisher) PublishExecutionCompleted(ctx context.Context, payload ExecutionCompletedPayload) error {
	msg := NewMessage(MessageTypeExecutionCompleted, payload)
	return p.Publish(ctx, ExchangeExecutions, RoutingKeyCompleted, msg)
}
