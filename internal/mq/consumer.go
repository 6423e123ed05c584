package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/studyexec/internal/telemetry"
)

// Handler — функция обработки сообщения.
//
// nil — ack. Ошибка, обёрнутая в ErrReject, — сообщение уходит в DLQ.
// Любая другая ошибка — сообщение возвращается в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// ErrReject — сообщение некорректно, повторная доставка не поможет.
var ErrReject = errors.New("message rejected")

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенное сообщение.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает обработку.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение: requeue=true — обратно в очередь, false — в DLQ.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Consumer потребляет сообщения из очереди RabbitMQ
// и переподписывается после reconnect.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int
	types    []MessageType

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue    string
	Handler  Handler
	Prefetch int // default: 1

	// Types — допустимые типы сообщений; остальные уходят в DLQ.
	// Пусто — принимаются любые.
	Types []MessageType
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: max(cfg.Prefetch, 1),
		types:    cfg.Types,
	}
}

// Start потребляет сообщения до отмены ctx или Stop.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("consumer detached, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// subscribe выставляет prefetch и подписывается на очередь.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// drain обрабатывает сообщения, пока канал доставки открыт.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.handleDelivery(ctx, raw)
		}
	}
}

// handleDelivery разбирает сообщение, вызывает обработчик и подтверждает доставку.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	delivery := &Delivery{Raw: raw}
	c.settle(delivery, c.dispatch(ctx, delivery))
}

func (c *Consumer) dispatch(ctx context.Context, delivery *Delivery) error {
	if err := json.Unmarshal(delivery.Raw.Body, &delivery.Message); err != nil {
		return fmt.Errorf("%w: unmarshal message: %v", ErrReject, err)
	}

	msg := &delivery.Message
	if len(c.types) > 0 && !slices.Contains(c.types, msg.Type) {
		return fmt.Errorf("%w: unexpected message type %q", ErrReject, msg.Type)
	}

	c.logger.Debug("received message",
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", delivery.Raw.Redelivered,
	)

	return c.handler(ctx, delivery)
}

// settle выбирает ack, requeue или reject по результату обработки.
func (c *Consumer) settle(delivery *Delivery, err error) {
	result := telemetry.MessageAck
	var settleErr error

	switch {
	case err == nil:
		settleErr = delivery.Ack()
	case errors.Is(err, ErrReject):
		result = telemetry.MessageReject
		settleErr = delivery.Nack(false)
	default:
		result = telemetry.MessageRequeue
		settleErr = delivery.Nack(true)
	}

	telemetry.MessagesTotal.WithLabelValues(c.queue, result).Inc()

	if err != nil {
		c.logger.Error("message not processed",
			"message_id", delivery.Message.ID,
			"type", delivery.Message.Type,
			"result", result,
			"error", err,
		)
	}
	if settleErr != nil {
		c.logger.Warn("failed to settle message", "result", result, "error", settleErr)
	}
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// После json.Unmarshal payload — map[string]any, поэтому кодируем обратно
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
