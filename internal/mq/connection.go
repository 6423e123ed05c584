package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/studyexec/internal/telemetry"
)

const (
	defaultHeartbeat     = 10 * time.Second
	initialReconnectWait = time.Second
	maxReconnectWait     = 30 * time.Second
)

// ConnectionConfig — параметры соединения с RabbitMQ.
type ConnectionConfig struct {
	URL string

	// Name — имя соединения в management UI (studyexec-worker, studyexec-api).
	Name string

	// Heartbeat — интервал heartbeat (default: 10s).
	Heartbeat time.Duration

	// OnConnect вызывается на свежем канале после каждого подключения,
	// в том числе после reconnect. Ошибка считается ошибкой подключения.
	OnConnect func(ch *amqp.Channel) error
}

// Connection — AMQP соединение с одним каналом и автоматическим reconnect.
//
// После каждого переподключения заново выполняется OnConnect
// (объявление топологии), затем consumers получают сигнал ReconnectNotify.
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	closedCh    chan struct{}
	reconnectCh chan struct{}
}

// NewConnection подключается к RabbitMQ и запускает наблюдение за соединением.
func NewConnection(cfg ConnectionConfig, logger *slog.Logger) (*Connection, error) {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}

	c := &Connection{
		cfg:         cfg,
		logger:      logger.With("connection_name", cfg.Name),
		closedCh:    make(chan struct{}),
		reconnectCh: make(chan struct{}, 1),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.watch()

	return c, nil
}

// Connect подключается к RabbitMQ с объявлением топологии studyexec
// при каждом подключении. Вызывающий отвечает за Close.
func Connect(url, name string, logger *slog.Logger) (*Connection, error) {
	conn, err := NewConnection(ConnectionConfig{
		URL:       url,
		Name:      name,
		OnConnect: declareTopology,
	}, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("rabbitmq topology ready", "topology", TopologyInfo())
	return conn, nil
}

// connect открывает соединение и канал и выполняет OnConnect.
func (c *Connection) connect() error {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Heartbeat:  c.cfg.Heartbeat,
		Properties: amqp.Table{"connection_name": c.cfg.Name},
	})
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if c.cfg.OnConnect != nil {
		if err := c.cfg.OnConnect(ch); err != nil {
			conn.Close()
			return fmt.Errorf("on connect: %w", err)
		}
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("connection closed")
	}
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	telemetry.MQConnected.Set(1)
	c.logger.Info("connected to RabbitMQ")

	return nil
}

// watch ждёт разрыва соединения и переподключается.
func (c *Connection) watch() {
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-c.closedCh:
			return
		case err := <-notifyClose:
			telemetry.MQConnected.Set(0)
			c.logger.Warn("connection lost", "error", err)

			if !c.reconnect() {
				return
			}
		}
	}
}

// reconnect переподключается с экспоненциальной задержкой.
// Возвращает false, если соединение закрыли во время ожидания.
func (c *Connection) reconnect() bool {
	wait := initialReconnectWait

	for {
		c.logger.Info("attempting to reconnect", "delay", wait)

		select {
		case <-c.closedCh:
			return false
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			wait = min(wait*2, maxReconnectWait)
			continue
		}

		select {
		case c.reconnectCh <- struct{}{}:
		default:
		}
		return true
	}
}

// Channel возвращает текущий AMQP канал.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// ReconnectNotify сигнализирует о каждом успешном переподключении.
func (c *Connection) ReconnectNotify() <-chan struct{} {
	return c.reconnectCh
}

// IsConnected проверяет, открыто ли соединение сейчас.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// WithChannel выполняет fn с текущим каналом.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.Channel()
	if ch == nil || ch.IsClosed() {
		return fmt.Errorf("no channel available")
	}

	return fn(ch)
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closedCh)
	telemetry.MQConnected.Set(0)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("close connection: %w", err)
		}
	}

	c.logger.Info("connection closed")
	return nil
}
