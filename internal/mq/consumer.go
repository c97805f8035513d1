package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки сообщения.
// Ошибка означает, что сообщение нужно обработать повторно.
type Handler func(ctx context.Context, msg *Message) error

// ack — решение по доставке.
type ack int

const (
	ackOK      ack = iota // обработано
	ackRequeue            // вернуть в очередь
	ackDead               // отправить в DLQ
)

// Consumer потребляет сообщения из очереди RabbitMQ.
//
// Некорректное сообщение сразу уходит в DLQ. Ошибка обработчика
// возвращает сообщение в очередь один раз; повторная ошибка на уже
// переотправленном сообщении отправляет его в DLQ.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start потребляет сообщения до отмены ctx, переживая переподключения.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "queue", c.queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", c.queue)
			c.processDeliveries(ctx, deliveries)
			if err := ctx.Err(); err != nil {
				return err
			}
			c.logger.Warn("deliveries channel closed, reconnecting", "queue", c.queue)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
			c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
		}
	}
}

// setupConsume настраивает канал и начинает потребление.
func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		string(c.queue), // queue
		"",              // consumer tag (auto-generated)
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// processDeliveries обрабатывает сообщения, пока канал открыт.
func (c *Consumer) processDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}

			var err error
			switch c.dispatch(ctx, raw.Body, raw.Redelivered) {
			case ackOK:
				err = raw.Ack(false)
			case ackRequeue:
				err = raw.Nack(false, true)
			case ackDead:
				err = raw.Nack(false, false)
			}
			if err != nil {
				c.logger.Warn("failed to acknowledge delivery", "queue", c.queue, "error", err)
			}
		}
	}
}

// dispatch разбирает сообщение, вызывает обработчик и решает судьбу доставки.
func (c *Consumer) dispatch(ctx context.Context, body []byte, redelivered bool) ack {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message",
			"queue", c.queue,
			"error", err,
			"body", string(body),
		)
		return ackDead
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"redelivered", redelivered,
			"error", err,
		)
		if redelivered {
			return ackDead
		}
		return ackRequeue
	}

	return ackOK
}

// ParsePayload разбирает payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
