package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/flowrequests/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunCompleted MessageType = "run.completed"
)

// Message — конверт сообщения.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// RunRequestedPayload — run создан и ждёт выполнения.
type RunRequestedPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// RunCompletedPayload — run завершён.
type RunCompletedPayload struct {
	RunID      uuid.UUID        `json:"run_id"`
	WorkflowID uuid.UUID        `json:"workflow_id"`
	Status     domain.RunStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// NewMessage упаковывает payload в конверт.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now(),
	}, nil
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
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

// PublishRunRequested сообщает runner'ам о новом run.
func (p *Publisher) PublishRunRequested(ctx context.Context, runID uuid.UUID) error {
	msg, err := NewMessage(MessageTypeRunRequested, RunRequestedPayload{RunID: runID})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, msg)
}

// PublishRunCompleted публикует событие о завершённом run.
func (p *Publisher) PublishRunCompleted(ctx context.Context, run *domain.Run) error {
	msg, err := NewMessage(MessageTypeRunCompleted, RunCompletedPayload{
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		Status:     run.Status,
		Error:      run.Error,
		DurationMs: run.Duration().Milliseconds(),
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeRuns, RoutingKeyCompleted, msg)
}
