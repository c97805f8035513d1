package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/flowrequests/internal/domain"
)

func newTestConsumer(h Handler) *Consumer {
	return NewConsumer(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ConsumerConfig{
		Queue:   QueueRunsRequested,
		Handler: h,
	})
}

func TestConsumer_Dispatch(t *testing.T) {
	runID := uuid.New()
	msg, err := NewMessage(MessageTypeRunRequested, RunRequestedPayload{RunID: runID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := json.Marshal(msg)

	failing := errors.New("boom")

	tests := []struct {
		name        string
		body        []byte
		redelivered bool
		handlerErr  error
		want        ack
	}{
		{"ok", body, false, nil, ackOK},
		{"malformed", []byte("{"), false, nil, ackDead},
		{"first failure requeues", body, false, failing, ackRequeue},
		{"second failure dead letters", body, true, failing, ackDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RunRequestedPayload
			c := newTestConsumer(func(ctx context.Context, m *Message) error {
				got, _ = ParsePayload[RunRequestedPayload](m)
				return tt.handlerErr
			})

			if a := c.dispatch(context.Background(), tt.body, tt.redelivered); a != tt.want {
				t.Errorf("expected %v, got %v", tt.want, a)
			}
			if tt.want != ackDead || tt.handlerErr != nil {
				if got.RunID != runID {
					t.Errorf("expected payload run id %s, got %s", runID, got.RunID)
				}
			}
		})
	}
}

func TestNewMessage_RunCompleted(t *testing.T) {
	start := time.Now()
	finish := start.Add(1500 * time.Millisecond)
	run := &domain.Run{
		ID:         uuid.New(),
		WorkflowID: uuid.New(),
		Status:     domain.RunStatusCompleted,
		StartedAt:  &start,
		FinishedAt: &finish,
	}

	msg, err := NewMessage(MessageTypeRunCompleted, RunCompletedPayload{
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		Status:     run.Status,
		DurationMs: run.Duration().Milliseconds(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload, err := ParsePayload[RunCompletedPayload](msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.DurationMs != 1500 || payload.Status != domain.RunStatusCompleted {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestTopology_EveryQueueBound(t *testing.T) {
	exchanges, queues, bindings := topology()

	known := map[Exchange]bool{}
	for _, ex := range exchanges {
		known[ex] = true
	}

	bound := map[Queue]bool{}
	for _, b := range bindings {
		if !known[b.exchange] {
			t.Errorf("binding to undeclared exchange %s", b.exchange)
		}
		bound[b.queue] = true
	}
	for _, q := range queues {
		if !bound[q.name] {
			t.Errorf("queue %s is not bound", q.name)
		}
	}

	if queues[0].args["x-dead-letter-exchange"] != string(ExchangeDLQ) {
		t.Errorf("expected runs.requested to dead letter into %s", ExchangeDLQ)
	}
}

func TestNextDelay(t *testing.T) {
	if d := nextDelay(time.Second, 30*time.Second); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}
	if d := nextDelay(20*time.Second, 30*time.Second); d != 30*time.Second {
		t.Errorf("expected cap at 30s, got %v", d)
	}
}

func TestDefaultURL_FromEnv(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "amqp://u:p@broker:5672/")
	if got := DefaultURL(); got != "amqp://u:p@broker:5672/" {
		t.Errorf("unexpected url %s", got)
	}
}

func TestConnection_InstallAfterClose(t *testing.T) {
	c := &Connection{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		closedCh: make(chan struct{}),
	}

	if err := c.install(nil, nil); err != nil {
		t.Fatalf("unexpected error before Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	// reconnect, завершившийся после Close, не должен подменить соединение
	if err := c.install(nil, nil); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
	if c.IsConnected() {
		t.Error("closed connection must not report connected")
	}
}
