package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeRuns Exchange = "flowrequests.runs"
	ExchangeDLQ  Exchange = "flowrequests.dlq"
)

// Queues — имена очередей.
const (
	QueueRunsRequested Queue = "runs.requested"
	QueueRunsCompleted Queue = "runs.completed"
	QueueDLQRuns       Queue = "dlq.runs"
)

// Routing keys.
const (
	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQRuns   RoutingKey = "runs"
)

type queueDecl struct {
	name Queue
	args amqp.Table
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// topology описывает exchanges, очереди и привязки.
func topology() ([]Exchange, []queueDecl, []binding) {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
	}

	exchanges := []Exchange{ExchangeRuns, ExchangeDLQ}

	queues := []queueDecl{
		// runs.requested — с DLQ: run, упавший повторно, уходит в dlq.runs
		{QueueRunsRequested, dlqArgs},
		// runs.completed — события завершения для внешних подписчиков
		{QueueRunsCompleted, nil},
		{QueueDLQRuns, nil},
	}

	bindings := []binding{
		{QueueRunsRequested, RoutingKeyRequested, ExchangeRuns},
		{QueueRunsCompleted, RoutingKeyCompleted, ExchangeRuns},
		{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
	}

	return exchanges, queues, bindings
}

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	exchanges, queues, bindings := topology()

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex), // name
				"direct",   // type
				true,       // durable
				false,      // auto-deleted
				false,      // internal
				false,      // no-wait
				nil,        // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, q := range queues {
			_, err := ch.QueueDeclare(
				string(q.name), // name
				true,           // durable
				false,          // delete when unused
				false,          // exclusive
				false,          // no-wait
				q.args,         // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range bindings {
			err := ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  flowrequests RabbitMQ topology:

    flowrequests.runs (direct)
    ├── runs.requested [routing: requested]
    │       Consumer: runner
    │       DLQ: dlq.runs
    └── runs.completed [routing: completed]
            Consumer: external subscribers

    flowrequests.dlq (direct)
    └── dlq.runs [routing: runs]
            Manual processing
`
}
