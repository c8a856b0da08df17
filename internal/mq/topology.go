package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeQueries Exchange = "freshboard.queries"
	ExchangeSchemas Exchange = "freshboard.schemas"
	ExchangeDLQ     Exchange = "freshboard.dlq"
)

const (
	QueueQueriesExecute Queue = "queries.execute"
	QueueSchemasRefresh Queue = "schemas.refresh"
	QueueDLQJobs        Queue = "dlq.jobs"
)

const (
	RoutingKeyExecute RoutingKey = "execute"
	RoutingKeyRefresh RoutingKey = "refresh"
	RoutingKeyDLQJobs RoutingKey = "jobs"
)

// route — один маршрут топологии: direct-обменник, очередь
// и её привязка.
type route struct {
	exchange  Exchange
	queue     Queue
	key       RoutingKey
	queueArgs amqp.Table
}

// routes — вся топология Freshboard.
//
//   - queries.execute без DLQ: политика повторов на стороне
//     подсистемы выполнения;
//   - schemas.refresh с DLQ: сообщения, дважды провалившие
//     обработку, уходят в dlq.jobs;
//   - dlq.jobs разбирается вручную.
var routes = []route{
	{ExchangeQueries, QueueQueriesExecute, RoutingKeyExecute, nil},
	{ExchangeSchemas, QueueSchemasRefresh, RoutingKeyRefresh, amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
	}},
	{ExchangeDLQ, QueueDLQJobs, RoutingKeyDLQJobs, nil},
}

// SetupTopology объявляет обменники, очереди и привязки.
//
// Объявления идемпотентны, поэтому топологию поднимает каждый
// процесс при старте — кто первый подключился, тот и создал.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, r := range routes {
			if err := declareRoute(ch, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// declareRoute объявляет один маршрут: обменник, очередь, привязку.
func declareRoute(ch *amqp.Channel, r route) error {
	err := ch.ExchangeDeclare(
		string(r.exchange),
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}

	_, err = ch.QueueDeclare(
		string(r.queue),
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		r.queueArgs,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", r.queue, err)
	}

	err = ch.QueueBind(
		string(r.queue),
		string(r.key),
		string(r.exchange),
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind %s to %s: %w", r.queue, r.exchange, err)
	}

	return nil
}
