package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно доставленное сообщение.
// Ненулевая ошибка приводит к nack (см. политику повторов в dispatch).
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — разобранный конверт.
	Message Message

	// Raw — исходная AMQP-доставка.
	Raw amqp.Delivery
}

// Ack подтверждает обработку сообщения.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение. requeue=true возвращает его в очередь,
// false — отправляет по DLQ-маршруту очереди.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Consumer читает одну очередь и передаёт сообщения в Handler.
//
// Consumer переживает разрывы соединения: когда поток доставок
// обрывается, он переподписывается с нарастающей задержкой —
// в том же ритме, в котором Connection восстанавливает соединение.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	handler  Handler
	prefetch int
}

// ConsumerConfig — настройки Consumer.
type ConsumerConfig struct {
	// Queue — очередь для чтения.
	Queue Queue

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений брокер выдаёт
	// одновременно. По умолчанию 1.
	Prefetch int
}

// NewConsumer создаёт Consumer. Чтение начинается вызовом Run.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run читает очередь до отмены ctx. Блокирует вызывающего.
func (c *Consumer) Run(ctx context.Context) error {
	for attempt := 0; ; {
		deliveries, err := c.subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("subscribe failed, will retry",
				"queue", c.queue,
				"error", err,
			)
			if err := sleep(ctx, backoffDelay(attempt)); err != nil {
				return err
			}
			attempt++
			continue
		}
		attempt = 0

		c.logger.Info("consuming queue", "queue", c.queue)
		c.drain(ctx, deliveries)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Поток закрылся вместе с каналом — переподписываемся
		c.logger.Warn("delivery stream closed, resubscribing", "queue", c.queue)
	}
}

// subscribe выставляет prefetch и начинает чтение очереди.
func (c *Consumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}

		d, err := ch.Consume(
			string(c.queue),
			"",    // consumer tag, брокер сгенерирует
			false, // auto-ack выключен, подтверждаем вручную
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}

		deliveries = d
		return nil
	})

	return deliveries, err
}

// drain передаёт доставки обработчику, пока поток не закроется
// или ctx не отменят.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-deliveries:
			if !ok {
				return
			}
			c.dispatch(ctx, raw)
		}
	}
}

// dispatch разбирает конверт, вызывает Handler и подтверждает
// либо отклоняет сообщение.
//
// Политика повторов: первый сбой обработчика возвращает сообщение
// в очередь, повторный отправляет его по DLQ-маршруту. Сообщения
// с нечитаемым конвертом уходят в DLQ сразу.
func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("dropping malformed message",
			"queue", c.queue,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	c.logger.Debug("message received",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	if err := c.handler(ctx, &Delivery{Message: msg, Raw: raw}); err != nil {
		requeue := !raw.Redelivered
		c.logger.Error("message handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"requeue", requeue,
			"error", err,
		)
		raw.Nack(false, requeue)
		return
	}

	raw.Ack(false)
}
