package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mkravets/Freshboard/internal/domain"
)

// Publisher ставит задания в очереди Freshboard.
//
// Постановка — fire-and-forget: ошибка возврата означает только,
// что брокер не принял сообщение. Выполнения задания никто не ждёт.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher поверх соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// PublishExecuteQuery ставит задание на выполнение query во внешнюю
// подсистему выполнения. resolvedText — текст с уже подставленными
// параметрами; исходный текст query не публикуется.
func (p *Publisher) PublishExecuteQuery(ctx context.Context, query *domain.Query, resolvedText string, metadata map[string]any) error {
	if query.DataSourceID == nil {
		return fmt.Errorf("query %d has no data source", query.ID)
	}

	payload := ExecuteQueryPayload{
		QueryID:      query.ID,
		QueryText:    resolvedText,
		DataSourceID: *query.DataSourceID,
		UserID:       query.UserID,
		Metadata:     metadata,
	}
	return p.publish(ctx, ExchangeQueries, RoutingKeyExecute, MessageTypeExecuteQuery, payload)
}

// PublishRefreshSchema ставит задание на обновление схемы источника
// для freshboard-worker.
func (p *Publisher) PublishRefreshSchema(ctx context.Context, dataSourceID int64) error {
	payload := RefreshSchemaPayload{DataSourceID: dataSourceID}
	return p.publish(ctx, ExchangeSchemas, RoutingKeyRefresh, MessageTypeRefreshSchema, payload)
}

// publish заворачивает payload в конверт и отдаёт брокеру.
// Сообщения публикуются персистентными и переживают рестарт брокера.
func (p *Publisher) publish(ctx context.Context, exchange Exchange, key RoutingKey, typ MessageType, payload any) error {
	msg := Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", typ, err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(exchange),
			string(key),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				AppId:        p.conn.appName,
				Timestamp:    msg.Timestamp,
				Body:         body,
			})
		if err != nil {
			return fmt.Errorf("publish %s to %s: %w", typ, exchange, err)
		}

		p.logger.Debug("message published",
			"type", typ,
			"exchange", exchange,
			"message_id", msg.ID,
		)
		return nil
	})
}
