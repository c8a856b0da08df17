package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/Freshboard/internal/domain"
)

// FailureLog — журнал неудач запланированных обновлений.
//
// Записи складываются append-only в список на каждую query, без
// дедупликации: повторные неудачи между проходами просто накапливаются.
// Запись best-effort: ошибка журнала логируется и никогда не прерывает
// проход обновления.
type FailureLog struct {
	client *redis.Client
	logger *slog.Logger
}

// NewFailureLog создаёт новый FailureLog.
func NewFailureLog(client *redis.Client, logger *slog.Logger) *FailureLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailureLog{client: client, logger: logger}
}

// failureEntry — одна запись журнала неудач.
type failureEntry struct {
	QueryID  int64     `json:"query_id"`
	Name     string    `json:"name"`
	Message  string    `json:"message"`
	FailedAt time.Time `json:"failed_at"`
}

// Record записывает неудачу обновления query во внешний журнал.
// Никогда не возвращает ошибку.
func (l *FailureLog) Record(ctx context.Context, query *domain.Query, message string) {
	entry := failureEntry{
		QueryID:  query.ID,
		Name:     query.Name,
		Message:  message,
		FailedAt: time.Now().UTC(),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		l.logger.Warn("failed to marshal failure entry",
			"query_id", query.ID,
			"error", err,
		)
		return
	}

	if err := l.client.LPush(ctx, failureKey(query.ID), raw).Err(); err != nil {
		l.logger.Warn("failed to record query failure",
			"query_id", query.ID,
			"error", err,
		)
	}
}

// failureKey возвращает ключ списка неудач для query.
func failureKey(queryID int64) string {
	return fmt.Sprintf("freshboard:query_errors:%d", queryID)
}
