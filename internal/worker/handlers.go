package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkravets/Freshboard/internal/mq"
	"github.com/mkravets/Freshboard/internal/repo"
)

// handleRefreshSchema обрабатывает задание schema.refresh из очереди.
//
// Все три исхода задачи терминальные, поэтому сообщение
// подтверждается независимо от результата. Nack получают только
// сообщения, которые не удалось довести до задачи: битый payload
// или недоступная база.
func (w *Worker) handleRefreshSchema(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RefreshSchemaPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse schema.refresh payload", "error", err)
		return err
	}

	w.logger.Debug("received schema.refresh job", "data_source_id", payload.DataSourceID)

	// Загружаем источник данных
	ds, err := w.dataSources.GetByID(ctx, payload.DataSourceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Источник удалили между постановкой и выполнением — ack
			w.logger.Warn("data source not found, dropping job",
				"data_source_id", payload.DataSourceID,
			)
			return nil
		}
		return fmt.Errorf("get data source: %w", err)
	}

	// Исход терминальный, внутри задачи он уже залогирован и посчитан
	w.RefreshSchema(ctx, ds)
	return nil
}
