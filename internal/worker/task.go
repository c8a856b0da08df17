package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mkravets/Freshboard/internal/domain"
	"github.com/mkravets/Freshboard/internal/telemetry"
)

// RefreshSchema обновляет схему одного источника данных.
//
// Задача завершается ровно одним из трёх исходов: схема получена,
// бюджет времени исчерпан, любая другая ошибка. Таймаут — штатное
// завершение, а не сбой: он считается отдельным счётчиком и никогда
// не попадает в счётчик ошибок. Повторы задача не инициирует ни
// при каком исходе — источник снова попадёт в следующий проход
// планировщика.
func (w *Worker) RefreshSchema(ctx context.Context, ds *domain.DataSource) domain.Outcome {
	logger := telemetry.WithDataSourceID(w.logger, ds.ID)
	logger.Info("schema refresh started")

	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	schema, err := w.introspector.FetchSchema(ctx, ds, true)
	elapsed := time.Since(started)

	var outcome domain.Outcome
	switch {
	case err == nil:
		outcome = domain.Succeeded(elapsed)
		logger.Info("schema refresh finished",
			"tables", len(schema),
			"elapsed", elapsed,
		)

	case errors.Is(err, context.DeadlineExceeded):
		outcome = domain.TimedOut(err, elapsed)
		logger.Info("schema refresh timed out",
			"timeout", w.timeout,
			"elapsed", elapsed,
		)

	default:
		outcome = domain.Failed(err, elapsed)
		logger.Warn("failed refreshing schema for the data source",
			"data_source", ds.Name,
			"error", err,
			"elapsed", elapsed,
		)
	}

	telemetry.SchemaRefreshTotal.WithLabelValues(outcome.Kind.String()).Inc()
	return outcome
}
