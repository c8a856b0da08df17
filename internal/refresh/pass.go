package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkravets/Freshboard/internal/domain"
	"github.com/mkravets/Freshboard/internal/params"
	"github.com/mkravets/Freshboard/internal/telemetry"
)

// QueryStore — снапшот-выборки запросов с расписанием.
type QueryStore interface {
	ListOutdated(ctx context.Context, now time.Time) ([]domain.Query, error)
	ListPastScheduled(ctx context.Context, now time.Time) ([]domain.Query, error)
	ClearSchedules(ctx context.Context, ids []int64) error
}

// DataSourceStore — перечисление источников данных.
type DataSourceStore interface {
	ListAll(ctx context.Context) ([]domain.DataSource, error)
}

// ResultStore — удаление неиспользуемых результатов запросов.
type ResultStore interface {
	DeleteUnused(ctx context.Context, maxAge time.Duration, limit int) (int64, error)
}

// Dispatcher — передача заданий внешней подсистеме выполнения.
// Постановка не ждёт результата: доставка и повторы — её забота.
type Dispatcher interface {
	PublishExecuteQuery(ctx context.Context, query *domain.Query, resolvedText string, metadata map[string]any) error
	PublishRefreshSchema(ctx context.Context, dataSourceID int64) error
}

// StatusStore — общая сводка последнего прохода, перезаписывается целиком.
type StatusStore interface {
	ReadAll(ctx context.Context) (map[string]string, error)
	BulkSet(ctx context.Context, fields map[string]any) error
}

// Blacklist — внешний чёрный список источников для обновления схем.
type Blacklist interface {
	Members(ctx context.Context) (map[int64]struct{}, error)
}

// FailureReporter — журнал ошибок подготовки запросов. Запись
// best-effort: сбой журнала не прерывает проход.
type FailureReporter interface {
	Record(ctx context.Context, query *domain.Query, message string)
}

// TextResolver — подстановка значений параметров в текст запроса.
type TextResolver interface {
	Apply(ctx context.Context, text string, defs []domain.ParameterDef, values map[string]any) (string, error)
}

// Pass — проходы обслуживания запросов и источников данных.
//
// Каждый проход — один последовательный обход снапшота кандидатов
// до конца, без внутреннего параллелизма. Ошибки одного кандидата
// не блокируют обработку остальных; наружу уходят только
// инфраструктурные ошибки (база, очередь, статус-хранилище).
type Pass struct {
	queries     QueryStore
	dataSources DataSourceStore
	results     ResultStore
	dispatcher  Dispatcher
	status      StatusStore
	blacklist   Blacklist
	failures    FailureReporter
	resolver    TextResolver
	filter      *Filter
	logger      *slog.Logger

	cleanupMaxAge time.Duration
	cleanupLimit  int
}

// Config — конфигурация Pass.
type Config struct {
	Queries     QueryStore
	DataSources DataSourceStore
	Results     ResultStore
	Dispatcher  Dispatcher
	Status      StatusStore
	Blacklist   Blacklist
	Failures    FailureReporter
	Resolver    TextResolver
	Filter      *Filter // default: NewFilter(false, Logger)
	Logger      *slog.Logger

	CleanupMaxAge time.Duration // возраст неиспользуемых результатов (default: 7 суток)
	CleanupLimit  int           // результатов за один проход очистки (default: 100)
}

// New создаёт Pass.
func New(cfg Config) *Pass {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	filter := cfg.Filter
	if filter == nil {
		filter = NewFilter(false, logger)
	}

	cleanupMaxAge := cfg.CleanupMaxAge
	if cleanupMaxAge <= 0 {
		cleanupMaxAge = 7 * 24 * time.Hour
	}

	cleanupLimit := cfg.CleanupLimit
	if cleanupLimit <= 0 {
		cleanupLimit = 100
	}

	return &Pass{
		queries:       cfg.Queries,
		dataSources:   cfg.DataSources,
		results:       cfg.Results,
		dispatcher:    cfg.Dispatcher,
		status:        cfg.Status,
		blacklist:     cfg.Blacklist,
		failures:      cfg.Failures,
		resolver:      cfg.Resolver,
		filter:        filter,
		logger:        logger,
		cleanupMaxAge: cleanupMaxAge,
		cleanupLimit:  cleanupLimit,
	}
}

// RefreshQueries выполняет один проход обновления запросов.
//
// 1. Загружает снапшот устаревших запросов
// 2. Прогоняет каждый через фильтр пригодности
// 3. Подставляет значения параметров в текст запроса
// 4. Публикует задание на выполнение
// 5. Перезаписывает сводку прохода и отдаёт метрики
//
// Ошибки подстановки параметров уходят в журнал ошибок, запрос
// исключается, проход продолжается. Ошибки публикации и хранилищ
// инфраструктурные — возвращаются наружу.
func (p *Pass) RefreshQueries(ctx context.Context) error {
	started := time.Now()
	p.logger.Info("refreshing queries")

	// 1. Снапшот устаревших запросов
	queries, err := p.queries.ListOutdated(ctx, started)
	if err != nil {
		return fmt.Errorf("list outdated queries: %w", err)
	}

	queryIDs := make([]int64, 0, len(queries))
	for i := range queries {
		q := &queries[i]

		// 2. Фильтр пригодности: причина пропуска логируется фильтром
		if _, skip := p.filter.CheckQuery(q); skip {
			continue
		}

		// 3. Подстановка значений параметров. Если все значения
		// пустые, текст остаётся как есть.
		text, err := p.resolveText(ctx, q)
		if err != nil {
			if p.reportResolveFailure(ctx, q, err) {
				continue
			}
			return fmt.Errorf("resolve parameters of query %d: %w", q.ID, err)
		}

		// 4. Публикуем задание на выполнение
		metadata := map[string]any{
			"Query ID": q.ID,
			"Username": "Scheduled",
		}
		if err := p.dispatcher.PublishExecuteQuery(ctx, q, text, metadata); err != nil {
			return fmt.Errorf("dispatch query %d: %w", q.ID, err)
		}

		queryIDs = append(queryIDs, q.ID)
	}

	telemetry.OutdatedQueriesLookup.Observe(time.Since(started).Seconds())
	telemetry.OutdatedQueries.Set(float64(len(queryIDs)))

	p.logger.Info("done refreshing queries",
		"outdated", len(queryIDs),
		"query_ids", queryIDs,
	)

	// 5. Сводка прохода: читаем прошлую, отдаём метрику простоя,
	// перезаписываем целиком. Чтение-перезапись без блокировок:
	// при наложении проходов выигрывает последняя запись.
	return p.recordStatus(ctx, queryIDs)
}

// resolveText подставляет значения параметров в текст запроса.
func (p *Pass) resolveText(ctx context.Context, q *domain.Query) (string, error) {
	return p.resolver.Apply(ctx, q.QueryText, q.Parameters, q.ParameterValues())
}

// reportResolveFailure записывает ошибку подстановки в журнал.
// Возвращает false для инфраструктурных ошибок: такие не относятся
// к одному запросу и должны прервать проход.
func (p *Pass) reportResolveFailure(ctx context.Context, q *domain.Query, err error) bool {
	var invalid *params.InvalidParameterError
	var detached *params.DetachedQueryError

	switch {
	case errors.As(err, &invalid):
		p.failures.Record(ctx, q, fmt.Sprintf(
			"Skipping refresh of %d because of invalid parameters: %s", q.ID, invalid))
		return true
	case errors.As(err, &detached):
		p.failures.Record(ctx, q, fmt.Sprintf(
			"Skipping refresh of %d because a related dropdown query (%d) is unattached to any datasource.",
			q.ID, detached.QueryID))
		return true
	default:
		return false
	}
}

// recordStatus перезаписывает сводку последнего прохода.
//
// Сводка перезаписывается и при нулевом результате: свежая отметка
// завершения — сигнал, что планировщик жив.
func (p *Pass) recordStatus(ctx context.Context, queryIDs []int64) error {
	prevFields, err := p.status.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read status record: %w", err)
	}
	prev, err := domain.StatusRecordFromFields(prevFields)
	if err != nil {
		return fmt.Errorf("parse status record: %w", err)
	}

	now := time.Now()
	sinceRefresh := 0.0
	if !prev.CompletedAt.IsZero() {
		sinceRefresh = now.Sub(prev.CompletedAt).Seconds()
	}
	telemetry.SecondsSinceRefresh.Set(sinceRefresh)

	record := domain.StatusRecord{
		DispatchedCount:    len(queryIDs),
		DispatchedQueryIDs: queryIDs,
		CompletedAt:        now,
	}
	fields, err := record.Fields()
	if err != nil {
		return fmt.Errorf("encode status record: %w", err)
	}
	if err := p.status.BulkSet(ctx, fields); err != nil {
		return fmt.Errorf("write status record: %w", err)
	}

	return nil
}

// RefreshSchemas выполняет один проход обновления схем источников.
//
// 1. Читает чёрный список заново — он общий и меняется извне
// 2. Перечисляет все источники данных (полный скан каждый проход)
// 3. Пригодные публикует как независимые задания обновления схемы
//
// Никакого батчинга и ограничения параллелизма: дальше источники
// обрабатывает пул воркеров подсистемы выполнения.
func (p *Pass) RefreshSchemas(ctx context.Context) error {
	started := time.Now()
	p.logger.Info("refreshing schemas")

	// 1. Чёрный список читается каждый проход, не кэшируется
	blacklist, err := p.blacklist.Members(ctx)
	if err != nil {
		return fmt.Errorf("read schema blacklist: %w", err)
	}

	// 2. Полный скан источников
	dataSources, err := p.dataSources.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list data sources: %w", err)
	}

	var dispatched int
	for i := range dataSources {
		ds := &dataSources[i]

		if _, skip := p.filter.CheckDataSource(ds, blacklist); skip {
			continue
		}

		// 3. Каждый пригодный источник — независимое задание
		if err := p.dispatcher.PublishRefreshSchema(ctx, ds.ID); err != nil {
			return fmt.Errorf("dispatch schema refresh for data source %d: %w", ds.ID, err)
		}
		dispatched++
	}

	p.logger.Info("done refreshing schemas",
		"data_sources", len(dataSources),
		"dispatched", dispatched,
		"elapsed", time.Since(started),
	)

	return nil
}

// EmptySchedules снимает расписания с запросов, чей срок действия
// расписания уже истёк.
//
// Две фазы: снапшот id, затем массовое обнуление одним коммитом.
// Наложение с параллельным проходом не защищено: повторное
// обнуление уже пустого расписания безвредно.
func (p *Pass) EmptySchedules(ctx context.Context) error {
	now := time.Now()
	p.logger.Info("deleting schedules of past scheduled queries")

	queries, err := p.queries.ListPastScheduled(ctx, now)
	if err != nil {
		return fmt.Errorf("list past scheduled queries: %w", err)
	}

	ids := make([]int64, 0, len(queries))
	for i := range queries {
		ids = append(ids, queries[i].ID)
	}

	if err := p.queries.ClearSchedules(ctx, ids); err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}

	p.logger.Info("deleted schedules", "count", len(ids))
	return nil
}

// CleanupQueryResults удаляет порцию неиспользуемых результатов
// запросов: тех, на которые не ссылается ни один запрос, старше
// порога. Порция ограничена, чтобы не душить базу при большом
// накоплении.
func (p *Pass) CleanupQueryResults(ctx context.Context) error {
	p.logger.Info("running query results cleanup",
		"limit", p.cleanupLimit,
		"max_age", p.cleanupMaxAge,
	)

	deleted, err := p.results.DeleteUnused(ctx, p.cleanupMaxAge, p.cleanupLimit)
	if err != nil {
		return fmt.Errorf("delete unused query results: %w", err)
	}

	p.logger.Info("deleted unused query results", "count", deleted)
	return nil
}
