// Package refresh реализует проходы обслуживания: обновление
// устаревших запросов, обновление схем источников данных, снятие
// истекших расписаний и очистку неиспользуемых результатов.
//
// Каждый проход — последовательный обход снапшота кандидатов.
// Запросы и источники отсеиваются фильтром пригодности, ошибки
// подготовки одного запроса записываются в журнал и не прерывают
// проход. Пригодная работа уходит в очередь выполнения и дальше
// не отслеживается.
//
// Структура:
//   - pass.go   — проходы (RefreshQueries, RefreshSchemas,
//     EmptySchedules, CleanupQueryResults) и порты внешних систем
//   - filter.go — фильтр пригодности (CheckQuery, CheckDataSource)
//
// Использование:
//
//	pass := refresh.New(refresh.Config{
//	    Queries:     queryRepo,
//	    DataSources: dataSourceRepo,
//	    Results:     resultRepo,
//	    Dispatcher:  publisher,
//	    Status:      statusStore,
//	    Blacklist:   blacklist,
//	    Failures:    failureLog,
//	    Resolver:    resolver,
//	    Logger:      logger,
//	})
//
//	if err := pass.RefreshQueries(ctx); err != nil {
//	    logger.Error("refresh queries failed", "error", err)
//	}
//
// Leader Election:
//
// Pass не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Проходы запускаются только на лидере.
package refresh
