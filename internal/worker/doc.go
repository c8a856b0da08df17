// Package worker выполняет задания обновления схем источников данных.
//
// # Обзор
//
// Worker — stateless компонент Freshboard, исполняющий задания
// schema.refresh, которые ставит планировщик. В зоне его
// ответственности:
//
//   - чтение заданий из очереди RabbitMQ
//   - принудительное обновление схемы через сервис интроспекции
//   - бюджет времени одной задачи
//   - подсчёт исходов (success / timeout / error) в метриках
//
// Экземпляры масштабируются горизонтально: очередь schemas.refresh
// у них общая.
//
// # Жизненный цикл
//
//	w := worker.New(worker.Config{
//	    DataSources: dataSourceRepo,
//	    Conn:        mqConn,
//	    Logger:      logger,
//	})
//
//	w.Start(ctx)
//	defer w.Stop()
//
// Start возвращается сразу, обработка идёт в фоне. Stop дожидается
// завершения заданий, которые уже в работе.
//
// # Сервис интроспекции
//
// Схему источника запрашивает внешний сервис, доступный через
// интерфейс Introspector:
//
//	type Introspector interface {
//	    FetchSchema(ctx context.Context, ds *domain.DataSource, forceRefresh bool) (domain.Schema, error)
//	}
//
// Реализация по умолчанию — HTTPIntrospector (адрес из INTROSPECTION_URL).
//
// # Исходы задачи
//
// Каждая задача завершается ровно одним из трёх терминальных исходов:
//
//	running → success — схема получена
//	        ↘ timeout — бюджет времени исчерпан (SCHEMA_REFRESH_TIMEOUT)
//	        ↘ error   — любая другая ошибка
//
// Таймаут — штатное завершение: он считается отдельным счётчиком
// и никогда не попадает в счётчик ошибок. Задача не инициирует
// повторов — источник снова попадёт в следующий проход планировщика.
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - инфраструктурные (битый payload, недоступная база) — nack,
//     сообщение уходит на повтор или в DLQ;
//   - исходы задачи (timeout, error) — терминальные, сообщение
//     подтверждается, исход остаётся в логах и метриках.
package worker
