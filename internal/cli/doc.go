// Package cli реализует инструмент командной строки Freshboard.
//
// # Обзор
//
// CLI — операторская утилита для ручного запуска проходов обновления
// и обслуживания данных. В отличие от постоянных процессов (scheduler,
// worker) подключается к хранилищам напрямую: PostgreSQL для запросов
// и результатов, Redis для статуса и чёрного списка, RabbitMQ для
// диспетчеризации заданий.
//
// # Ключевые компоненты
//
// ## Deps
//
// Ленивые подключения к инфраструктуре. Соединение устанавливается
// при первом обращении команды, поэтому status не трогает RabbitMQ,
// а blacklist — PostgreSQL.
//
//	deps := cli.NewDeps(ctx, logger)
//	defer deps.Close()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы и пары ключ-значение (text/tabwriter) — по умолчанию
//   - JSON с отступами — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success) — в stderr.
// Это позволяет использовать pipe: freshboard status --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по задачам:
//   - status: сводка последнего прохода и счётчик неиспользуемых результатов
//   - refresh: queries, schemas — ручной запуск прохода
//   - maintenance: empty-schedules, cleanup-results
//   - blacklist: list, add, remove
//
// Каждая группа создаётся через фабричную функцию (NewStatusCmd и т.д.),
// принимающую depsFn и outputFn — замыкания для ленивого создания
// Deps и Output после парсинга PersistentFlags.
package cli
