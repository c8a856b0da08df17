// Package telemetry — логирование и метрики Freshboard.
//
// logging.go настраивает slog по LOG_LEVEL / LOG_FORMAT и даёт
// помощники WithQueryID / WithDataSourceID для сквозных полей.
//
// metrics.go объявляет метрики Prometheus (freshboard_*): гейджи
// последнего прохода обновления, гистограмму его длительности
// и счётчик исходов задач обновления схем. Каждый процесс отдаёт
// их на своём /metrics.
package telemetry
