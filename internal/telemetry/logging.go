package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel возвращает уровень логирования из LOG_LEVEL
// (debug / info / warn / error, регистр не важен). По умолчанию info.
func LogLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger настраивает логгер процесса и делает его глобальным.
//
// Формат задаёт LOG_FORMAT: "text" — человекочитаемый вывод для
// разработки, всё остальное — JSON. На уровне debug в записи
// добавляется источник (файл:строка).
func SetupLogger() *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithQueryID возвращает логгер с добавленным query_id.
func WithQueryID(logger *slog.Logger, queryID int64) *slog.Logger {
	return logger.With("query_id", queryID)
}

// WithDataSourceID возвращает логгер с добавленным data_source_id.
func WithDataSourceID(logger *slog.Logger, dataSourceID int64) *slog.Logger {
	return logger.With("data_source_id", dataSourceID)
}
