package domain

import (
	"time"
)

// SkipReason — причина, по которой кандидат исключён из обновления.
//
// Skip — это не ошибка: ожидаемое решение фильтра, логируется
// диагностической строкой и не прерывает проход.
type SkipReason string

const (
	// SkipFeatureDisabled — автоматическое обновление queries выключено глобально.
	SkipFeatureDisabled SkipReason = "feature_disabled"

	// SkipOrgDisabled — организация-владелец отключена.
	SkipOrgDisabled SkipReason = "org_disabled"

	// SkipNoDataSource — у query нет источника данных.
	SkipNoDataSource SkipReason = "no_data_source"

	// SkipDataSourcePaused — источник данных query приостановлен.
	SkipDataSourcePaused SkipReason = "data_source_paused"

	// SkipPaused — источник приостановлен (проход обновления схем).
	SkipPaused SkipReason = "paused"

	// SkipBlacklisted — источник находится в blacklist обновления схем.
	SkipBlacklisted SkipReason = "blacklisted"
)

// String возвращает строковое представление SkipReason.
func (r SkipReason) String() string {
	return string(r)
}

// OutcomeKind — вид исхода задачи обновления схемы.
//
// Жизненный цикл задачи:
//
//	running → success
//	        ↘ timeout
//	        ↘ error
//
// Все три исхода терминальные и достижимы только из running.
// Retry задача не инициирует.
type OutcomeKind string

const (
	// OutcomeSuccess — схема получена и сохранена.
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeTimedOut — интроспекция превысила бюджет времени выполнения.
	// Это штатное завершение, а не сбой: считается отдельным счётчиком
	// и никогда не попадает в счётчик ошибок.
	OutcomeTimedOut OutcomeKind = "timeout"

	// OutcomeFailed — интроспекция завершилась любой другой ошибкой.
	OutcomeFailed OutcomeKind = "error"
)

// String возвращает строковое представление OutcomeKind.
// Используется как значение метки в метриках.
func (k OutcomeKind) String() string {
	return string(k)
}

// Outcome — терминальный исход одного вызова задачи обновления схемы.
//
// Никогда не сохраняется: только логируется и считается.
// Интерпретируется исключительно непосредственным вызывающим.
type Outcome struct {
	// Kind — вид исхода.
	Kind OutcomeKind `json:"kind"`

	// Elapsed — затраченное wall-clock время. Заполняется во всех исходах.
	Elapsed time.Duration `json:"elapsed"`

	// Err — ошибка интроспекции. Nil для success, context.DeadlineExceeded
	// (возможно обёрнутый) для timeout.
	Err error `json:"-"`
}

// Succeeded конструирует успешный исход.
func Succeeded(elapsed time.Duration) Outcome {
	return Outcome{Kind: OutcomeSuccess, Elapsed: elapsed}
}

// TimedOut конструирует исход с превышением бюджета времени.
func TimedOut(err error, elapsed time.Duration) Outcome {
	return Outcome{Kind: OutcomeTimedOut, Elapsed: elapsed, Err: err}
}

// Failed конструирует исход с ошибкой.
func Failed(err error, elapsed time.Duration) Outcome {
	return Outcome{Kind: OutcomeFailed, Elapsed: elapsed, Err: err}
}
