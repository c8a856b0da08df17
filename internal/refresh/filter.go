package refresh

import (
	"log/slog"

	"github.com/mkravets/Freshboard/internal/domain"
	"github.com/mkravets/Freshboard/internal/telemetry"
)

// Filter — фильтр пригодности кандидатов к обновлению.
//
// Классифицирует каждый запрос или источник данных одного прохода:
// либо пригоден к постановке в очередь, либо пропускается ровно
// с одной причиной. Проверки применяются в фиксированном порядке,
// срабатывает первая подошедшая.
type Filter struct {
	refreshDisabled bool
	logger          *slog.Logger
}

// NewFilter создаёт Filter.
//
// refreshDisabled — глобальное отключение обновления запросов
// по расписанию (переменная окружения FEATURE_DISABLE_REFRESH_QUERIES).
func NewFilter(refreshDisabled bool, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		refreshDisabled: refreshDisabled,
		logger:          logger,
	}
}

// CheckQuery решает, пригоден ли запрос к постановке в очередь.
//
// Порядок проверок:
//
//  1. feature_disabled   — обновление выключено глобально
//  2. org_disabled       — организация запроса отключена
//  3. no_data_source     — у запроса нет источника данных
//  4. data_source_paused — источник данных на паузе
//
// Пропуск логируется с id запроса; для паузы дополнительно
// с именем источника и причиной паузы.
func (f *Filter) CheckQuery(q *domain.Query) (domain.SkipReason, bool) {
	logger := telemetry.WithQueryID(f.logger, q.ID)

	switch {
	case f.refreshDisabled:
		logger.Info("scheduled query refresh is disabled")
		return domain.SkipFeatureDisabled, true

	case q.Org != nil && q.Org.Disabled:
		logger.Debug("skipping refresh because org is disabled")
		return domain.SkipOrgDisabled, true

	case q.DataSource == nil:
		logger.Debug("skipping refresh because query has no data source")
		return domain.SkipNoDataSource, true

	case q.DataSource.Paused:
		logger.Debug("skipping refresh because data source is paused",
			"data_source", q.DataSource.Name,
			"pause_reason", q.DataSource.PauseReason,
		)
		return domain.SkipDataSourcePaused, true

	default:
		return "", false
	}
}

// CheckDataSource решает, пригоден ли источник к обновлению схемы.
//
// Порядок проверок:
//
//  1. paused       — источник на паузе
//  2. blacklisted  — источник в чёрном списке обновления схем
//  3. org_disabled — организация источника отключена
//
// Логируется только первая сработавшая причина, даже если
// подходят несколько.
func (f *Filter) CheckDataSource(ds *domain.DataSource, blacklist map[int64]struct{}) (domain.SkipReason, bool) {
	switch {
	case ds.Paused:
		f.logger.Info("skipping schema refresh because data source is paused",
			"data_source_id", ds.ID,
			"pause_reason", ds.PauseReason,
		)
		return domain.SkipPaused, true

	case contains(blacklist, ds.ID):
		f.logger.Info("skipping schema refresh because data source is blacklisted",
			"data_source_id", ds.ID,
		)
		return domain.SkipBlacklisted, true

	case ds.Org != nil && ds.Org.Disabled:
		f.logger.Info("skipping schema refresh because org is disabled",
			"data_source_id", ds.ID,
		)
		return domain.SkipOrgDisabled, true

	default:
		return "", false
	}
}

func contains(set map[int64]struct{}, id int64) bool {
	_, ok := set[id]
	return ok
}
