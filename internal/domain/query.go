package domain

import "time"

// Query — сохранённый запрос с настройками автоматического обновления.
//
// Query — это "артефакт" BI-системы: текст запроса, объявленные параметры
// и расписание, по которому планировщик решает, пора ли пересчитывать результат.
// Ядро планировщика читает queries, но не изменяет их (единственное исключение —
// массовая очистка истёкших расписаний).
type Query struct {
	// ID — уникальный идентификатор query.
	ID int64 `json:"id"`

	// Name — человекочитаемое имя query (например, "Daily Active Users").
	Name string `json:"name"`

	// QueryText — текст запроса как он сохранён пользователем.
	// Может содержать плейсхолдеры вида {{ param }} для параметров.
	QueryText string `json:"query_text"`

	// Parameters — объявленные параметры query в порядке объявления.
	// Хранятся в JSONB поле options. Пустой список — запрос без параметров.
	Parameters []ParameterDef `json:"parameters,omitempty"`

	// OrgID — ссылка на организацию-владельца.
	OrgID int64 `json:"org_id"`

	// Org — организация-владелец (заполняется join-ом при выборке).
	Org *Organization `json:"org,omitempty"`

	// DataSourceID — ссылка на источник данных.
	// Nil, если источник был удалён или ещё не назначен.
	DataSourceID *int64 `json:"data_source_id,omitempty"`

	// DataSource — источник данных (заполняется join-ом при выборке).
	// Nil, когда DataSourceID == nil.
	DataSource *DataSource `json:"data_source,omitempty"`

	// UserID — пользователь-владелец. От его имени выполняются
	// запланированные обновления.
	UserID int64 `json:"user_id"`

	// Schedule — расписание обновления (JSONB поле).
	// Nil — запрос не обновляется автоматически.
	Schedule *Schedule `json:"schedule,omitempty"`

	// RetrievedAt — время последнего успешного пересчёта результата.
	// Обновляется подсистемой выполнения, не этим ядром.
	// Nil, если результата ещё не было.
	RetrievedAt *time.Time `json:"retrieved_at,omitempty"`

	// LatestQueryResultID — ссылка на последний сохранённый результат.
	LatestQueryResultID *int64 `json:"latest_query_result_id,omitempty"`

	// ScheduleFailures — счётчик подряд идущих неудачных запланированных
	// обновлений. Используется для экспоненциального backoff при выборке
	// устаревших queries. Сбрасывается подсистемой выполнения при успехе.
	ScheduleFailures int `json:"schedule_failures,omitempty"`
}

// ParameterValues строит отображение имя → значение по умолчанию
// из объявленных параметров. Значения могут быть nil.
func (q *Query) ParameterValues() map[string]any {
	values := make(map[string]any, len(q.Parameters))
	for _, p := range q.Parameters {
		values[p.Name] = p.Value
	}
	return values
}

// HasSchedule возвращает true, если запрос обновляется по расписанию.
func (q *Query) HasSchedule() bool {
	return q.Schedule != nil
}

// ParameterType — тип объявленного параметра.
type ParameterType string

const (
	// ParameterText — произвольная строка.
	ParameterText ParameterType = "text"

	// ParameterNumber — числовое значение.
	ParameterNumber ParameterType = "number"

	// ParameterEnum — значение из фиксированного списка вариантов.
	ParameterEnum ParameterType = "enum"

	// ParameterQuery — значение из результатов вложенного dropdown-запроса.
	ParameterQuery ParameterType = "query"

	// ParameterDate — дата в формате "2006-01-02".
	ParameterDate ParameterType = "date"

	// ParameterDateTime — дата и время в формате "2006-01-02 15:04".
	ParameterDateTime ParameterType = "datetime"

	// ParameterDateRange — диапазон дат: объект {"start": ..., "end": ...}.
	ParameterDateRange ParameterType = "date-range"
)

// ParameterDef — определение параметра query (элемент options.parameters).
type ParameterDef struct {
	// Name — имя параметра. Используется в плейсхолдерах {{ name }}.
	Name string `json:"name"`

	// Title — человекочитаемое название для UI.
	Title string `json:"title,omitempty"`

	// Type — тип параметра. Определяет правила валидации значения.
	Type ParameterType `json:"type"`

	// Value — сохранённое значение по умолчанию.
	// Nil, если значение не задано. Для date-range — map с ключами start/end.
	Value any `json:"value,omitempty"`

	// EnumOptions — допустимые значения (только для type="enum").
	EnumOptions []string `json:"enumOptions,omitempty"`

	// QueryID — ссылка на вложенный dropdown-запрос (только для type="query").
	// Допустимые значения берутся из его результатов.
	QueryID *int64 `json:"queryId,omitempty"`
}
