package domain

// DataSource — подключение к внешнему хранилищу данных.
//
// Планировщик обновления схем перечисляет все источники и решает,
// какие из них отправить на интроспекцию. Членство в blacklist
// хранится отдельно (в общем set-хранилище), а не полем на записи.
type DataSource struct {
	// ID — уникальный идентификатор источника.
	ID int64 `json:"id"`

	// Name — имя источника (например, "warehouse", "clickstream-replica").
	Name string `json:"name"`

	// OrgID — ссылка на организацию-владельца.
	OrgID int64 `json:"org_id"`

	// Org — организация-владелец (заполняется join-ом при выборке).
	Org *Organization `json:"org,omitempty"`

	// Paused — флаг приостановки. Приостановленный источник не принимает
	// запланированные запросы и не обновляет схему.
	Paused bool `json:"paused"`

	// PauseReason — причина приостановки, заданная администратором.
	PauseReason string `json:"pause_reason,omitempty"`
}

// Organization — организация, владеющая queries и источниками данных.
type Organization struct {
	// ID — уникальный идентификатор организации.
	ID int64 `json:"id"`

	// Name — имя организации.
	Name string `json:"name"`

	// Disabled — флаг отключения. Для отключённой организации
	// не выполняется никакая запланированная работа.
	Disabled bool `json:"disabled"`
}

// SchemaTable — одна таблица в схеме источника данных.
type SchemaTable struct {
	// Name — имя таблицы.
	Name string `json:"name"`

	// Columns — имена колонок.
	Columns []string `json:"columns"`
}

// Schema — схема источника данных: список таблиц с колонками.
// Результат интроспекции, возвращаемый внешним коллаборатором.
type Schema []SchemaTable
