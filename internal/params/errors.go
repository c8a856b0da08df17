package params

import (
	"fmt"
	"strings"
)

// InvalidParameterError — значения параметров не прошли валидацию
// по типу объявленного параметра.
//
// Ошибка относится к одной query и не фатальна для прохода обновления:
// вызывающий записывает её в журнал неудач и переходит к следующему
// кандидату.
type InvalidParameterError struct {
	// Names — имена параметров с некорректными значениями.
	Names []string
}

// Error реализует интерфейс error.
func (e *InvalidParameterError) Error() string {
	return "invalid parameter values: " + strings.Join(e.Names, ", ")
}

// DetachedQueryError — параметр ссылается на вложенный dropdown-запрос,
// который больше не привязан ни к одному источнику данных.
//
// Несёт id вложенного запроса: вызывающий указывает его в журнале
// неудач рядом с id внешней query.
type DetachedQueryError struct {
	// QueryID — id отвязанного dropdown-запроса.
	QueryID int64
}

// Error реализует интерфейс error.
func (e *DetachedQueryError) Error() string {
	return fmt.Sprintf("dropdown query %d is detached from any data source", e.QueryID)
}
