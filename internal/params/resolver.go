package params

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mkravets/Freshboard/internal/domain"
)

// dateLayout — формат значений параметров типа date.
const dateLayout = "2006-01-02"

// dateTimeLayouts — допустимые форматы значений параметров типа datetime.
var dateTimeLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05"}

// DropdownLookup — доступ к вложенным dropdown-запросам и их результатам.
// Реализуется репозиторием queries.
type DropdownLookup interface {
	// GetByID возвращает query по id.
	GetByID(ctx context.Context, id int64) (*domain.Query, error)

	// ResultValues возвращает допустимые значения dropdown
	// из сохранённого результата.
	ResultValues(ctx context.Context, resultID int64) ([]string, error)
}

// Resolver валидирует значения параметров и подставляет их в текст query.
type Resolver struct {
	lookup DropdownLookup
}

// NewResolver создаёт новый Resolver.
func NewResolver(lookup DropdownLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Apply подставляет значения параметров в text.
//
// Если все значения nil (или значений нет вовсе), text возвращается
// без изменений: подстановка не выполняется. Иначе каждое значение
// валидируется по типу объявленного параметра, и только затем
// выполняется замена плейсхолдеров {{ name }}.
//
// Ошибки:
//   - *InvalidParameterError — значения не прошли валидацию
//     (несёт имена всех некорректных параметров)
//   - *DetachedQueryError — dropdown-запрос параметра не привязан
//     к источнику данных (несёт id вложенного запроса)
//
// Обе ошибки относятся к одной query и не фатальны для прохода.
// Любая другая ошибка — инфраструктурная и пробрасывается как есть.
func (r *Resolver) Apply(ctx context.Context, text string, defs []domain.ParameterDef, values map[string]any) (string, error) {
	if allNull(values) {
		return text, nil
	}

	byName := make(map[string]*domain.ParameterDef, len(defs))
	for i := range defs {
		byName[defs[i].Name] = &defs[i]
	}

	var invalid []string
	for name, value := range values {
		def, ok := byName[name]
		if !ok {
			// Значение для необъявленного параметра
			invalid = append(invalid, name)
			continue
		}

		valid, err := r.valid(ctx, def, value)
		if err != nil {
			return "", err
		}
		if !valid {
			invalid = append(invalid, name)
		}
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return "", &InvalidParameterError{Names: invalid}
	}

	return substitute(text, values), nil
}

// allNull возвращает true, если в values нет ни одного значения.
func allNull(values map[string]any) bool {
	for _, v := range values {
		if v != nil {
			return false
		}
	}
	return true
}

// valid проверяет значение по типу объявленного параметра.
func (r *Resolver) valid(ctx context.Context, def *domain.ParameterDef, value any) (bool, error) {
	switch def.Type {
	case domain.ParameterText:
		_, ok := value.(string)
		return ok, nil

	case domain.ParameterNumber:
		return isNumber(value), nil

	case domain.ParameterEnum:
		return within(value, def.EnumOptions), nil

	case domain.ParameterQuery:
		return r.validDropdown(ctx, def, value)

	case domain.ParameterDate:
		return isDate(value), nil

	case domain.ParameterDateTime:
		return isDateTime(value), nil

	case domain.ParameterDateRange:
		return isDateRange(value), nil

	default:
		return false, nil
	}
}

// validDropdown проверяет значение параметра типа query: оно должно
// входить в результаты вложенного dropdown-запроса.
func (r *Resolver) validDropdown(ctx context.Context, def *domain.ParameterDef, value any) (bool, error) {
	if def.QueryID == nil {
		return false, nil
	}

	inner, err := r.lookup.GetByID(ctx, *def.QueryID)
	if err != nil {
		return false, fmt.Errorf("load dropdown query %d: %w", *def.QueryID, err)
	}

	if inner.DataSourceID == nil {
		return false, &DetachedQueryError{QueryID: inner.ID}
	}

	if inner.LatestQueryResultID == nil {
		// Результата ещё нет — допустимых значений нет
		return false, nil
	}

	options, err := r.lookup.ResultValues(ctx, *inner.LatestQueryResultID)
	if err != nil {
		return false, fmt.Errorf("load dropdown values for query %d: %w", inner.ID, err)
	}

	return within(value, options), nil
}

// substitute заменяет плейсхолдеры {{ name }} на значения.
// Для map-значений (date-range) подставляются подключи: {{ name.start }}.
func substitute(text string, values map[string]any) string {
	// Текст без плейсхолдеров возвращаем как есть
	if !strings.Contains(text, "{{") {
		return text
	}

	for name, value := range values {
		if sub, ok := value.(map[string]any); ok {
			for key, v := range sub {
				text = replacePlaceholder(text, name+"."+key, formatValue(v))
			}
			continue
		}
		text = replacePlaceholder(text, name, formatValue(value))
	}
	return text
}

// replacePlaceholder заменяет все вхождения {{ name }} (с любыми
// пробелами внутри скобок) на value.
func replacePlaceholder(text, name, value string) string {
	re := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\s*\}\}`)
	return re.ReplaceAllLiteralString(text, value)
}

// isNumber принимает числа и строки, разбираемые как число.
func isNumber(value any) bool {
	switch v := value.(type) {
	case int, int64, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

// within проверяет, входит ли значение в список допустимых.
func within(value any, options []string) bool {
	s := formatValue(value)
	for _, opt := range options {
		if s == opt {
			return true
		}
	}
	return false
}

func isDate(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func isDateTime(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// isDateRange принимает объект {"start": ..., "end": ...} с датами.
func isDateRange(value any) bool {
	m, ok := value.(map[string]any)
	if !ok {
		return false
	}
	return isDate(m["start"]) && isDate(m["end"])
}

// formatValue приводит значение параметра к строке для подстановки
// и сравнения с допустимыми значениями.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
