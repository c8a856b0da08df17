// Package params реализует подстановку значений параметров в текст query.
//
// Структура:
//   - resolver.go — валидация значений по типам и замена плейсхолдеров {{ name }}
//   - errors.go   — типизированные ошибки резолвинга
//
// Использование:
//
//	resolver := params.NewResolver(queryRepo)
//
//	text, err := resolver.Apply(ctx, q.QueryText, q.Parameters, q.ParameterValues())
//	var invalid *params.InvalidParameterError
//	var detached *params.DetachedQueryError
//	switch {
//	case errors.As(err, &invalid):
//	    // значения не прошли валидацию — query пропускается
//	case errors.As(err, &detached):
//	    // dropdown-запрос отвязан от источника — query пропускается
//	case err != nil:
//	    // инфраструктурная ошибка — пробрасывается выше
//	}
//
// Если все значения параметров nil, Apply возвращает текст без изменений
// и подстановка не выполняется вовсе.
package params
