package worker

import "errors"

// ErrIntrospection — сервис интроспекции ответил кодом ошибки.
// Проверяется через errors.Is; детали (код, тело ответа) — в обёртке.
var ErrIntrospection = errors.New("schema introspection failed")
