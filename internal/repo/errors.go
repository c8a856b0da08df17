package repo

import "errors"

// ErrNotFound — запрошенной записи (query, источника данных) нет в базе.
// Возвращается всеми Get-методами репозиториев, проверяется errors.Is.
var ErrNotFound = errors.New("not found")
