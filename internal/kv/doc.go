// Package kv предоставляет доступ к общим хранилищам в Redis.
//
// Структура:
//   - redis.go        — создание клиента (REDIS_URL)
//   - status_store.go — hash-запись статуса последнего прохода обновления
//   - blacklist.go    — set источников, исключённых из обновления схем
//   - failure_log.go  — append-only журнал неудач запланированных обновлений
//
// Все хранилища разделяются с другими подсистемами продукта:
// статус читают health-дашборды, blacklist правят операторы,
// журнал неудач разбирает подсистема уведомлений.
package kv
