// Package mq — обмен заданиями через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с брокером и его восстановление
//   - topology.go   — exchanges, очереди и привязки Freshboard
//   - message.go    — конверт сообщения и payload заданий
//   - publisher.go  — постановка заданий (scheduler, cli)
//   - consumer.go   — чтение очереди с политикой повторов (worker)
//
// Задания:
//   - query.execute  — выполнить query
//     (очередь queries.execute, потребляет внешняя подсистема выполнения)
//   - schema.refresh — обновить схему источника данных
//     (очередь schemas.refresh, потребляет freshboard-worker)
//
// Сообщения, дважды провалившие обработку в schemas.refresh,
// уходят в dlq.jobs.
package mq
