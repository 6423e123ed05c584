// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Consumer подтверждает сообщение после обработки. Ошибка с ErrReject,
// невалидный JSON и неожиданный тип сообщения уходят в DLQ,
// остальные ошибки возвращают сообщение в очередь.
//
// Типы сообщений:
//   - execution.pending   — execution ожидает worker
//   - execution.completed — execution завершён (SUCCEEDED или FAILED)
//
// Exchanges:
//   - studyexec.executions — события executions
//   - studyexec.dlq        — dead letter queue
package mq
