// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (хранилище, publisher, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - execution_handler.go — обработчики для /executions
//
// API создаёт executions, показывает их статус и журнал попыток
// и повторно ставит PENDING executions в очередь.
package api
