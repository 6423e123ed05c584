// Package telemetry обеспечивает наблюдаемость studyexec.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики попыток и executions
//
// Все сервисы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint.
package telemetry
