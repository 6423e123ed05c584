package worker

import "errors"

// Ошибки воркера.
var (
	// ErrExecutionNotFound — execution не найден.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending — execution уже взят в работу или завершён.
	ErrExecutionNotPending = errors.New("execution is not in PENDING status")

	// ErrInvalidPollSchedule — не удалось разобрать cron-выражение polling.
	ErrInvalidPollSchedule = errors.New("invalid poll schedule")
)
