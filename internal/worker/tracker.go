package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/mq"
)

// Tracker — хранилище состояния executions.
//
// Worker — единственный, кто меняет статус, журнал и результат
// execution во время выполнения. Реализация: repo.ExecutionRepo.
type Tracker interface {
	// Load возвращает execution (нужны Input и MaxRetries).
	Load(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

	// SetRunning переводит execution в RUNNING.
	SetRunning(ctx context.Context, id uuid.UUID) error

	// AppendLog добавляет запись журнала; пустая строка — успешная попытка.
	AppendLog(ctx context.Context, id uuid.UUID, message string) error

	// SaveResult сохраняет финальный результат.
	SaveResult(ctx context.Context, id uuid.UUID, success bool, resultKey string) error
}

// PendingSource — источник executions для polling.
type PendingSource interface {
	ListPending(ctx context.Context, limit int) ([]domain.Execution, error)
}

// Caller выполняет одну попытку вызова удалённой функции.
// Реализация: invoke.Caller.
type Caller interface {
	Call(ctx context.Context, input string) domain.AttemptOutcome
}

// CompletionPublisher публикует событие о завершении execution.
// Реализация: mq.Publisher.
type CompletionPublisher interface {
	PublishExecutionCompleted(ctx context.Context, payload mq.ExecutionCompletedPayload) error
}
