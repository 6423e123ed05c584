package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/repo"
)

// ExecutionStore — хранилище executions для API.
// Реализация: repo.ExecutionRepo.
type ExecutionStore interface {
	Create(ctx context.Context, exec *domain.Execution) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	GetWithLogs(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	List(ctx context.Context, filter repo.ExecutionFilter) ([]domain.Execution, error)
	ListLogs(ctx context.Context, id uuid.UUID) ([]domain.LogEntry, error)
}

// PendingPublisher публикует execution.pending.
// Реализация: mq.Publisher.
type PendingPublisher interface {
	PublishExecutionPending(ctx context.Context, executionID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	executions        ExecutionStore
	publisher         PendingPublisher
	defaultMaxRetries int
	logger            *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Executions ExecutionStore

	// Publisher опционален: без него executions подхватит polling воркера.
	Publisher PendingPublisher

	// DefaultMaxRetries — бюджет попыток, если в запросе не указан max_retries.
	DefaultMaxRetries int

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		executions:        cfg.Executions,
		publisher:         cfg.Publisher,
		defaultMaxRetries: cfg.DefaultMaxRetries,
		logger:            logger,
	}
}
