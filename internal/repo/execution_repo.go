package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/studyexec/internal/domain"
)

// ExecutionRepo — репозиторий executions и журнала попыток.
//
// Реализует worker.Tracker: переходы статуса выполняются условными
// UPDATE, поэтому PENDING → RUNNING → SUCCEEDED|FAILED нельзя нарушить
// даже при повторной доставке сообщения.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// ExecutionFilter — параметры фильтрации для List.
type ExecutionFilter struct {
	Status domain.ExecutionStatus
	Limit  int
	Offset int
}

// executionColumns включает число попыток, чтобы списки не загружали журнал.
const executionColumns = `id, input, max_retries, status, result_key, started_at, finished_at, created_at,
	(SELECT count(*) FROM execution_logs l WHERE l.execution_id = executions.id)`

// Create создаёт новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	query := `
		INSERT INTO executions (id, input, max_retries, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Input,
		exec.MaxRetries,
		exec.Status,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution по ID (без журнала).
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	return scanExecution(r.pool.QueryRow(ctx, query, id))
}

// GetWithLogs возвращает execution вместе с журналом попыток.
func (r *ExecutionRepo) GetWithLogs(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	exec, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := r.ListLogs(ctx, id)
	if err != nil {
		return nil, err
	}
	exec.Logs = logs
	return exec, nil
}

// List возвращает executions с фильтрацией, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return collectExecutions(rows)
}

// ListPending возвращает executions в статусе PENDING, старые первыми.
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM executions
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	return collectExecutions(rows)
}

// ListLogs возвращает журнал попыток в порядке добавления.
func (r *ExecutionRepo) ListLogs(ctx context.Context, id uuid.UUID) ([]domain.LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT seq, message, created_at
		FROM execution_logs
		WHERE execution_id = $1
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		var message *string
		if err := rows.Scan(&entry.Seq, &message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution log: %w", err)
		}
		if message != nil {
			entry.Message = *message
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// --- worker.Tracker ---

// Load возвращает execution для выполнения.
func (r *ExecutionRepo) Load(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return r.GetByID(ctx, id)
}

// SetRunning переводит execution из PENDING в RUNNING.
func (r *ExecutionRepo) SetRunning(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE executions
		SET status = 'RUNNING', started_at = now()
		WHERE id = $1 AND status = 'PENDING'
	`, id)
	if err != nil {
		return fmt.Errorf("set execution running: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.transitionError(ctx, id, domain.ExecutionStatusRunning)
	}
	return nil
}

// AppendLog добавляет запись журнала. Пустое сообщение хранится как NULL.
func (r *ExecutionRepo) AppendLog(ctx context.Context, id uuid.UUID, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO execution_logs (execution_id, message, created_at)
		VALUES ($1, $2, now())
	`, id, nullString(message))
	if err != nil {
		return fmt.Errorf("append execution log: %w", err)
	}
	return nil
}

// SaveResult сохраняет финальный результат и переводит execution
// в SUCCEEDED или FAILED. ResultKey сохраняется только при успехе.
func (r *ExecutionRepo) SaveResult(ctx context.Context, id uuid.UUID, success bool, resultKey string) error {
	status := domain.TerminalStatus(success)

	var key *string
	if success {
		key = nullString(resultKey)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE executions
		SET status = $2, result_key = $3, finished_at = now()
		WHERE id = $1 AND status = 'RUNNING'
	`, id, status, key)
	if err != nil {
		return fmt.Errorf("save execution result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.transitionError(ctx, id, status)
	}
	return nil
}

// transitionError объясняет, почему условный UPDATE не затронул строк.
func (r *ExecutionRepo) transitionError(ctx context.Context, id uuid.UUID, next domain.ExecutionStatus) error {
	exec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !exec.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot move execution from %s to %s", ErrInvalidState, exec.Status, next)
	}
	// Переход допустим, значит статус сменился между UPDATE и SELECT.
	return fmt.Errorf("%w: execution %s changed status concurrently (now %s)", ErrInvalidState, id, exec.Status)
}

// --- Helpers ---

func collectExecutions(rows pgx.Rows) ([]domain.Execution, error) {
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

// scanExecution сканирует строку (pgx.Row или pgx.Rows) в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var resultKey *string

	err := row.Scan(
		&exec.ID,
		&exec.Input,
		&exec.MaxRetries,
		&exec.Status,
		&resultKey,
		&exec.StartedAt,
		&exec.FinishedAt,
		&exec.CreatedAt,
		&exec.AttemptCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if resultKey != nil {
		exec.ResultKey = *resultKey
	}
	return &exec, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
