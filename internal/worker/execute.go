package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/mq"
	"github.com/shaiso/studyexec/internal/repo"
	"github.com/shaiso/studyexec/internal/telemetry"
)

// Execute выполняет execution: до MaxRetries попыток вызова функции,
// остановка на первой успешной.
//
// Порядок побочных эффектов:
//  1. SetRunning — один раз, до первой попытки
//  2. AppendLog — ровно один раз на попытку, включая успешную (пустое сообщение)
//  3. SaveResult — ровно один раз, с результатом последней попытки
//
// Ошибки попыток не возвращаются: они попадают в журнал и в финальный
// статус FAILED. Возвращаются только ошибки Tracker (execution не найден,
// недопустимый переход статуса, сбой БД).
//
// Отмена ctx не прерывает выполнение: начатый execution доводится до
// финального статуса, каждая попытка ограничена таймаутами транспорта.
func (w *Worker) Execute(ctx context.Context, id uuid.UUID) error {
	exec, err := w.load(ctx, id)
	if err != nil {
		return err
	}
	return w.execute(ctx, exec)
}

// execute выполняет уже загруженный execution.
func (w *Worker) execute(ctx context.Context, exec *domain.Execution) error {
	ctx = context.WithoutCancel(ctx)
	id := exec.ID
	logger := telemetry.WithExecutionID(w.logger, id.String())

	if err := w.tracker.SetRunning(ctx, id); err != nil {
		return fmt.Errorf("set execution running: %w", err)
	}

	telemetry.ExecutionsInProgress.Inc()
	defer telemetry.ExecutionsInProgress.Dec()

	logger.Info("execution started", "max_retries", exec.MaxRetries)

	var last domain.AttemptOutcome
	attempts := 0

	for attempt := 1; !last.Success && attempt <= exec.MaxRetries; attempt++ {
		start := time.Now()
		last = w.caller.Call(ctx, exec.Input)
		attempts = attempt

		telemetry.AttemptDuration.Observe(time.Since(start).Seconds())
		telemetry.AttemptsTotal.WithLabelValues(telemetry.AttemptOutcomeLabel(last.Success)).Inc()

		if err := w.tracker.AppendLog(ctx, id, last.ErrorMessage); err != nil {
			logger.Error("failed to append execution log",
				"attempt", attempt,
				"error", err,
			)
		}

		if last.Success {
			logger.Info("attempt succeeded", "attempt", attempt, "result_key", last.ResultKey)
		} else {
			logger.Warn("attempt failed",
				"attempt", attempt,
				"max_retries", exec.MaxRetries,
				"error", last.ErrorMessage,
			)
		}
	}

	if err := w.tracker.SaveResult(ctx, id, last.Success, last.ResultKey); err != nil {
		return fmt.Errorf("save execution result: %w", err)
	}

	status := domain.TerminalStatus(last.Success)
	telemetry.ExecutionsTotal.WithLabelValues(string(status)).Inc()

	if last.Success {
		logger.Info("execution succeeded", "attempts", attempts, "result_key", last.ResultKey)
	} else {
		logger.Warn("execution failed", "attempts", attempts, "max_retries", exec.MaxRetries)
	}

	w.publishCompletion(ctx, mq.ExecutionCompletedPayload{
		ExecutionID: id,
		Status:      string(status),
		ResultKey:   last.ResultKey,
		Attempts:    attempts,
	})

	return nil
}

// load загружает execution, ErrNotFound превращается в ErrExecutionNotFound.
func (w *Worker) load(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	exec, err := w.tracker.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
		}
		return nil, fmt.Errorf("load execution: %w", err)
	}
	return exec, nil
}

// publishCompletion публикует событие execution.completed.
// Ошибка публикации не влияет на результат: он уже сохранён в БД.
func (w *Worker) publishCompletion(ctx context.Context, payload mq.ExecutionCompletedPayload) {
	if w.publisher == nil {
		return
	}

	if err := w.publisher.PublishExecutionCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish execution.completed",
			"execution_id", payload.ExecutionID,
			"error", err,
		)
	}
}
