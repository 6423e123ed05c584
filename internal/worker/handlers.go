package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
	"github.com/shaiso/studyexec/internal/mq"
)

// handleExecutionPending обрабатывает событие из очереди executions.pending.
func (w *Worker) handleExecutionPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ExecutionPendingPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse execution.pending payload", "error", err)
		return fmt.Errorf("%w: %v", mq.ErrReject, err)
	}

	if payload.ExecutionID == uuid.Nil {
		w.logger.Error("execution.pending without execution_id", "message_id", delivery.Message.ID)
		return fmt.Errorf("%w: empty execution_id", mq.ErrReject)
	}

	w.logger.Debug("received execution.pending event", "execution_id", payload.ExecutionID)

	if err := w.processExecution(ctx, payload.ExecutionID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrExecutionNotFound) || errors.Is(err, ErrExecutionNotPending) {
			w.logger.Debug("execution not processed",
				"execution_id", payload.ExecutionID,
				"reason", err,
			)
			return nil
		}
		w.logger.Error("failed to process execution",
			"execution_id", payload.ExecutionID,
			"error", err,
		)
		return err
	}

	return nil
}

// processExecution проверяет, что execution ещё в PENDING, и выполняет его.
// Повторная доставка того же ID не запускает execution второй раз.
func (w *Worker) processExecution(ctx context.Context, id uuid.UUID) error {
	w.execMu.Lock()
	defer w.execMu.Unlock()

	exec, err := w.load(ctx, id)
	if err != nil {
		return err
	}

	if exec.Status != domain.ExecutionStatusPending {
		return fmt.Errorf("%w: %s is %s", ErrExecutionNotPending, id, exec.Status)
	}

	return w.execute(ctx, exec)
}
