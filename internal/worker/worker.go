package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/studyexec/internal/mq"
	"github.com/shaiso/studyexec/internal/telemetry"
)

// Default configuration values.
const (
	defaultPollSchedule = "@every 10s"
	defaultBatchSize    = 50
	defaultPrefetch     = 1
)

// Worker выполняет executions.
//
// Worker:
//   - Получает ID executions из очереди RabbitMQ (event-driven)
//   - Периодически проверяет PENDING executions в БД (polling fallback)
//   - Выполняет execution с in-process retry через Caller
//   - Сохраняет журнал попыток и финальный результат через Tracker
//   - Публикует событие execution.completed
//
// Одновременно выполняется не более одного execution.
type Worker struct {
	tracker   Tracker
	pending   PendingSource
	caller    Caller
	publisher CompletionPublisher

	// MQ
	conn     *mq.Connection
	consumer *mq.Consumer

	// Configuration
	pollSchedule string
	batchSize    int

	// Одно execution за раз: consumer и polling делят один мьютекс.
	execMu sync.Mutex

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Tracker — хранилище состояния executions (обязательно).
	Tracker Tracker

	// Pending — источник для polling (опционально; nil — polling выключен).
	Pending PendingSource

	// Caller — вызов удалённой функции (обязательно).
	Caller Caller

	// Publisher — события execution.completed (опционально).
	Publisher CompletionPublisher

	// Conn — соединение с RabbitMQ (опционально; nil — только polling).
	Conn *mq.Connection

	// Polling configuration
	PollSchedule string // cron-выражение (default: @every 10s)
	BatchSize    int    // количество executions за один poll (default: 50)

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollSchedule := cfg.PollSchedule
	if pollSchedule == "" {
		pollSchedule = defaultPollSchedule
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		tracker:      cfg.Tracker,
		pending:      cfg.Pending,
		caller:       cfg.Caller,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		pollSchedule: pollSchedule,
		batchSize:    batchSize,
		logger:       telemetry.WithComponent(logger, "worker"),
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для executions.pending (если есть соединение с RabbitMQ)
//   - Polling горутину по расписанию PollSchedule (если задан Pending)
func (w *Worker) Start(ctx context.Context) error {
	schedule, err := cron.ParseStandard(w.pollSchedule)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPollSchedule, w.pollSchedule, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_schedule", w.pollSchedule,
		"batch_size", w.batchSize,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueExecutionsPending),
			Handler:  w.handleExecutionPending,
			Prefetch: defaultPrefetch,
			Types:    []mq.MessageType{mq.MessageTypeExecutionPending},
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("execution consumer error", "error", err)
			}
		}()
	} else {
		w.logger.Warn("RabbitMQ connection not available, running in polling-only mode")
	}

	if w.pending != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.pollLoop(ctx, schedule)
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущего execution.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling по cron-расписанию.
func (w *Worker) pollLoop(ctx context.Context, schedule cron.Schedule) {
	// Первый poll сразу при старте (подхватываем executions, созданные пока были выключены)
	w.poll(ctx)

	for {
		timer := time.NewTimer(time.Until(schedule.Next(time.Now())))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	executions, err := w.pending.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(executions) == 0 {
		return
	}

	w.logger.Debug("poll found pending executions", "count", len(executions))

	for i := range executions {
		if ctx.Err() != nil {
			return
		}

		id := executions[i].ID
		if err := w.processExecution(ctx, id); err != nil {
			if errors.Is(err, ErrExecutionNotPending) || errors.Is(err, ErrExecutionNotFound) {
				w.logger.Debug("execution skipped", "execution_id", id, "reason", err)
				continue
			}
			w.logger.Error("failed to process execution from poll",
				"execution_id", id,
				"error", err,
			)
		}
	}
}
