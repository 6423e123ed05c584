// studyexec-worker — выполняет executions.
//
// Worker:
//   - Получает ID executions из RabbitMQ и через polling БД
//   - Вызывает удалённую функцию (AWS Lambda или HTTP-шлюз) с повторными попытками
//   - Пишет журнал попыток и финальный результат в PostgreSQL
//   - Публикует execution.completed
//
// Одновременно выполняется одно execution; масштабирование — числом процессов.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/studyexec/internal/config"
	"github.com/shaiso/studyexec/internal/invoke"
	"github.com/shaiso/studyexec/internal/mq"
	"github.com/shaiso/studyexec/internal/repo"
	"github.com/shaiso/studyexec/internal/telemetry"
	"github.com/shaiso/studyexec/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting studyexec-worker",
		"invoker", cfg.Invoker,
		"function", cfg.FunctionName,
	)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	executionRepo := repo.NewExecutionRepo(pool)

	// Транспорт удалённой функции
	invoker, err := newInvoker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create invoker", "error", err)
		os.Exit(1)
	}

	caller := invoke.NewCaller(invoke.CallerConfig{
		Invoker:  invoker,
		Function: cfg.FunctionName,
		Wire:     invoke.Wire{InputField: cfg.PayloadField, ResultField: cfg.ResultField},
		Logger:   telemetry.WithComponent(logger, "invoke"),
	})

	// RabbitMQ
	var publisher worker.CompletionPublisher
	mqConn, err := mq.Connect(cfg.RabbitMQURL, "studyexec-worker", logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")
		publisher = mq.NewPublisher(mqConn, logger)
	}

	w := worker.New(worker.Config{
		Tracker:      executionRepo,
		Pending:      executionRepo,
		Caller:       caller,
		Publisher:    publisher,
		Conn:         mqConn,
		PollSchedule: cfg.PollSchedule,
		BatchSize:    cfg.PollBatchSize,
		Logger:       logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok rabbitmq=%s", rabbitState(mqConn))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":" + cfg.WorkerPort,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Текущее execution доводится до конца
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("studyexec-worker stopped")
}

// newInvoker создаёт транспорт по cfg.Invoker.
func newInvoker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (invoke.Invoker, error) {
	switch cfg.Invoker {
	case config.InvokerHTTP:
		logger.Info("using HTTP function gateway", "gateway_url", cfg.GatewayURL)
		return invoke.NewHTTPInvoker(invoke.HTTPConfig{
			GatewayURL:     cfg.GatewayURL,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
		}), nil
	default:
		client, err := invoke.NewLambdaClient(ctx, invoke.LambdaConfig{
			Region:         cfg.AWSRegion,
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("using AWS Lambda", "region", client.Options().Region)
		return invoke.NewLambdaInvoker(client), nil
	}
}

// rabbitState описывает состояние RabbitMQ для /healthz.
// Без брокера worker работает через polling, поэтому healthz остаётся 200.
func rabbitState(conn *mq.Connection) string {
	switch {
	case conn == nil:
		return "disabled"
	case conn.IsConnected():
		return "connected"
	default:
		return "disconnected"
	}
}
