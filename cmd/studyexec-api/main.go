package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shaiso/studyexec/internal/api"
	"github.com/shaiso/studyexec/internal/config"
	"github.com/shaiso/studyexec/internal/mq"
	"github.com/shaiso/studyexec/internal/repo"
	"github.com/shaiso/studyexec/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyexec_api_http_requests_total",
		Help: "Total HTTP requests handled by studyexec_api",
	})
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting studyexec-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// RabbitMQ опционален: без него executions подхватит polling воркера
	var publisher api.PendingPublisher
	mqConn, err := mq.Connect(cfg.RabbitMQURL, "studyexec-api", logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, executions will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		publisher = mq.NewPublisher(mqConn, logger)
	}

	handler := api.NewHandler(api.Config{
		Executions:        repo.NewExecutionRepo(pool),
		Publisher:         publisher,
		DefaultMaxRetries: cfg.DefaultMaxRetries,
		Logger:            logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s rabbitmq=%s", time.Since(startTime), rabbitState(mqConn))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

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
