package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения label outcome для AttemptsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Метрики worker.
var (
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyexec_attempts_total",
		Help: "Total remote function invocation attempts by outcome",
	}, []string{"outcome"})

	AttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studyexec_attempt_duration_seconds",
		Help:    "Duration of a single remote function invocation attempt",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s .. ~256s
	})

	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyexec_executions_total",
		Help: "Total finished executions by terminal status",
	}, []string{"status"})

	ExecutionsInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyexec_executions_in_progress",
		Help: "Number of executions currently running in this process",
	})
)

// Значения label result для MessagesTotal.
const (
	MessageAck     = "ack"
	MessageRequeue = "requeue"
	MessageReject  = "reject"
)

// Метрики RabbitMQ.
var (
	MQConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyexec_rabbitmq_connected",
		Help: "1 if the RabbitMQ connection is open",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyexec_messages_total",
		Help: "Consumed messages by queue and settlement (ack, requeue, reject)",
	}, []string{"queue", "result"})
)

// AttemptOutcomeLabel возвращает значение label outcome.
func AttemptOutcomeLabel(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
