package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/studyexec/internal/domain"
)

// CreateExecutionRequest — запрос на создание execution.
type CreateExecutionRequest struct {
	Input      string `json:"input"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID         uuid.UUID     `json:"id"`
	Input      string        `json:"input"`
	MaxRetries int           `json:"max_retries"`
	Status     string        `json:"status"`
	ResultKey  string        `json:"result_key,omitempty"`
	Attempts   int           `json:"attempts"`
	Logs       []LogResponse `json:"logs,omitempty"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	DurationMs *int64        `json:"duration_ms,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// LogResponse — запись журнала попыток.
// Пустое сообщение означает успешную попытку.
type LogResponse struct {
	Attempt   int       `json:"attempt"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:         e.ID,
		Input:      e.Input,
		MaxRetries: e.MaxRetries,
		Status:     string(e.Status),
		ResultKey:  e.ResultKey,
		Attempts:   e.Attempts(),
		StartedAt:  e.StartedAt,
		FinishedAt: e.FinishedAt,
		CreatedAt:  e.CreatedAt,
	}

	if d, ok := e.Duration(); ok {
		ms := d.Milliseconds()
		resp.DurationMs = &ms
	}

	if len(e.Logs) > 0 {
		resp.Logs = LogsFromDomain(e.Logs)
	}

	return resp
}

// LogsFromDomain конвертирует журнал, нумеруя попытки с 1.
func LogsFromDomain(logs []domain.LogEntry) []LogResponse {
	result := make([]LogResponse, len(logs))
	for i, l := range logs {
		result[i] = LogResponse{
			Attempt:   i + 1,
			Message:   l.Message,
			CreatedAt: l.CreatedAt,
		}
	}
	return result
}
