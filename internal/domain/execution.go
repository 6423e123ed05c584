package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — одно выполнение исследования (study execution).
//
// Execution создаётся через API со статусом PENDING, после чего
// Worker вызывает удалённую функцию с Input, пока не получит успешный
// ответ или не исчерпает MaxRetries попыток.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// Input — строка, передаваемая в удалённую функцию (URL или текст).
	Input string `json:"input"`

	// MaxRetries — максимальное количество попыток вызова.
	// Не меняется после создания.
	MaxRetries int `json:"max_retries"`

	// Status — текущий статус execution.
	Status ExecutionStatus `json:"status"`

	// ResultKey — ключ сохранённого результата (например, S3 key).
	// Заполняется только при SUCCEEDED.
	ResultKey string `json:"result_key,omitempty"`

	// Logs — журнал попыток в порядке их выполнения.
	Logs []LogEntry `json:"logs,omitempty"`

	// AttemptCount — число записей журнала, когда сам журнал не загружен.
	AttemptCount int `json:"-"`

	// StartedAt — время перевода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время сохранения финального результата.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// LogEntry — запись журнала по одной попытке.
//
// Message пустой для успешной попытки.
type LogEntry struct {
	Seq       int64     `json:"seq"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewExecution создаёт execution в статусе PENDING.
func NewExecution(input string, maxRetries int) *Execution {
	return &Execution{
		ID:         uuid.New(),
		Input:      input,
		MaxRetries: maxRetries,
		Status:     ExecutionStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// Attempts возвращает количество сделанных попыток.
func (e *Execution) Attempts() int {
	return max(len(e.Logs), e.AttemptCount)
}

// Duration возвращает продолжительность выполнения.
// ok == false, пока execution не завершён.
func (e *Execution) Duration() (d time.Duration, ok bool) {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0, false
	}
	return e.FinishedAt.Sub(*e.StartedAt), true
}
