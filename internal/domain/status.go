package domain

import "strings"

// ExecutionStatus — статус execution.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Переходы монотонные: RUNNING выставляется один раз перед первой
// попыткой, финальный статус — один раз после последней.
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан и ждёт worker.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — worker выполняет попытки.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — одна из попыток успешна, ResultKey сохранён.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — попытки исчерпаны без успеха.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case ExecutionStatusPending:
		return next == ExecutionStatusRunning
	case ExecutionStatusRunning:
		return next == ExecutionStatusSucceeded || next == ExecutionStatusFailed
	default:
		return false
	}
}

// TerminalStatus возвращает финальный статус для флага успеха.
func TerminalStatus(success bool) ExecutionStatus {
	if success {
		return ExecutionStatusSucceeded
	}
	return ExecutionStatusFailed
}

// String возвращает строковое представление ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}

// ParseExecutionStatus парсит строку в ExecutionStatus без учёта регистра.
// Второе значение false, если статус неизвестен.
func ParseExecutionStatus(s string) (ExecutionStatus, bool) {
	status := ExecutionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusSucceeded, ExecutionStatusFailed:
		return status, true
	default:
		return "", false
	}
}
