package invoke

import (
	"context"
	"log/slog"

	"github.com/shaiso/studyexec/internal/domain"
)

// Invoker — транспорт вызова удалённой функции.
//
// Invoke блокируется до получения ответа или истечения таймаута.
// Таймауты возвращаются как ErrTransportTimeout.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload []byte) ([]byte, error)
}

// Caller выполняет одну попытку вызова функции.
//
// Caller не хранит состояния между вызовами и может переиспользоваться
// для любых executions.
type Caller struct {
	invoker  Invoker
	function string
	wire     Wire
	logger   *slog.Logger
}

// CallerConfig — конфигурация Caller.
type CallerConfig struct {
	Invoker  Invoker
	Function string
	Wire     Wire // нулевое значение — DefaultWire
	Logger   *slog.Logger
}

// NewCaller создаёт Caller.
func NewCaller(cfg CallerConfig) *Caller {
	wire := cfg.Wire
	if wire.InputField == "" {
		wire.InputField = DefaultWire.InputField
	}
	if wire.ResultField == "" {
		wire.ResultField = DefaultWire.ResultField
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Caller{
		invoker:  cfg.Invoker,
		function: cfg.Function,
		wire:     wire,
		logger:   logger,
	}
}

// Call вызывает функцию с input и возвращает результат попытки.
func (c *Caller) Call(ctx context.Context, input string) domain.AttemptOutcome {
	raw, err := c.invoker.Invoke(ctx, c.function, c.wire.EncodeRequest(input))
	if err != nil {
		c.logger.Debug("function invoke failed",
			"function", c.function,
			"error", err,
		)
		return failure(err)
	}
	return c.wire.Interpret(raw)
}
