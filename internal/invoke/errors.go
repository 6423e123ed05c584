package invoke

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Ошибки вызова.
var (
	// ErrTransportTimeout — истёк таймаут соединения или чтения ответа.
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrInvokeFailed — транспорт вернул ошибку (не таймаут).
	ErrInvokeFailed = errors.New("invoke failed")

	// ErrMalformedResponse — ответ функции не соответствует формату.
	ErrMalformedResponse = errors.New("malformed response")
)

// classifyTransportError помечает таймауты как ErrTransportTimeout.
// Остальные ошибки возвращаются как есть.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTransportTimeout, err)
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
