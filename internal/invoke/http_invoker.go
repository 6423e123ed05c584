package invoke

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize ограничивает размер читаемого ответа функции.
const maxResponseSize = 10 << 20

// HTTPInvoker вызывает функции через HTTP-шлюз (OpenFaaS-совместимый).
//
// Запрос: POST {GatewayURL}/function/{name} с JSON payload.
// Ответ 2xx возвращается как есть; код >= 400 — ErrInvokeFailed.
type HTTPInvoker struct {
	gatewayURL string
	client     *http.Client
}

// HTTPConfig — конфигурация HTTPInvoker.
type HTTPConfig struct {
	GatewayURL     string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Client — опционально; если nil, создаётся клиент с таймаутами выше.
	Client *http.Client
}

// NewHTTPInvoker создаёт HTTPInvoker.
func NewHTTPInvoker(cfg HTTPConfig) *HTTPInvoker {
	client := cfg.Client
	if client == nil {
		client = newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	}

	return &HTTPInvoker{
		gatewayURL: strings.TrimRight(cfg.GatewayURL, "/"),
		client:     client,
	}
}

// newHTTPClient создаёт клиент с раздельными таймаутами соединения и чтения.
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = readTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   connectTimeout + readTimeout,
	}
}

// Invoke выполняет синхронный вызов функции.
func (h *HTTPInvoker) Invoke(ctx context.Context, function string, payload []byte) ([]byte, error) {
	endpoint := h.gatewayURL + "/function/" + url.PathEscape(function)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrInvokeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classifyTransportError(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrInvokeFailed, resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
