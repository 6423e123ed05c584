package invoke

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// LambdaAPI — часть клиента AWS Lambda, нужная LambdaInvoker.
// *lambda.Client удовлетворяет этому интерфейсу.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker вызывает AWS Lambda синхронно (InvocationType RequestResponse).
//
// Ошибки функции (FunctionError) приходят в payload с полем errorMessage
// и разбираются Wire.Interpret, поэтому здесь не считаются ошибкой транспорта.
type LambdaInvoker struct {
	api LambdaAPI
}

// NewLambdaInvoker создаёт LambdaInvoker поверх готового клиента.
func NewLambdaInvoker(api LambdaAPI) *LambdaInvoker {
	return &LambdaInvoker{api: api}
}

// LambdaConfig — параметры клиента AWS Lambda.
type LambdaConfig struct {
	Region         string // пусто — из окружения / shared config
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewLambdaClient создаёт клиент Lambda с таймаутами соединения и чтения.
//
// Встроенные retry SDK отключены: каждая попытка — ровно один запрос.
func NewLambdaClient(ctx context.Context, cfg LambdaConfig) (*lambda.Client, error) {
	httpClient := awshttp.NewBuildableClient().
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = cfg.ConnectTimeout
		}).
		WithTransportOptions(func(t *http.Transport) {
			t.TLSHandshakeTimeout = cfg.ConnectTimeout
			t.ResponseHeaderTimeout = cfg.ReadTimeout
		}).
		WithTimeout(cfg.ConnectTimeout + cfg.ReadTimeout)

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return lambda.NewFromConfig(awsCfg), nil
}

// Invoke вызывает функцию и возвращает её payload.
func (l *LambdaInvoker) Invoke(ctx context.Context, function string, payload []byte) ([]byte, error) {
	out, err := l.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return out.Payload, nil
}
