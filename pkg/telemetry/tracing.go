package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/diillson/calorie-api-go/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerProvider é um provedor de rastreamento com recursos de limpeza
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	conn     *grpc.ClientConn
	logger   *zap.Logger
}

// NewTracerProvider inicializa o OpenTelemetry exportando via OTLP/gRPC
func NewTracerProvider(ctx context.Context, cfg config.TracingConfig, logger *zap.Logger) (*TracerProvider, error) {
	conn, err := grpc.NewClient(cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("environment", getEnvironment()),
		),
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	ratio := cfg.SamplingRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tp)

	logger.Info("Tracing inicializado",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("samplingRatio", ratio))

	return &TracerProvider{
		provider: tp,
		conn:     conn,
		logger:   logger,
	}, nil
}

// Shutdown encerra o tracer provider de forma limpa
func (tp *TracerProvider) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := tp.provider.Shutdown(ctx); err != nil {
		tp.logger.Error("falha ao encerrar tracer provider", zap.Error(err))
	}
	if err := tp.conn.Close(); err != nil {
		tp.logger.Warn("falha ao fechar conexão com o coletor", zap.Error(err))
	}
}

// Tracer retorna um tracer nomeado
func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	return tp.provider.Tracer(name)
}

// getEnvironment retorna o ambiente atual (dev, staging, prod)
func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "development"
	}
	return env
}
