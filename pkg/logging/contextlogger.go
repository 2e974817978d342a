package logging

import (
	"context"
	"fmt"

	"github.com/diillson/calorie-api-go/pkg/config"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ContextLogger estende o zap.Logger com métodos que utilizam contexto
type ContextLogger struct {
	*zap.Logger
}

// NewLogger cria o logger da aplicação a partir da configuração de logging
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("nível de log inválido %q: %w", cfg.Level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
	}
	if cfg.OutputPath != "" {
		zcfg.OutputPaths = []string{cfg.OutputPath}
	}
	if cfg.ErrorPath != "" {
		zcfg.ErrorOutputPaths = []string{cfg.ErrorPath}
	}

	return zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// NewContextLogger envolve um zap.Logger existente
func NewContextLogger(logger *zap.Logger) *ContextLogger {
	return &ContextLogger{Logger: logger}
}

// With adiciona campos ao logger
func (l *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{Logger: l.Logger.With(fields...)}
}

// InfoCtx registra mensagens no nível info com contexto de rastreamento
func (l *ContextLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.Info(msg, l.addTraceFields(ctx, fields)...)
}

// ErrorCtx registra mensagens no nível error com contexto de rastreamento
func (l *ContextLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.Error(msg, l.addTraceFields(ctx, fields)...)
}

// WarnCtx registra mensagens no nível warn com contexto de rastreamento
func (l *ContextLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.Warn(msg, l.addTraceFields(ctx, fields)...)
}

// DebugCtx registra mensagens no nível debug com contexto de rastreamento
func (l *ContextLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.Debug(msg, l.addTraceFields(ctx, fields)...)
}

func (l *ContextLogger) addTraceFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		fields = append(fields,
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return fields
}
