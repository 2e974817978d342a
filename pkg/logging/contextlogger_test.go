package logging

import (
	"context"
	"testing"

	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Run("valid level", func(t *testing.T) {
		logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console", OutputPath: "stdout"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "loud"})
		assert.Error(t, err)
	})
}

func TestContextLogger_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewContextLogger(zap.New(core))

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoCtx(ctx, "recalculo concluído")
	logger.InfoCtx(context.Background(), "sem rastreamento")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, traceID.String(), entries[0].ContextMap()["trace_id"])
	assert.Equal(t, spanID.String(), entries[0].ContextMap()["span_id"])
	assert.NotContains(t, entries[1].ContextMap(), "trace_id")
}

func TestContextLogger_DebugCtx(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewContextLogger(zap.New(core)).With(zap.String("component", "records"))

	logger.DebugCtx(context.Background(), "calorias estimadas", zap.Int("calories", 250))

	entries := logs.FilterLevelExact(zapcore.DebugLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "calorias estimadas", entries[0].Message)
	assert.Equal(t, int64(250), entries[0].ContextMap()["calories"])
	assert.Equal(t, "records", entries[0].ContextMap()["component"])
}
