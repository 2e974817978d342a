package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// incrScript incrementa o contador e fixa a expiração no fim da janela
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIREAT', KEYS[1], ARGV[1])
end
return count
`)

// RedisLimiter implementa rate limiting usando Redis
type RedisLimiter struct {
	client *redis.Client
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRedisLimiter cria um novo limitador baseado em Redis
func NewRedisLimiter(client *redis.Client, logger *zap.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		logger: logger,
		tracer: otel.GetTracerProvider().Tracer("calorie-api.ratelimit"),
	}
}

// Allow verifica se a requisição é permitida dentro do limite de taxa.
// Em caso de erro do Redis a requisição é permitida e o erro devolvido.
func (r *RedisLimiter) Allow(ctx context.Context, config LimitConfig) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "RedisLimiter.Allow",
		trace.WithAttributes(
			attribute.String("ratelimit.key", config.Key),
			attribute.Int("ratelimit.limit", config.Limit),
			attribute.Int64("ratelimit.period_ms", config.Period.Milliseconds()),
		),
	)
	defer span.End()

	if err := validate(config); err != nil {
		span.SetStatus(codes.Error, "invalid config")
		return Result{Allowed: true}, err
	}

	end, resetAfter := window(time.Now(), config.Period)
	key := fmt.Sprintf("ratelimit:%s", config.Key)

	count, err := incrScript.Run(ctx, r.client, []string{key}, end.Unix()).Int()
	if err != nil {
		r.logger.Error("erro ao executar script de rate limit", zap.String("key", config.Key), zap.Error(err))
		span.SetStatus(codes.Error, "redis script error")
		span.SetAttributes(attribute.String("error.message", err.Error()))
		return Result{Allowed: true, Limit: config.Limit, Remaining: config.Limit, ResetAfter: resetAfter}, err
	}

	result := Result{
		Allowed:    count <= config.Limit,
		Limit:      config.Limit,
		Remaining:  remaining(config.Limit, count),
		ResetAfter: resetAfter,
	}

	span.SetAttributes(
		attribute.Int("ratelimit.count", count),
		attribute.Bool("ratelimit.allowed", result.Allowed),
	)
	if !result.Allowed {
		span.SetStatus(codes.Error, "rate limit exceeded")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result, nil
}

// Ping verifica a conexão com o Redis
func (r *RedisLimiter) Ping(ctx context.Context) error {
	if r.client == nil {
		return errors.New("cliente redis não configurado")
	}
	return r.client.Ping(ctx).Err()
}

// Close fecha a conexão com o Redis
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
