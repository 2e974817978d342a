package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RedisCache implementa Cache usando Redis. As chaves recebem o prefixo
// configurado.
type RedisCache struct {
	client   *redis.Client
	prefix   string
	logger   *zap.Logger
	tracer   trace.Tracer
	observer Observer
}

// NewRedisCache cria o cache sobre um cliente já conectado; observer pode ser nil
func NewRedisCache(client *redis.Client, prefix string, observer Observer, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client:   client,
		prefix:   prefix,
		logger:   logger,
		tracer:   otel.GetTracerProvider().Tracer("calorie-api.cache.redis"),
		observer: observer,
	}
}

func spanError(span trace.Span, status string, err error) {
	span.SetStatus(codes.Error, status)
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
}

// Set armazena um valor no cache
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "RedisCache.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.expiration_ms", expiration.Milliseconds()),
		),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		spanError(span, "serialization failure", err)
		return err
	}
	span.SetAttributes(attribute.Int("cache.data_size_bytes", len(data)))

	if err := c.client.Set(ctx, c.prefix+key, data, expiration).Err(); err != nil {
		c.logger.Error("falha ao armazenar no Redis", zap.String("key", key), zap.Error(err))
		spanError(span, "redis error", err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Get recupera um valor do cache
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "RedisCache.Get",
		trace.WithAttributes(attribute.String("cache.key", key)),
	)
	defer span.End()

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe(c.observer, "redis", false)
			span.SetAttributes(attribute.Bool("cache.hit", false))
			span.SetStatus(codes.Ok, "cache miss")
			return false, nil
		}
		c.logger.Error("falha ao recuperar do cache", zap.String("key", key), zap.Error(err))
		spanError(span, "redis error", err)
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Error("falha ao deserializar do cache", zap.String("key", key), zap.Error(err))
		spanError(span, "deserialization failure", err)
		return false, err
	}

	observe(c.observer, "redis", true)
	span.SetAttributes(attribute.Bool("cache.hit", true))
	span.SetStatus(codes.Ok, "cache hit")
	return true, nil
}

// Ping verifica se o Redis está acessível
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close fecha a conexão com o Redis
func (c *RedisCache) Close() error {
	return c.client.Close()
}
