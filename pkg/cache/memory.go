package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryCache implementa Cache usando armazenamento em memória
type MemoryCache struct {
	cache    *cache.Cache
	logger   *zap.Logger
	observer Observer
}

// NewMemoryCache cria uma nova instância de MemoryCache; observer pode ser nil
func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration, observer Observer, logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		cache:    cache.New(defaultExpiration, cleanupInterval),
		logger:   logger,
		observer: observer,
	}
}

// Set armazena um valor no cache
func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	c.cache.Set(key, value, expiration)
	return nil
}

// Get recupera um valor do cache
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	value, found := c.cache.Get(key)
	observe(c.observer, "memory", found)
	if !found {
		return false, nil
	}

	switch dest := dest.(type) {
	case *string:
		if str, ok := value.(string); ok {
			*dest = str
			return true, nil
		}
	case *int:
		if i, ok := value.(int); ok {
			*dest = i
			return true, nil
		}
	}

	// estruturas passam por JSON
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("falha ao serializar do cache", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Error("falha ao deserializar para o destino", zap.String("key", key), zap.Error(err))
		return false, err
	}

	return true, nil
}

// Ping verifica se o cache está funcionando
func (c *MemoryCache) Ping(context.Context) error {
	return nil
}
