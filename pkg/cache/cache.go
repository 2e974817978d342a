// Package cache guarda valores com expiração em memória ou no Redis.
package cache

import (
	"context"
	"time"
)

// Cache define as operações usadas pelos consumidores do cache
type Cache interface {
	// Set armazena um valor com tempo de expiração
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get recupera um valor; found é false em cache miss
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// Ping verifica se o cache está acessível
	Ping(ctx context.Context) error
}

// Observer recebe o resultado de cada leitura
type Observer interface {
	CacheLookup(backend, result string)
}

func observe(o Observer, backend string, hit bool) {
	if o == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	o.CacheLookup(backend, result)
}
