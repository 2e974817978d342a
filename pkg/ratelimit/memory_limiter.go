package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryLimiter mantém os contadores em memória, para instâncias únicas
type MemoryLimiter struct {
	mu     sync.Mutex
	store  *gocache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewMemoryLimiter cria um limitador em memória
func NewMemoryLimiter(logger *zap.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		store:  gocache.New(time.Minute, 5*time.Minute),
		logger: logger,
		now:    time.Now,
	}
}

// Allow conta a requisição na janela corrente da chave
func (m *MemoryLimiter) Allow(_ context.Context, config LimitConfig) (Result, error) {
	if err := validate(config); err != nil {
		return Result{Allowed: true}, err
	}

	end, resetAfter := window(m.now(), config.Period)
	key := config.Key + ":" + end.Format(time.RFC3339)

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 1
	if err := m.store.Add(key, count, resetAfter); err != nil {
		// chave já existe nesta janela
		n, err := m.store.IncrementInt(key, 1)
		if err != nil {
			m.logger.Warn("falha ao incrementar contador de rate limit", zap.String("key", config.Key), zap.Error(err))
			return Result{Allowed: true, Limit: config.Limit, Remaining: config.Limit, ResetAfter: resetAfter}, err
		}
		count = n
	}

	return Result{
		Allowed:    count <= config.Limit,
		Limit:      config.Limit,
		Remaining:  remaining(config.Limit, count),
		ResetAfter: resetAfter,
	}, nil
}

// Ping sempre funciona para o backend em memória
func (m *MemoryLimiter) Ping(context.Context) error {
	return nil
}
