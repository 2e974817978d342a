package nutrition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/diillson/calorie-api-go/pkg/cache"
	"go.uber.org/zap"
)

// Estimator calcula as calorias de um texto
type Estimator interface {
	Estimate(ctx context.Context, text string) (int, error)
}

// Cached guarda as estimativas bem-sucedidas por texto normalizado.
// Falhas do cache não impedem a consulta ao estimador.
type Cached struct {
	next   Estimator
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached envolve next com o cache informado
func NewCached(next Estimator, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger}
}

// Estimate consulta o cache antes do estimador
func (c *Cached) Estimate(ctx context.Context, text string) (int, error) {
	key := cacheKey(text)

	var calories int
	found, err := c.cache.Get(ctx, key, &calories)
	if err != nil {
		c.logger.Warn("falha ao ler estimativa do cache", zap.Error(err))
	}
	if found && err == nil {
		return calories, nil
	}

	calories, err = c.next.Estimate(ctx, text)
	if err != nil {
		return 0, err
	}

	if err := c.cache.Set(ctx, key, calories, c.ttl); err != nil {
		c.logger.Warn("falha ao gravar estimativa no cache", zap.Error(err))
	}
	return calories, nil
}

// Ping expõe o estado do cache para o health check
func (c *Cached) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

func cacheKey(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return "estimate:" + hex.EncodeToString(sum[:])
}
