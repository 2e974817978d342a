package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/diillson/calorie-api-go/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitMetrics recebe as requisições rejeitadas
type RateLimitMetrics interface {
	RateLimitExceeded(path, method, limitType string)
}

// RateLimitMiddleware gerencia rate limiting
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	metrics RateLimitMetrics
	logger  *zap.Logger
}

// NewRateLimitMiddleware cria um novo middleware de rate limiting; metrics pode ser nil
func NewRateLimitMiddleware(limiter ratelimit.Limiter, metrics RateLimitMetrics, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// IPRateLimit limita as requisições de cada IP em uma rota nomeada
func (m *RateLimitMiddleware) IPRateLimit(name string, limit int, period time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		result, err := m.limiter.Allow(c.Request.Context(), ratelimit.LimitConfig{
			Key:    "ratelimit:" + name + ":" + clientIP,
			Limit:  limit,
			Period: period,
		})
		if err != nil {
			m.logger.Error("erro ao verificar rate limit", zap.String("route", name), zap.Error(err))
			c.Next() // em caso de erro, permite a requisição
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

		if !result.Allowed {
			if m.metrics != nil {
				path := c.FullPath()
				if path == "" {
					path = c.Request.URL.Path
				}
				m.metrics.RateLimitExceeded(path, c.Request.Method, name)
			}
			m.logger.Warn("Limite de requisições excedido",
				zap.String("route", name),
				zap.String("ip", clientIP))

			retryAfter := int(result.ResetAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"details": gin.H{"retryAfter": retryAfter},
			})
			return
		}

		c.Next()
	}
}
