package middleware

import (
	"net/http"
	"time"

	"github.com/diillson/calorie-api-go/internal/infra/metrics"
	"github.com/diillson/calorie-api-go/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options reúne as dependências do conjunto de middlewares
type Options struct {
	Validator   TokenValidator
	Metrics     *metrics.APIMetrics // nil desliga a coleta
	Limiter     ratelimit.Limiter   // nil desliga o rate limit
	ServiceName string
	TLS         bool
}

// Middleware contém todos os middlewares da aplicação
type Middleware struct {
	logger              *zap.Logger
	authMiddleware      *AuthMiddleware
	recoveryMiddleware  *RecoveryMiddleware
	securityMiddleware  *SecurityMiddleware
	tracingMiddleware   *TracingMiddleware
	metricsMiddleware   *MetricsMiddleware
	rateLimitMiddleware *RateLimitMiddleware
}

// NewMiddleware cria um novo conjunto de middlewares
func NewMiddleware(logger *zap.Logger, opts Options) *Middleware {
	m := &Middleware{
		logger:             logger,
		authMiddleware:     NewAuthMiddleware(opts.Validator, logger),
		recoveryMiddleware: NewRecoveryMiddleware(logger),
		securityMiddleware: NewSecurityMiddleware(logger, opts.TLS),
		tracingMiddleware:  NewTracingMiddleware(logger, opts.ServiceName),
	}

	if opts.Metrics != nil {
		m.metricsMiddleware = NewMetricsMiddleware(opts.Metrics, logger)
	}

	if opts.Limiter != nil {
		// evita um RateLimitMetrics não-nil envolvendo um ponteiro nil
		var rlMetrics RateLimitMetrics
		if opts.Metrics != nil {
			rlMetrics = opts.Metrics
		}
		m.rateLimitMiddleware = NewRateLimitMiddleware(opts.Limiter, rlMetrics, logger)
	}

	return m
}

// Metrics retorna o middleware de métricas
func (m *Middleware) Metrics() gin.HandlerFunc {
	if m.metricsMiddleware != nil {
		return m.metricsMiddleware.Middleware()
	}
	return passThrough
}

// RateLimit limita por IP as requisições de uma rota nomeada
func (m *Middleware) RateLimit(name string, limit int, period time.Duration) gin.HandlerFunc {
	if m.rateLimitMiddleware != nil {
		return m.rateLimitMiddleware.IPRateLimit(name, limit, period)
	}
	return passThrough
}

// Authenticate middleware para autenticação de usuários
func (m *Middleware) Authenticate(c *gin.Context) {
	m.authMiddleware.Authenticate(c)
}

// RequirePrivileged middleware para rotas de admin e moderador
func (m *Middleware) RequirePrivileged(c *gin.Context) {
	m.authMiddleware.RequirePrivileged(c)
}

// Recovery middleware para recuperação de pânicos
func (m *Middleware) Recovery() gin.HandlerFunc {
	return m.recoveryMiddleware.Recovery()
}

// IgnoreFavicon é um middleware que ignora requisições para /favicon.ico
func (m *Middleware) IgnoreFavicon() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/favicon.ico" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Logger middleware para logging de requisições
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("path", path),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if identity, ok := IdentityFrom(c); ok {
			fields = append(fields, zap.String("caller", identity.Email))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			m.logger.Error("request completed", fields...)
			return
		}
		m.logger.Info("request completed", fields...)
	}
}

// SecurityHeaders middleware para adicionar cabeçalhos de segurança
func (m *Middleware) SecurityHeaders() gin.HandlerFunc {
	return m.securityMiddleware.Headers()
}

// CORS middleware para configurar CORS
func (m *Middleware) CORS() gin.HandlerFunc {
	return m.securityMiddleware.CORS()
}

// Tracing retorna o middleware de tracing
func (m *Middleware) Tracing() gin.HandlerFunc {
	return m.tracingMiddleware.Middleware()
}

func passThrough(c *gin.Context) {
	c.Next()
}
