package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SecurityMiddleware implementa proteções de segurança
type SecurityMiddleware struct {
	logger *zap.Logger
	tls    bool
}

// NewSecurityMiddleware cria uma nova instância do middleware de segurança.
// HSTS só é enviado quando o servidor roda com TLS.
func NewSecurityMiddleware(logger *zap.Logger, tls bool) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger: logger,
		tls:    tls,
	}
}

// Headers adiciona cabeçalhos de segurança
func (m *SecurityMiddleware) Headers() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")

		if m.tls {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// CORS configura Cross-Origin Resource Sharing. A API só aceita bearer
// tokens, então não há credenciais de cookie a liberar.
func (m *SecurityMiddleware) CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Expose-Headers", "X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
