package middleware

import (
	"strconv"
	"time"

	"github.com/diillson/calorie-api-go/internal/infra/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsMiddleware fornece middleware para coletar métricas
type MetricsMiddleware struct {
	metrics *metrics.APIMetrics
	logger  *zap.Logger
}

// NewMetricsMiddleware cria um novo middleware de métricas
func NewMetricsMiddleware(metrics *metrics.APIMetrics, logger *zap.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: metrics,
		logger:  logger,
	}
}

// MetricsHandler expõe o registry no endpoint do Prometheus
type MetricsHandler struct {
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewMetricsHandler cria um novo handler de métricas
func NewMetricsHandler(gatherer prometheus.Gatherer, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		gatherer: gatherer,
		logger:   logger,
	}
}

// RegisterEndpoint registra o endpoint para expor métricas do Prometheus
func (h *MetricsHandler) RegisterEndpoint(router gin.IRoutes, path string) {
	router.GET(path, gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	h.logger.Info("Endpoint de métricas Prometheus registrado", zap.String("path", path))
}

// Middleware registra métricas para cada requisição
func (m *MetricsMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		m.metrics.RequestStarted(path, method)

		var requestSize int
		if c.Request.ContentLength > 0 {
			requestSize = int(c.Request.ContentLength)
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		code := c.Writer.Status()
		responseSize := c.Writer.Size()
		if responseSize < 0 {
			responseSize = 0
		}

		m.metrics.RequestCompleted(path, method, strconv.Itoa(code), duration, requestSize, responseSize)

		if code >= 400 {
			errorType := "client_error"
			if code >= 500 {
				errorType = "server_error"
			}
			m.metrics.RequestError(path, method, errorType)
		}
	}
}
