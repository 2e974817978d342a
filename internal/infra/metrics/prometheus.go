package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// APIMetrics gerencia as métricas HTTP e de domínio da API
type APIMetrics struct {
	requestCounter     *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestSize        *prometheus.SummaryVec
	responseSize       *prometheus.SummaryVec
	activeRequests     *prometheus.GaugeVec
	errorsTotal        *prometheus.CounterVec
	circuitBreakerOpen *prometheus.GaugeVec
	rateLimited        *prometheus.CounterVec

	recordsCreated *prometheus.CounterVec
	recomputes     *prometheus.CounterVec
	recomputeSize  prometheus.Histogram
	estimatorCalls *prometheus.CounterVec
	estimateCache  *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
}

// NewRegistry cria um registro com os coletores de processo e do runtime Go
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// NewAPIMetrics cria as métricas e as registra em reg
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	factory := promauto.With(reg)

	return &APIMetrics{
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_requests_total",
				Help: "Total number of HTTP requests by path, method, and status code",
			},
			[]string{"path", "method", "status"},
		),

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "calorie_api_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),

		requestSize: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "calorie_api_request_size_bytes",
				Help:       "HTTP request size in bytes",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"path", "method"},
		),

		responseSize: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "calorie_api_response_size_bytes",
				Help:       "HTTP response size in bytes",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"path", "method"},
		),

		activeRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "calorie_api_active_requests",
				Help: "Number of in-flight requests being processed",
			},
			[]string{"path", "method"},
		),

		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"path", "method", "error_type"},
		),

		circuitBreakerOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "calorie_api_circuit_breaker_open",
				Help: "Indicates if a circuit breaker is open (1) or closed (0)",
			},
			[]string{"service"},
		),

		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_rate_limited_requests_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"path", "method", "limit_type"},
		),

		recordsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_records_created_total",
				Help: "Total number of meal records created, by calorie source",
			},
			[]string{"source"},
		),

		recomputes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_recomputes_total",
				Help: "Total number of daily total recomputations by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),

		recomputeSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "calorie_api_recompute_changed_records",
				Help:    "Number of records whose flag changed in a recomputation",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
		),

		estimatorCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_estimator_calls_total",
				Help: "Total number of calorie estimator calls by outcome",
			},
			[]string{"outcome"},
		),

		estimateCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_estimate_cache_lookups_total",
				Help: "Total number of calorie estimate cache lookups by backend and result",
			},
			[]string{"backend", "result"},
		),

		loginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "calorie_api_login_attempts_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RequestStarted registra o início de uma requisição
func (m *APIMetrics) RequestStarted(path, method string) {
	m.activeRequests.WithLabelValues(path, method).Inc()
}

// RequestCompleted registra a conclusão de uma requisição
func (m *APIMetrics) RequestCompleted(path, method, status string, duration time.Duration, requestSize, responseSize int) {
	m.requestCounter.WithLabelValues(path, method, status).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
	m.requestSize.WithLabelValues(path, method).Observe(float64(requestSize))
	m.responseSize.WithLabelValues(path, method).Observe(float64(responseSize))
	m.activeRequests.WithLabelValues(path, method).Dec()
}

// RequestError registra um erro de requisição
func (m *APIMetrics) RequestError(path, method, errorType string) {
	m.errorsTotal.WithLabelValues(path, method, errorType).Inc()
}

// CircuitBreakerStateChanged registra mudança no estado de um circuit breaker
func (m *APIMetrics) CircuitBreakerStateChanged(service string, isOpen bool) {
	value := 0.0
	if isOpen {
		value = 1.0
	}
	m.circuitBreakerOpen.WithLabelValues(service).Set(value)
}

// RateLimitExceeded registra quando um limite de taxa é excedido
func (m *APIMetrics) RateLimitExceeded(path, method, limitType string) {
	m.rateLimited.WithLabelValues(path, method, limitType).Inc()
}

// RecordCreated conta um registro criado; source é "client" ou "estimator"
func (m *APIMetrics) RecordCreated(source string) {
	m.recordsCreated.WithLabelValues(source).Inc()
}

// Recomputed registra um recálculo e quantos registros mudaram de flag
func (m *APIMetrics) Recomputed(trigger, outcome string, changed int) {
	m.recomputes.WithLabelValues(trigger, outcome).Inc()
	if outcome == "success" {
		m.recomputeSize.Observe(float64(changed))
	}
}

// EstimatorCalled registra o resultado de uma chamada ao estimador
func (m *APIMetrics) EstimatorCalled(outcome string) {
	m.estimatorCalls.WithLabelValues(outcome).Inc()
}

// CacheLookup registra um hit ou miss do cache de estimativas
func (m *APIMetrics) CacheLookup(backend, result string) {
	m.estimateCache.WithLabelValues(backend, result).Inc()
}

// LoginAttempt registra o resultado de uma tentativa de login
func (m *APIMetrics) LoginAttempt(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}
