package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrCircuitOpen é retornado quando o circuit breaker está aberto
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// CircuitState representa os estados possíveis do circuit breaker
type CircuitState int

const (
	StateClose CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClose:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// StateObserver recebe as transições de estado, normalmente as métricas
type StateObserver interface {
	CircuitBreakerStateChanged(name string, open bool)
}

// CircuitBreakerConfig contém a configuração do circuit breaker
type CircuitBreakerConfig struct {
	Name            string
	MaxRequestsFail int           // Número máximo de falhas antes de abrir o circuito
	Interval        time.Duration // Janela na qual as falhas são contadas
	Timeout         time.Duration // Tempo que o circuito fica aberto antes de tentar half-open
	MaxRequests     int           // Número máximo de requisições no estado half-open
}

// CircuitBreaker implementa o pattern Circuit Breaker
type CircuitBreaker struct {
	name        string
	maxFails    int
	interval    time.Duration
	timeout     time.Duration
	maxRequests int

	mutex            sync.Mutex
	state            CircuitState
	failCount        int
	windowStart      time.Time
	nextAttemptTime  time.Time
	halfOpenRequests int

	logger   *zap.Logger
	observer StateObserver
	now      func() time.Time
}

// NewCircuitBreaker cria um novo circuit breaker; observer pode ser nil
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger, observer StateObserver) *CircuitBreaker {
	if config.MaxRequestsFail <= 0 {
		config.MaxRequestsFail = 5
	}
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 1
	}

	return &CircuitBreaker{
		name:        config.Name,
		maxFails:    config.MaxRequestsFail,
		interval:    config.Interval,
		timeout:     config.Timeout,
		maxRequests: config.MaxRequests,
		state:       StateClose,
		windowStart: time.Now(),
		logger:      logger,
		observer:    observer,
		now:         time.Now,
	}
}

// Execute executa fn se o circuito permitir e registra o resultado.
// Erros para os quais countable devolve false não contam como falha.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error, countable func(error) bool) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	failed := err != nil
	if failed && countable != nil {
		failed = countable(err)
	}
	cb.recordResult(!failed)

	return err
}

// allowRequest verifica se a requisição deve ser permitida com base no estado atual
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := cb.now()

	switch cb.state {
	case StateClose:
		return true

	case StateOpen:
		if now.Before(cb.nextAttemptTime) {
			return false
		}
		cb.toHalfOpen()
		cb.halfOpenRequests++
		return true

	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.maxRequests {
			return false
		}
		cb.halfOpenRequests++
		return true
	}

	return false
}

// recordResult atualiza o estado do circuit breaker com base no resultado da requisição
func (cb *CircuitBreaker) recordResult(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := cb.now()

	switch cb.state {
	case StateClose:
		if success {
			cb.failCount = 0
			return
		}

		if now.Sub(cb.windowStart) > cb.interval {
			cb.failCount = 0
			cb.windowStart = now
		}
		cb.failCount++
		cb.logger.Debug("circuit breaker registrou falha",
			zap.String("name", cb.name),
			zap.Int("failCount", cb.failCount),
			zap.Int("maxFails", cb.maxFails))

		if cb.failCount >= cb.maxFails {
			cb.toOpen(now)
		}

	case StateHalfOpen:
		if success {
			cb.toClose(now)
		} else {
			cb.toOpen(now)
		}
	}
}

func (cb *CircuitBreaker) toOpen(now time.Time) {
	cb.state = StateOpen
	cb.nextAttemptTime = now.Add(cb.timeout)

	if cb.observer != nil {
		cb.observer.CircuitBreakerStateChanged(cb.name, true)
	}

	cb.logger.Warn("circuit breaker mudou para estado aberto",
		zap.String("name", cb.name),
		zap.Time("nextAttempt", cb.nextAttemptTime))
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.halfOpenRequests = 0
	cb.logger.Info("circuit breaker mudou para estado meio-aberto", zap.String("name", cb.name))
}

func (cb *CircuitBreaker) toClose(now time.Time) {
	cb.state = StateClose
	cb.failCount = 0
	cb.windowStart = now

	if cb.observer != nil {
		cb.observer.CircuitBreakerStateChanged(cb.name, false)
	}

	cb.logger.Info("circuit breaker mudou para estado fechado", zap.String("name", cb.name))
}

// Name retorna o nome do circuit breaker
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// GetState retorna o estado atual do circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Reset reseta o circuit breaker para o estado fechado
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.toClose(cb.now())
}
