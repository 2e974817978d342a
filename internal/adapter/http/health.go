package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/diillson/calorie-api-go/pkg/resilience"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker implementa endpoints de health check
type HealthChecker struct {
	logger       *zap.Logger
	dependencies []Dependency
	timeout      time.Duration
}

// Pinger é qualquer componente que responde a um ping
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency representa um componente do qual o sistema depende
type Dependency struct {
	Name     string
	Check    func(context.Context) error
	Critical bool // Se true, falha deste componente faz o health check falhar
}

// PingDependency cria uma dependência a partir de um Pinger
func PingDependency(name string, p Pinger, critical bool) Dependency {
	return Dependency{Name: name, Check: p.Ping, Critical: critical}
}

// BreakerDependency reporta DOWN enquanto o circuito estiver aberto
func BreakerDependency(name string, cb *resilience.CircuitBreaker) Dependency {
	return Dependency{
		Name: name,
		Check: func(context.Context) error {
			if cb.GetState() == resilience.StateOpen {
				return errors.New("circuito aberto")
			}
			return nil
		},
	}
}

// NewHealthChecker cria um novo health checker
func NewHealthChecker(logger *zap.Logger, dependencies ...Dependency) *HealthChecker {
	return &HealthChecker{
		logger:       logger,
		dependencies: dependencies,
		timeout:      5 * time.Second,
	}
}

// LivenessCheck verifica se o aplicativo está vivo (execução básica)
func (h *HealthChecker) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessCheck verifica se o aplicativo está pronto para receber tráfego
func (h *HealthChecker) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, checks := h.runChecks(ctx, false)
	c.JSON(status, gin.H{
		"status": statusText(status),
		"time":   time.Now(),
		"checks": checks,
	})
}

// DetailedHealth fornece informações detalhadas sobre o sistema
func (h *HealthChecker) DetailedHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*h.timeout)
	defer cancel()

	status, checks := h.runChecks(ctx, true)
	c.JSON(status, gin.H{
		"status":      statusText(status),
		"time":        time.Now(),
		"version":     getVersion(),
		"environment": getEnvironment(),
		"checks":      checks,
		"system":      getSystemInfo(),
	})
}

// runChecks executa as verificações em paralelo
func (h *HealthChecker) runChecks(ctx context.Context, withErrors bool) (int, map[string]interface{}) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = http.StatusOK
		checks = make(map[string]interface{}, len(h.dependencies))
	)

	for _, dep := range h.dependencies {
		wg.Add(1)
		go func(d Dependency) {
			defer wg.Done()

			start := time.Now()
			err := d.Check(ctx)
			duration := time.Since(start)

			result := gin.H{
				"status":   "UP",
				"time":     duration.String(),
				"critical": d.Critical,
			}
			if err != nil {
				result["status"] = "DOWN"
				if withErrors {
					result["error"] = err.Error()
				}
				h.logger.Warn("health check falhou",
					zap.String("dependency", d.Name),
					zap.Bool("critical", d.Critical),
					zap.Error(err))
			}

			mu.Lock()
			defer mu.Unlock()
			checks[d.Name] = result
			if err != nil && d.Critical {
				status = http.StatusServiceUnavailable
			}
		}(dep)
	}

	wg.Wait()
	return status, checks
}

func statusText(status int) string {
	if status == http.StatusOK {
		return "UP"
	}
	return "DOWN"
}

// getVersion retorna a versão do aplicativo
func getVersion() string {
	return os.Getenv("APP_VERSION")
}

// getEnvironment retorna o ambiente atual
func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "development"
	}
	return env
}

// getSystemInfo retorna informações sobre o sistema
func getSystemInfo() gin.H {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return gin.H{
		"go_version":    runtime.Version(),
		"num_cpu":       runtime.NumCPU(),
		"num_goroutine": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc_mb": float64(m.Alloc) / 1024 / 1024,
			"sys_mb":   float64(m.Sys) / 1024 / 1024,
			"num_gc":   m.NumGC,
		},
	}
}
