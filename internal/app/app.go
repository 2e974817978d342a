package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/diillson/calorie-api-go/internal/adapter/database"
	"github.com/diillson/calorie-api-go/internal/adapter/http"
	"github.com/diillson/calorie-api-go/internal/adapter/nutrition"
	"github.com/diillson/calorie-api-go/internal/app/record"
	"github.com/diillson/calorie-api-go/internal/domain/service"
	"github.com/diillson/calorie-api-go/internal/infra/metrics"
	"github.com/diillson/calorie-api-go/internal/infra/middleware"
	"github.com/diillson/calorie-api-go/pkg/cache"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/ratelimit"
	"github.com/diillson/calorie-api-go/pkg/resilience"
	"github.com/diillson/calorie-api-go/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App reúne as dependências montadas da aplicação
type App struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *database.Database
	Store          *database.Store
	Services       *service.Services
	Middleware     *middleware.Middleware
	Health         *http.HealthChecker
	Registry       *prometheus.Registry
	APIMetrics     *metrics.APIMetrics
	MetricsHandler *middleware.MetricsHandler
	KeyManager     *security.KeyManager

	closers []func() error
}

// NewApp cria uma nova instância da aplicação com todas as dependências injetadas
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDatabase(ctx, database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        database.ParseLogLevel(cfg.Database.LogLevel),
		SlowThreshold:   cfg.Database.SlowThreshold,
		MigrationDir:    cfg.Database.MigrationDir,
		SkipMigrations:  cfg.Database.SkipMigrations,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Store:    database.NewStore(db.DB(), logger),
		Registry: metrics.NewRegistry(),
		closers:  []func() error{db.Close},
	}
	a.APIMetrics = metrics.NewAPIMetrics(a.Registry)
	a.MetricsHandler = middleware.NewMetricsHandler(a.Registry, logger)

	estimator, breaker := a.newEstimator()
	estimateCache := a.newEstimateCache(ctx)
	if estimateCache != nil {
		estimator = nutrition.NewCached(estimator, estimateCache, cfg.Estimator.CacheTTL, logger)
	}
	limiter := a.newLimiter(ctx)

	a.KeyManager, err = security.NewKeyManager(
		security.ResolveJWTSecret(cfg.Auth.JWTSecret, logger),
		cfg.Auth.TokenExpiration,
		logger,
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("falha ao criar gerenciador de chaves: %w", err)
	}

	a.Services = service.NewServices(a.Store, estimator, a.KeyManager, service.Options{
		Metrics:        a.APIMetrics,
		PasswordMinLen: cfg.Auth.PasswordMinLen,
	}, logger)

	mwOpts := middleware.Options{
		Validator:   a.Services.Auth,
		Limiter:     limiter,
		ServiceName: cfg.Tracing.ServiceName,
		TLS:         cfg.Server.TLS,
	}
	if cfg.Metrics.Enabled {
		mwOpts.Metrics = a.APIMetrics
	}
	a.Middleware = middleware.NewMiddleware(logger, mwOpts)

	deps := []http.Dependency{http.PingDependency("database", db, true)}
	if limiter != nil {
		deps = append(deps, http.PingDependency("rate_limiter", limiter, false))
	}
	if breaker != nil {
		deps = append(deps, http.BreakerDependency("estimator", breaker))
	}
	if estimateCache != nil {
		deps = append(deps, http.PingDependency("estimate_cache", estimateCache, false))
	}
	a.Health = http.NewHealthChecker(logger, deps...)

	return a, nil
}

// newEstimator escolhe o estimador configurado; o breaker é nil no estimador estático
func (a *App) newEstimator() (record.Estimator, *resilience.CircuitBreaker) {
	cfg := a.Config.Estimator

	if cfg.Provider == "static" {
		a.Logger.Warn("Usando estimador de calorias estático", zap.Int("calories", cfg.StaticCalories))
		return nutrition.Static{Calories: cfg.StaticCalories}, nil
	}

	if cfg.AppID == "" || cfg.AppKey == "" {
		a.Logger.Warn("Credenciais do Nutritionix não configuradas; estimativas vão falhar")
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:            "nutritionix",
		MaxRequestsFail: cfg.BreakerFails,
		Timeout:         cfg.BreakerTimeout,
	}, a.Logger, a.APIMetrics)

	return nutrition.NewClient(cfg, breaker, a.APIMetrics, a.Logger), breaker
}

// newRedisClient conecta ao Redis com as opções de rateLimit.redis
func (a *App) newRedisClient(ctx context.Context) (*redis.Client, error) {
	cfg := a.Config.RateLimit.Redis
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// newEstimateCache cria o cache de estimativas; nil quando desabilitado.
// Sem Redis disponível cai para o cache em memória.
func (a *App) newEstimateCache(ctx context.Context) cache.Cache {
	cfg := a.Config.Estimator
	if cfg.Provider == "static" || cfg.CacheBackend == "none" {
		return nil
	}

	if cfg.CacheBackend == "redis" {
		client, err := a.newRedisClient(ctx)
		if err == nil {
			a.Logger.Info("Conectado ao Redis para cache de estimativas",
				zap.String("redis.address", a.Config.RateLimit.Redis.Address))
			redisCache := cache.NewRedisCache(client, "calorie-api:", a.APIMetrics, a.Logger)
			a.closers = append(a.closers, redisCache.Close)
			return redisCache
		}
		a.Logger.Error("Erro ao conectar ao Redis para cache, usando cache em memória",
			zap.String("redis.address", a.Config.RateLimit.Redis.Address),
			zap.Error(err))
	}

	return cache.NewMemoryCache(cfg.CacheTTL, 10*time.Minute, a.APIMetrics, a.Logger)
}

// newLimiter cria o backend de rate limit. Sem Redis disponível cai para o
// limitador em memória.
func (a *App) newLimiter(ctx context.Context) ratelimit.Limiter {
	cfg := a.Config.RateLimit
	if !cfg.Enabled {
		a.Logger.Info("Rate limiting desabilitado")
		return nil
	}

	if cfg.Backend == "redis" {
		client, err := a.newRedisClient(ctx)
		if err != nil {
			a.Logger.Error("Erro ao conectar ao Redis para rate limiting, usando limitador em memória",
				zap.String("redis.address", cfg.Redis.Address),
				zap.Error(err))
		} else {
			a.Logger.Info("Conectado ao Redis para rate limiting", zap.String("redis.address", cfg.Redis.Address))
			limiter := ratelimit.NewRedisLimiter(client, a.Logger)
			a.closers = append(a.closers, limiter.Close)
			return limiter
		}
	}

	return ratelimit.NewMemoryLimiter(a.Logger)
}

// RegisterRoutes registra todas as rotas no router
func (a *App) RegisterRoutes(router *gin.Engine) {
	mw := a.Middleware

	router.Use(mw.Recovery())
	router.Use(mw.IgnoreFavicon())
	router.Use(mw.Tracing())
	router.Use(mw.Logger())
	router.Use(mw.Metrics())
	router.Use(mw.SecurityHeaders())
	router.Use(mw.CORS())

	maxLimit := a.Config.Pagination.MaxLimit
	users := http.NewUserHandler(a.Services.Users, maxLimit, a.Logger)
	records := http.NewRecordHandler(a.Services.Records, maxLimit, a.Logger)

	if a.Config.Metrics.Enabled {
		a.MetricsHandler.RegisterEndpoint(router, a.Config.Metrics.PrometheusPath)
	}

	// Rotas públicas
	router.GET("/health", a.Health.DetailedHealth)
	router.GET("/health/liveness", a.Health.LivenessCheck)
	router.GET("/health/readiness", a.Health.ReadinessCheck)

	limit, period := a.Config.RateLimit.LoginLimit, a.Config.RateLimit.Period
	router.POST("/users", mw.RateLimit("signup", limit, period), users.Signup)
	router.POST("/users/login", mw.RateLimit("login", limit, period), users.Login)

	// Rotas autenticadas
	authed := router.Group("/")
	authed.Use(mw.Authenticate)
	{
		authed.GET("/users", users.List)
		authed.GET("/users/:email", users.Get)
		authed.PUT("/users/:email", users.Update)
		authed.DELETE("/users/:email", users.Delete)

		authed.POST("/records", records.Create)
		authed.GET("/records", records.List)
		authed.GET("/records/:id", records.Get)
		authed.PUT("/records/:id", records.Update)
		authed.DELETE("/records/:id", records.Delete)
	}

	admin := router.Group("/admin")
	admin.Use(mw.Authenticate, mw.RequirePrivileged)
	{
		admin.POST("/users", users.Create)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(nethttp.StatusNotFound, gin.H{"error": "Route not found"})
	})
}

// Close libera conexões abertas pela aplicação
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
