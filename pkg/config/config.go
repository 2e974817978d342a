package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config representa a configuração completa da aplicação
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	Estimator  EstimatorConfig
	RateLimit  RateLimitConfig
	Pagination PaginationConfig
	Metrics    MetricsConfig
	Logging    LoggingConfig
	Tracing    TracingConfig
}

// ServerConfig contém configurações do servidor HTTP
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TLS            bool
	CertFile       string
	KeyFile        string
	Domains        []string
}

// DatabaseConfig contém configurações do banco de dados
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
	SlowThreshold   time.Duration
	MigrationDir    string
	SkipMigrations  bool
}

// AuthConfig contém configurações de autenticação
type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	PasswordMinLen  int
}

// EstimatorConfig configura o estimador de calorias
type EstimatorConfig struct {
	Provider       string // nutritionix, static
	Endpoint       string
	AppID          string
	AppKey         string
	Timeout        time.Duration
	MaxRetries     int
	StaticCalories int
	BreakerFails   int
	BreakerTimeout time.Duration
	// CacheBackend é none, memory ou redis; redis usa as opções de rateLimit.redis
	CacheBackend string
	CacheTTL     time.Duration
}

// RedisOptions contém configurações específicas para Redis
type RedisOptions struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig configura o limitador das rotas públicas
type RateLimitConfig struct {
	Enabled    bool
	Backend    string // memory, redis
	LoginLimit int
	Period     time.Duration
	Redis      RedisOptions
}

// PaginationConfig limita o tamanho das páginas de listagem
type PaginationConfig struct {
	MaxLimit int
}

// MetricsConfig contém configurações de métricas
type MetricsConfig struct {
	Enabled        bool
	PrometheusPath string
}

// LoggingConfig contém configurações de logging
type LoggingConfig struct {
	Level      string
	Format     string // json, console
	OutputPath string
	ErrorPath  string
}

// TracingConfig contém configurações de rastreamento
type TracingConfig struct {
	Enabled       bool
	Endpoint      string
	ServiceName   string
	SamplingRatio float64
}

// LoadConfig carrega a configuração de diversas fontes (arquivos, env, defaults)
func LoadConfig(configPath string) (*Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/calorie-api")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("erro ao ler arquivo de configuração: %w", err)
		}
	}

	// Variáveis de ambiente com prefixo CAL_, ex: CAL_AUTH_JWTSECRET
	v.SetEnvPrefix("CAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("erro ao mapear configuração: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default retorna a configuração padrão sem ler arquivos nem ambiente
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// os defaults são sempre mapeáveis
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	// Servidor
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "5s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.idleTimeout", "30s")
	v.SetDefault("server.maxHeaderBytes", 1<<20)
	v.SetDefault("server.tls", false)

	// Banco de dados
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:calories.db?_pragma=foreign_keys(1)")
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.connMaxLifetime", "1h")
	v.SetDefault("database.logLevel", "warn")
	v.SetDefault("database.slowThreshold", "200ms")
	v.SetDefault("database.migrationDir", "./migrations")
	v.SetDefault("database.skipMigrations", false)

	// Autenticação
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenExpiration", "1h")
	v.SetDefault("auth.passwordMinLen", 6)

	// Estimador
	v.SetDefault("estimator.provider", "nutritionix")
	v.SetDefault("estimator.endpoint", "https://trackapi.nutritionix.com")
	v.SetDefault("estimator.appId", "")
	v.SetDefault("estimator.appKey", "")
	v.SetDefault("estimator.timeout", "10s")
	v.SetDefault("estimator.maxRetries", 2)
	v.SetDefault("estimator.staticCalories", 0)
	v.SetDefault("estimator.breakerFails", 5)
	v.SetDefault("estimator.breakerTimeout", "30s")
	v.SetDefault("estimator.cacheBackend", "memory")
	v.SetDefault("estimator.cacheTTL", "24h")

	// Rate limit
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.loginLimit", 20)
	v.SetDefault("rateLimit.period", "1m")
	v.SetDefault("rateLimit.redis.address", "localhost:6379")
	v.SetDefault("rateLimit.redis.db", 0)
	v.SetDefault("rateLimit.redis.poolSize", 10)
	v.SetDefault("rateLimit.redis.dialTimeout", "5s")
	v.SetDefault("rateLimit.redis.readTimeout", "3s")
	v.SetDefault("rateLimit.redis.writeTimeout", "3s")

	// Paginação
	v.SetDefault("pagination.maxLimit", 100)

	// Métricas
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.prometheusPath", "/metrics")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
	v.SetDefault("logging.errorPath", "stderr")

	// Tracing
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.samplingRatio", 0.1)
	v.SetDefault("tracing.serviceName", "calorie-api")
}

func validateConfig(config *Config) error {
	if config.Server.TLS {
		if config.Server.CertFile == "" && len(config.Server.Domains) == 0 {
			return fmt.Errorf("TLS habilitado, mas nem certificado nem domínios foram definidos")
		}
	}

	validDrivers := map[string]bool{"sqlite": true, "mysql": true, "postgres": true}
	if !validDrivers[config.Database.Driver] {
		return fmt.Errorf("driver de banco de dados inválido: %s", config.Database.Driver)
	}

	if config.Auth.JWTSecret != "" && len(config.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwtSecret deve ter pelo menos 32 caracteres")
	}
	if config.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("auth.tokenExpiration deve ser positivo")
	}

	switch config.Estimator.Provider {
	case "nutritionix":
		if config.Estimator.Endpoint == "" {
			return fmt.Errorf("estimator.endpoint é obrigatório para o provedor nutritionix")
		}
	case "static":
	default:
		return fmt.Errorf("provedor de estimativa inválido: %s", config.Estimator.Provider)
	}

	switch config.Estimator.CacheBackend {
	case "none", "memory":
	case "redis":
		if config.RateLimit.Redis.Address == "" {
			return fmt.Errorf("cache redis requer rateLimit.redis.address")
		}
	default:
		return fmt.Errorf("backend de cache inválido: %s", config.Estimator.CacheBackend)
	}
	if config.Estimator.CacheBackend != "none" && config.Estimator.CacheTTL <= 0 {
		return fmt.Errorf("estimator.cacheTTL deve ser positivo")
	}

	if config.RateLimit.Enabled {
		validBackends := map[string]bool{"memory": true, "redis": true}
		if !validBackends[config.RateLimit.Backend] {
			return fmt.Errorf("backend de rate limit inválido: %s", config.RateLimit.Backend)
		}
		if config.RateLimit.Backend == "redis" && config.RateLimit.Redis.Address == "" {
			return fmt.Errorf("backend redis requer um endereço")
		}
		if config.RateLimit.LoginLimit <= 0 || config.RateLimit.Period <= 0 {
			return fmt.Errorf("rateLimit.loginLimit e rateLimit.period devem ser positivos")
		}
	}

	if config.Pagination.MaxLimit <= 0 {
		return fmt.Errorf("pagination.maxLimit deve ser positivo")
	}

	return nil
}
