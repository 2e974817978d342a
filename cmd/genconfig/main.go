package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"

	"github.com/diillson/calorie-api-go/pkg/config"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		outputPath string
		force      bool
	)

	flag.StringVar(&outputPath, "output", "config.yaml", "Caminho para o arquivo de configuração de saída")
	flag.BoolVar(&force, "force", false, "Sobrescrever arquivo se existir")
	flag.Parse()

	if _, err := os.Stat(outputPath); err == nil && !force {
		fmt.Printf("Erro: arquivo %s já existe. Use --force para sobrescrever.\n", outputPath)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.Auth.JWTSecret = "change-me-to-a-secret-with-at-least-32-chars"
	cfg.Estimator.AppID = "your-nutritionix-app-id"
	cfg.Estimator.AppKey = "your-nutritionix-app-key"

	data, err := yaml.Marshal(toYAML(cfg))
	if err != nil {
		fmt.Printf("Erro ao serializar configuração: %v\n", err)
		os.Exit(1)
	}

	yamlStr := string(data)
	re := regexp.MustCompile(`(\s+provider:\s+nutritionix)`)
	yamlStr = re.ReplaceAllString(yamlStr, `$1  # nutritionix ou static`)
	re = regexp.MustCompile(`(\s+cacheBackend:\s+memory)`)
	yamlStr = re.ReplaceAllString(yamlStr, `$1  # none, memory ou redis`)
	re = regexp.MustCompile(`(\s+backend:\s+memory)`)
	yamlStr = re.ReplaceAllString(yamlStr, `$1  # memory ou redis`)

	if err := os.WriteFile(outputPath, []byte(yamlStr), 0o644); err != nil {
		fmt.Printf("Erro ao escrever arquivo: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Arquivo de configuração gerado em: %s\n", outputPath)
}

// toYAML monta o documento com as mesmas chaves lidas pelo viper, com
// durações em texto
func toYAML(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"port":           cfg.Server.Port,
			"host":           cfg.Server.Host,
			"readTimeout":    cfg.Server.ReadTimeout.String(),
			"writeTimeout":   cfg.Server.WriteTimeout.String(),
			"idleTimeout":    cfg.Server.IdleTimeout.String(),
			"maxHeaderBytes": cfg.Server.MaxHeaderBytes,
			"tls":            cfg.Server.TLS,
			"certFile":       cfg.Server.CertFile,
			"keyFile":        cfg.Server.KeyFile,
			"domains":        cfg.Server.Domains,
		},
		"database": map[string]interface{}{
			"driver":          cfg.Database.Driver,
			"dsn":             cfg.Database.DSN,
			"maxIdleConns":    cfg.Database.MaxIdleConns,
			"maxOpenConns":    cfg.Database.MaxOpenConns,
			"connMaxLifetime": cfg.Database.ConnMaxLifetime.String(),
			"logLevel":        cfg.Database.LogLevel,
			"slowThreshold":   cfg.Database.SlowThreshold.String(),
			"migrationDir":    cfg.Database.MigrationDir,
			"skipMigrations":  cfg.Database.SkipMigrations,
		},
		"auth": map[string]interface{}{
			"jwtSecret":       cfg.Auth.JWTSecret,
			"tokenExpiration": cfg.Auth.TokenExpiration.String(),
			"passwordMinLen":  cfg.Auth.PasswordMinLen,
		},
		"estimator": map[string]interface{}{
			"provider":       cfg.Estimator.Provider,
			"endpoint":       cfg.Estimator.Endpoint,
			"appId":          cfg.Estimator.AppID,
			"appKey":         cfg.Estimator.AppKey,
			"timeout":        cfg.Estimator.Timeout.String(),
			"maxRetries":     cfg.Estimator.MaxRetries,
			"staticCalories": cfg.Estimator.StaticCalories,
			"breakerFails":   cfg.Estimator.BreakerFails,
			"breakerTimeout": cfg.Estimator.BreakerTimeout.String(),
			"cacheBackend":   cfg.Estimator.CacheBackend,
			"cacheTTL":       cfg.Estimator.CacheTTL.String(),
		},
		"rateLimit": map[string]interface{}{
			"enabled":    cfg.RateLimit.Enabled,
			"backend":    cfg.RateLimit.Backend,
			"loginLimit": cfg.RateLimit.LoginLimit,
			"period":     cfg.RateLimit.Period.String(),
			"redis": map[string]interface{}{
				"address":      cfg.RateLimit.Redis.Address,
				"password":     cfg.RateLimit.Redis.Password,
				"db":           cfg.RateLimit.Redis.DB,
				"poolSize":     cfg.RateLimit.Redis.PoolSize,
				"dialTimeout":  cfg.RateLimit.Redis.DialTimeout.String(),
				"readTimeout":  cfg.RateLimit.Redis.ReadTimeout.String(),
				"writeTimeout": cfg.RateLimit.Redis.WriteTimeout.String(),
			},
		},
		"pagination": map[string]interface{}{
			"maxLimit": cfg.Pagination.MaxLimit,
		},
		"metrics": map[string]interface{}{
			"enabled":        cfg.Metrics.Enabled,
			"prometheusPath": cfg.Metrics.PrometheusPath,
		},
		"logging": map[string]interface{}{
			"level":      cfg.Logging.Level,
			"format":     cfg.Logging.Format,
			"outputPath": cfg.Logging.OutputPath,
			"errorPath":  cfg.Logging.ErrorPath,
		},
		"tracing": map[string]interface{}{
			"enabled":       cfg.Tracing.Enabled,
			"endpoint":      cfg.Tracing.Endpoint,
			"serviceName":   cfg.Tracing.ServiceName,
			"samplingRatio": cfg.Tracing.SamplingRatio,
		},
	}
}
