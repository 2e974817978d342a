package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/diillson/calorie-api-go/internal/adapter/database"
	"github.com/diillson/calorie-api-go/pkg/config"
	"github.com/diillson/calorie-api-go/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	var (
		action       string
		name         string
		configPath   string
		driver       string
		dsn          string
		migrationDir string
	)

	flag.StringVar(&action, "action", "migrate", "Ação (migrate, create)")
	flag.StringVar(&name, "name", "", "Nome da migração (apenas para action=create)")
	flag.StringVar(&configPath, "config", "", "Diretório do config.yaml")
	flag.StringVar(&driver, "driver", "", "Driver de banco de dados (sqlite, mysql, postgres); sobrescreve a configuração")
	flag.StringVar(&dsn, "dsn", "", "DSN do banco de dados; sobrescreve a configuração")
	flag.StringVar(&migrationDir, "dir", "", "Diretório de migrações; sobrescreve a configuração")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Erro ao carregar configuração: %v\n", err)
		os.Exit(1)
	}
	if driver != "" {
		cfg.Database.Driver = driver
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if migrationDir != "" {
		cfg.Database.MigrationDir = migrationDir
	}

	logger, err := logging.NewLogger(config.LoggingConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Printf("Erro ao inicializar logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dbConfig := database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        database.ParseLogLevel("info"),
		SlowThreshold:   cfg.Database.SlowThreshold,
		MigrationDir:    cfg.Database.MigrationDir,
		// create só precisa do diretório
		SkipMigrations: action == "create",
	}

	ctx := context.Background()

	switch action {
	case "migrate":
		db, err := database.NewDatabase(ctx, dbConfig, logger)
		if err != nil {
			logger.Fatal("Falha ao aplicar migrações", zap.Error(err))
		}
		defer db.Close()

		logger.Info("Migrações aplicadas com sucesso",
			zap.String("driver", dbConfig.Driver),
			zap.String("dir", dbConfig.MigrationDir))

	case "create":
		if name == "" {
			logger.Fatal("Nome da migração é obrigatório para action=create")
		}

		path, err := database.NewMigrationManager(nil, logger, dbConfig.MigrationDir).CreateMigration(name)
		if err != nil {
			logger.Fatal("Falha ao criar migração", zap.Error(err))
		}

		logger.Info("Migração criada", zap.String("path", path))

	default:
		logger.Fatal("Ação desconhecida", zap.String("action", action))
	}
}
