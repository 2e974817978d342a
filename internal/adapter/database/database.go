package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config contém configurações para o banco de dados
type Config struct {
	Driver          string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	SlowThreshold   time.Duration
	MigrationDir    string
	SkipMigrations  bool
}

// ParseLogLevel converte o nível textual da configuração para o nível do GORM
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Database gerencia a conexão com o banco de dados
type Database struct {
	db        *gorm.DB
	logger    *zap.Logger
	migration *MigrationManager
}

// NewDatabase abre a conexão, configura o pool e aplica o schema
func NewDatabase(ctx context.Context, config Config, zapLogger *zap.Logger) (*Database, error) {
	gormLogger := logger.New(
		GormLogAdapter{zapLogger},
		logger.Config{
			SlowThreshold:             config.SlowThreshold,
			LogLevel:                  config.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
	}

	var db *gorm.DB
	var err error

	switch config.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(config.DSN), gormConfig)
	case "mysql":
		db, err = gorm.Open(mysql.Open(config.DSN), gormConfig)
	case "postgres":
		db, err = gorm.Open(postgres.Open(config.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("driver de banco de dados não suportado: %s", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("falha ao obter instância do banco de dados: %w", err)
	}

	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("falha ao testar conexão com banco de dados: %w", err)
	}

	database := &Database{
		db:     db,
		logger: zapLogger,
	}
	if config.MigrationDir != "" {
		database.migration = NewMigrationManager(db, zapLogger, config.MigrationDir)
	}

	if !config.SkipMigrations {
		if err := database.migrate(ctx); err != nil {
			return nil, fmt.Errorf("falha ao aplicar migrações: %w", err)
		}
	} else {
		zapLogger.Info("Migrações foram puladas devido à configuração")
	}

	return database, nil
}

// DB retorna a instância do GORM DB
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Ping verifica a conexão com o banco de dados
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close fecha a conexão com o banco de dados
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// migrate aplica o schema das entidades e as migrações SQL pendentes
func (d *Database) migrate(ctx context.Context) error {
	if err := d.db.WithContext(ctx).AutoMigrate(&model.UserEntity{}, &model.RecordEntity{}); err != nil {
		return fmt.Errorf("falha ao aplicar auto migração: %w", err)
	}

	if d.migration != nil {
		if err := d.migration.ApplyMigrations(ctx); err != nil {
			return fmt.Errorf("falha ao aplicar migrações SQL: %w", err)
		}
	}

	return nil
}

// GormLogAdapter adapta o zap.Logger para uso com GORM
type GormLogAdapter struct {
	ZapLogger *zap.Logger
}

// Printf implementa a interface de Logger do GORM
func (l GormLogAdapter) Printf(format string, args ...interface{}) {
	l.ZapLogger.Debug(fmt.Sprintf(format, args...))
}
