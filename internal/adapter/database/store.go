package database

import (
	"context"

	"github.com/diillson/calorie-api-go/internal/domain/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store implementa repository.Store sobre GORM
type Store struct {
	db      *gorm.DB
	logger  *zap.Logger
	tracer  trace.Tracer
	users   *UserRepository
	records *RecordRepository
}

// NewStore cria um Store a partir de uma conexão GORM
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	tracer := otel.GetTracerProvider().Tracer("calorie-api.repository")

	return &Store{
		db:      db,
		logger:  logger,
		tracer:  tracer,
		users:   &UserRepository{db: db, logger: logger, tracer: tracer},
		records: &RecordRepository{db: db, logger: logger, tracer: tracer},
	}
}

// Users retorna o repositório de contas
func (s *Store) Users() repository.UserRepository {
	return s.users
}

// Records retorna o repositório de registros
func (s *Store) Records() repository.RecordRepository {
	return s.records
}

// Transaction executa fn em uma transação do banco
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	ctx, span := s.tracer.Start(ctx, "Store.Transaction")
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.logger))
	})
	if err != nil {
		span.SetStatus(codes.Error, "transaction rolled back")
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Ping verifica a conexão com o banco de dados
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// spanFail marca o span como falho com a mensagem do erro
func spanFail(span trace.Span, status string, err error) {
	span.SetStatus(codes.Error, status)
	span.SetAttributes(
		attribute.Bool("error", true),
		attribute.String("error.message", err.Error()),
	)
}
