package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository implementa repository.RecordRepository
type RecordRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// dayOrder é a ordem determinística de registros: data, hora, criação e id
var dayOrder = []clause.OrderByColumn{
	{Column: clause.Column{Name: "date"}},
	{Column: clause.Column{Name: "time"}},
	{Column: clause.Column{Name: "created_at"}},
	{Column: clause.Column{Name: "id"}},
}

func ordered(query *gorm.DB) *gorm.DB {
	for _, column := range dayOrder {
		query = query.Order(column)
	}
	return query
}

// Create insere um registro
func (r *RecordRepository) Create(ctx context.Context, record *model.Record) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Create",
		trace.WithAttributes(
			attribute.String("db.operation", "insert"),
			attribute.String("db.table", "records"),
		),
	)
	defer span.End()

	entity := model.RecordEntityFromModel(record)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		r.logger.Error("falha ao criar registro", zap.String("user_email", record.UserEmail), zap.Error(err))
		spanFail(span, "database error", err)
		return fmt.Errorf("falha ao criar registro: %w", err)
	}

	record.CreatedAt = entity.CreatedAt
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID busca um registro pelo id
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*model.Record, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.GetByID",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "records"),
			attribute.String("record.id", id),
		),
	)
	defer span.End()

	var entity model.RecordEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("record.found", false))
			return nil, repository.ErrRecordNotFound
		}
		r.logger.Error("falha ao buscar registro", zap.String("id", id), zap.Error(err))
		spanFail(span, "database error", err)
		return nil, fmt.Errorf("falha ao buscar registro: %w", err)
	}

	span.SetAttributes(attribute.Bool("record.found", true))
	return entity.ToModel(), nil
}

// List devolve os registros visíveis no escopo
func (r *RecordRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.Record, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.List",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "records"),
			attribute.Int("query.limit", opts.Limit),
			attribute.Int("query.skip", opts.Skip),
		),
	)
	defer span.End()

	query := r.db.WithContext(ctx).Model(&model.RecordEntity{})

	switch {
	case opts.Scope.IncludeUserRole:
		query = query.Where(
			"(user_email = ? OR user_email IN (SELECT email FROM users WHERE role = ?))",
			opts.Scope.Owner, string(model.RoleUser),
		)
	case opts.Scope.Owner != "":
		query = query.Where("user_email = ?", opts.Scope.Owner)
	}

	if opts.Filter != nil {
		expr, err := filterClause(opts.Filter, recordColumns)
		if err != nil {
			spanFail(span, "filter error", err)
			return nil, err
		}
		query = query.Clauses(clause.Where{Exprs: []clause.Expression{expr}})
	}

	query = ordered(query)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
		if opts.Skip > 0 {
			query = query.Offset(opts.Skip)
		}
	}

	var entities []model.RecordEntity
	if err := query.Find(&entities).Error; err != nil {
		r.logger.Error("falha ao listar registros", zap.Error(err))
		spanFail(span, "database error", err)
		return nil, fmt.Errorf("falha ao listar registros: %w", err)
	}

	span.SetAttributes(attribute.Int("records.count", len(entities)))
	span.SetStatus(codes.Ok, "")
	return toRecords(entities), nil
}

// Update regrava os campos do registro
func (r *RecordRepository) Update(ctx context.Context, record *model.Record) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Update",
		trace.WithAttributes(
			attribute.String("db.operation", "update"),
			attribute.String("db.table", "records"),
			attribute.String("record.id", record.ID),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Model(&model.RecordEntity{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"date":                        record.Date,
			"time":                        record.Time,
			"text":                        record.Text,
			"number_of_calories":          record.NumberOfCalories,
			"less_than_expected_calories": record.LessThanExpectedCalories,
		})
	if result.Error != nil {
		r.logger.Error("falha ao atualizar registro", zap.String("id", record.ID), zap.Error(result.Error))
		spanFail(span, "database error", result.Error)
		return fmt.Errorf("falha ao atualizar registro: %w", result.Error)
	}
	// no MySQL uma atualização sem mudança conta zero linhas
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.RecordEntity{}).Where("id = ?", record.ID).Count(&count).Error; err != nil {
			spanFail(span, "database error", err)
			return fmt.Errorf("falha ao verificar registro: %w", err)
		}
		if count == 0 {
			return repository.ErrRecordNotFound
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete remove um registro
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.Delete",
		trace.WithAttributes(
			attribute.String("db.operation", "delete"),
			attribute.String("db.table", "records"),
			attribute.String("record.id", id),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RecordEntity{})
	if result.Error != nil {
		r.logger.Error("falha ao remover registro", zap.String("id", id), zap.Error(result.Error))
		spanFail(span, "database error", result.Error)
		return fmt.Errorf("falha ao remover registro: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrRecordNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// DeleteByOwner remove todos os registros de um usuário
func (r *RecordRepository) DeleteByOwner(ctx context.Context, email string) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.DeleteByOwner",
		trace.WithAttributes(
			attribute.String("db.operation", "delete"),
			attribute.String("db.table", "records"),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Where("user_email = ?", email).Delete(&model.RecordEntity{})
	if result.Error != nil {
		r.logger.Error("falha ao remover registros do usuário", zap.String("user_email", email), zap.Error(result.Error))
		spanFail(span, "database error", result.Error)
		return 0, fmt.Errorf("falha ao remover registros: %w", result.Error)
	}

	span.SetAttributes(attribute.Int64("records.deleted", result.RowsAffected))
	span.SetStatus(codes.Ok, "")
	return result.RowsAffected, nil
}

// ListByOwner devolve os registros do usuário, opcionalmente restritos a algumas datas
func (r *RecordRepository) ListByOwner(ctx context.Context, email string, dates ...string) ([]*model.Record, error) {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.ListByOwner",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "records"),
			attribute.StringSlice("records.dates", dates),
		),
	)
	defer span.End()

	query := r.db.WithContext(ctx).Where("user_email = ?", email)
	if len(dates) > 0 {
		values := make([]interface{}, len(dates))
		for i, d := range dates {
			values[i] = d
		}
		query = query.Clauses(clause.Where{Exprs: []clause.Expression{
			clause.IN{Column: clause.Column{Name: "date"}, Values: values},
		}})
	}

	var entities []model.RecordEntity
	if err := ordered(query).Find(&entities).Error; err != nil {
		r.logger.Error("falha ao listar registros do usuário", zap.String("user_email", email), zap.Error(err))
		spanFail(span, "database error", err)
		return nil, fmt.Errorf("falha ao listar registros do usuário: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return toRecords(entities), nil
}

// UpdateFlags grava lessThanExpectedCalories de cada registro informado
func (r *RecordRepository) UpdateFlags(ctx context.Context, records []*model.Record) error {
	ctx, span := r.tracer.Start(ctx, "RecordRepository.UpdateFlags",
		trace.WithAttributes(
			attribute.String("db.operation", "update"),
			attribute.String("db.table", "records"),
			attribute.Int("records.count", len(records)),
		),
	)
	defer span.End()

	for _, record := range records {
		err := r.db.WithContext(ctx).Model(&model.RecordEntity{}).
			Where("id = ?", record.ID).
			UpdateColumn("less_than_expected_calories", record.LessThanExpectedCalories).Error
		if err != nil {
			r.logger.Error("falha ao atualizar flag do registro", zap.String("id", record.ID), zap.Error(err))
			spanFail(span, "database error", err)
			return fmt.Errorf("falha ao atualizar flag do registro %s: %w", record.ID, err)
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func toRecords(entities []model.RecordEntity) []*model.Record {
	records := make([]*model.Record, 0, len(entities))
	for i := range entities {
		records = append(records, entities[i].ToModel())
	}
	return records
}
