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

// UserRepository implementa repository.UserRepository
type UserRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// Create insere uma nova conta
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create",
		trace.WithAttributes(
			attribute.String("db.operation", "insert"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	var count int64
	if err := r.db.WithContext(ctx).Model(&model.UserEntity{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		spanFail(span, "database error", err)
		return fmt.Errorf("falha ao verificar usuário existente: %w", err)
	}
	if count > 0 {
		span.SetAttributes(attribute.Bool("user.exists", true))
		return repository.ErrUserExists
	}

	entity := model.UserEntityFromModel(user)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrUserExists
		}
		r.logger.Error("falha ao criar usuário", zap.String("email", user.Email), zap.Error(err))
		spanFail(span, "database error", err)
		return fmt.Errorf("falha ao criar usuário: %w", err)
	}

	user.CreatedAt = entity.CreatedAt
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByEmail busca uma conta pelo email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByEmail",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	var entity model.UserEntity
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("user.found", false))
			return nil, repository.ErrUserNotFound
		}
		r.logger.Error("falha ao buscar usuário", zap.String("email", email), zap.Error(err))
		spanFail(span, "database error", err)
		return nil, fmt.Errorf("falha ao buscar usuário: %w", err)
	}

	span.SetAttributes(attribute.Bool("user.found", true))
	return entity.ToModel(), nil
}

// List devolve as contas visíveis no escopo, ordenadas por email
func (r *UserRepository) List(ctx context.Context, opts repository.ListOptions) ([]*model.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.List",
		trace.WithAttributes(
			attribute.String("db.operation", "select"),
			attribute.String("db.table", "users"),
			attribute.Int("query.limit", opts.Limit),
			attribute.Int("query.skip", opts.Skip),
		),
	)
	defer span.End()

	query := r.db.WithContext(ctx).Model(&model.UserEntity{})

	switch {
	case opts.Scope.IncludeUserRole:
		query = query.Where("(email = ? OR role = ?)", opts.Scope.Owner, string(model.RoleUser))
	case opts.Scope.Owner != "":
		query = query.Where("email = ?", opts.Scope.Owner)
	}

	if opts.Filter != nil {
		expr, err := filterClause(opts.Filter, userColumns)
		if err != nil {
			spanFail(span, "filter error", err)
			return nil, err
		}
		query = query.Clauses(clause.Where{Exprs: []clause.Expression{expr}})
	}

	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "email"}})
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
		if opts.Skip > 0 {
			query = query.Offset(opts.Skip)
		}
	}

	var entities []model.UserEntity
	if err := query.Find(&entities).Error; err != nil {
		r.logger.Error("falha ao listar usuários", zap.Error(err))
		spanFail(span, "database error", err)
		return nil, fmt.Errorf("falha ao listar usuários: %w", err)
	}

	users := make([]*model.User, 0, len(entities))
	for i := range entities {
		users = append(users, entities[i].ToModel())
	}

	span.SetAttributes(attribute.Int("users.count", len(users)))
	span.SetStatus(codes.Ok, "")
	return users, nil
}

// Update regrava os campos mutáveis da conta
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Update",
		trace.WithAttributes(
			attribute.String("db.operation", "update"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Model(&model.UserEntity{}).
		Where("email = ?", user.Email).
		Updates(map[string]interface{}{
			"name":                      user.Name,
			"surname":                   user.Surname,
			"password":                  user.PasswordHash,
			"role":                      string(user.Role),
			"expected_calories_per_day": user.ExpectedCaloriesPerDay,
		})
	if result.Error != nil {
		r.logger.Error("falha ao atualizar usuário", zap.String("email", user.Email), zap.Error(result.Error))
		spanFail(span, "database error", result.Error)
		return fmt.Errorf("falha ao atualizar usuário: %w", result.Error)
	}
	// no MySQL uma atualização sem mudança conta zero linhas
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.UserEntity{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			spanFail(span, "database error", err)
			return fmt.Errorf("falha ao verificar usuário: %w", err)
		}
		if count == 0 {
			return repository.ErrUserNotFound
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete remove a conta
func (r *UserRepository) Delete(ctx context.Context, email string) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Delete",
		trace.WithAttributes(
			attribute.String("db.operation", "delete"),
			attribute.String("db.table", "users"),
		),
	)
	defer span.End()

	result := r.db.WithContext(ctx).Where("email = ?", email).Delete(&model.UserEntity{})
	if result.Error != nil {
		r.logger.Error("falha ao remover usuário", zap.String("email", email), zap.Error(result.Error))
		spanFail(span, "database error", result.Error)
		return fmt.Errorf("falha ao remover usuário: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
