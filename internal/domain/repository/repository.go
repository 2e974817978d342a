package repository

import (
	"context"
	"errors"

	"github.com/diillson/calorie-api-go/internal/domain/filter"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/policy"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")
	ErrRecordNotFound = errors.New("record not found")
)

// ListOptions descreve uma listagem já autorizada
type ListOptions struct {
	Filter filter.Expr
	Scope  policy.Scope
	Limit  int
	Skip   int
}

// UserRepository define o armazenamento de contas
type UserRepository interface {
	// Create insere uma conta; ErrUserExists se o email já existir
	Create(ctx context.Context, user *model.User) error

	// GetByEmail busca uma conta; ErrUserNotFound se não existir
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// List devolve contas ordenadas por email
	List(ctx context.Context, opts ListOptions) ([]*model.User, error)

	// Update regrava todos os campos mutáveis da conta
	Update(ctx context.Context, user *model.User) error

	// Delete remove apenas a conta; registros são removidos pelo chamador
	Delete(ctx context.Context, email string) error
}

// RecordRepository define o armazenamento de registros de refeição
type RecordRepository interface {
	Create(ctx context.Context, record *model.Record) error

	// GetByID busca um registro; ErrRecordNotFound se não existir
	GetByID(ctx context.Context, id string) (*model.Record, error)

	// List devolve registros ordenados por data, hora, criação e id
	List(ctx context.Context, opts ListOptions) ([]*model.Record, error)

	Update(ctx context.Context, record *model.Record) error

	Delete(ctx context.Context, id string) error

	// DeleteByOwner remove todos os registros de um usuário
	DeleteByOwner(ctx context.Context, email string) (int64, error)

	// ListByOwner devolve os registros do usuário nas datas informadas, ou todos se dates for vazio
	ListByOwner(ctx context.Context, email string, dates ...string) ([]*model.Record, error)

	// UpdateFlags grava apenas lessThanExpectedCalories dos registros informados
	UpdateFlags(ctx context.Context, records []*model.Record) error
}

// Store agrupa os repositórios e permite executá-los em uma transação
type Store interface {
	Users() UserRepository
	Records() RecordRepository

	// Transaction executa fn com um Store transacional; erro em fn desfaz tudo
	Transaction(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
}
