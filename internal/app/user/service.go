// Package user gerencia as contas, o login e o gatilho de recálculo
// das flags quando a meta diária muda.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/diillson/calorie-api-go/internal/domain/filter"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/policy"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/logging"
	"github.com/diillson/calorie-api-go/pkg/security"
	"go.uber.org/zap"
)

const wrongCredentials = "Wrong Credentials"

// Records é a parte do motor de registros usada pelas contas
type Records interface {
	WithOwner(ctx context.Context, email string, fn func(tx repository.Store) error) error
	RecomputeWith(ctx context.Context, email string, expected int, before func(tx repository.Store) error) error
}

// TokenIssuer emite o token de acesso do login
type TokenIssuer interface {
	GenerateToken(email, role string) (string, error)
}

// Metrics recebe os resultados de login
type Metrics interface {
	LoginAttempt(outcome string)
}

// SignupInput são os dados do auto cadastro
type SignupInput struct {
	Email                  string
	Name                   string
	Surname                string
	Password               string
	ExpectedCaloriesPerDay int
}

// CreateInput são os dados de uma conta criada por admin ou moderador
type CreateInput struct {
	SignupInput
	Role string
}

// UpdateInput contém apenas os campos a alterar
type UpdateInput struct {
	Name                   *string
	Surname                *string
	Password               *string
	Role                   *string
	ExpectedCaloriesPerDay *int
}

// ListInput são os parâmetros de uma listagem
type ListInput struct {
	Filter string
	Limit  int
	Skip   int
}

// Service é o motor de contas
type Service struct {
	store          repository.Store
	records        Records
	tokens         TokenIssuer
	metrics        Metrics
	logger         *logging.ContextLogger
	passwordMinLen int
}

// NewService cria o motor de contas; metrics pode ser nil
func NewService(store repository.Store, records Records, tokens TokenIssuer, metrics Metrics, passwordMinLen int, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Service{
		store:          store,
		records:        records,
		tokens:         tokens,
		metrics:        metrics,
		logger:         logging.NewContextLogger(logger.Named("user")),
		passwordMinLen: passwordMinLen,
	}
}

// Signup cadastra uma conta com papel user
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	return s.create(ctx, in, model.RoleUser)
}

// Create cadastra uma conta com o papel pedido, se o chamador puder atribuí-lo
func (s *Service) Create(ctx context.Context, caller model.Identity, in CreateInput) error {
	role := model.RoleUser
	if in.Role != "" {
		parsed, ok := model.ParseRole(in.Role)
		if !ok {
			return apierrors.BadRequest("Invalid role", nil)
		}
		role = parsed
	}

	if err := policy.CanCreateUser(caller, role); err != nil {
		return err
	}
	return s.create(ctx, in.SignupInput, role)
}

func (s *Service) create(ctx context.Context, in SignupInput, role model.Role) error {
	if in.ExpectedCaloriesPerDay <= 0 {
		return apierrors.BadRequest("expectedCaloriesPerDay must be greater than 0", nil)
	}
	if err := s.checkPassword(in.Password); err != nil {
		return err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("falha ao gerar hash da senha: %w", err)
	}

	user := &model.User{
		Email:                  in.Email,
		Name:                   in.Name,
		Surname:                in.Surname,
		PasswordHash:           hash,
		Role:                   role,
		ExpectedCaloriesPerDay: in.ExpectedCaloriesPerDay,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return apierrors.BadRequest(fmt.Sprintf("User with email %s already exists", in.Email), err)
		}
		return err
	}

	s.logger.InfoCtx(ctx, "Usuário criado", zap.String("email", user.Email), zap.String("role", role.String()))
	return nil
}

// Login confere as credenciais e devolve um token de acesso. Email
// desconhecido e senha errada produzem o mesmo erro.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return "", err
		}
		security.BurnPasswordCheck(password)
		s.metrics.LoginAttempt("failure")
		return "", apierrors.BadRequest(wrongCredentials, nil)
	}

	if !security.CheckPassword(user.PasswordHash, password) {
		s.metrics.LoginAttempt("failure")
		s.logger.WarnCtx(ctx, "Falha na autenticação", zap.String("email", email))
		return "", apierrors.BadRequest(wrongCredentials, nil)
	}

	token, err := s.tokens.GenerateToken(user.Email, user.Role.String())
	if err != nil {
		s.logger.ErrorCtx(ctx, "Falha ao gerar token", zap.String("email", email), zap.Error(err))
		return "", err
	}

	s.metrics.LoginAttempt("success")
	s.logger.InfoCtx(ctx, "Login bem-sucedido", zap.String("email", email))
	return token, nil
}

// Get devolve a conta como o chamador pode vê-la
func (s *Service) Get(ctx context.Context, caller model.Identity, email string) (*model.User, error) {
	user, err := s.accessible(ctx, caller, email)
	if err != nil {
		return nil, err
	}
	return present(caller, user), nil
}

// List devolve as contas visíveis ao chamador, ordenadas por email
func (s *Service) List(ctx context.Context, caller model.Identity, in ListInput) ([]*model.User, error) {
	if in.Limit < 0 || in.Skip < 0 {
		return nil, apierrors.BadRequest("limit and skip must not be negative", nil)
	}

	expr, err := filter.Parse(in.Filter, filter.UserFields)
	if err != nil {
		return nil, err
	}

	scope, err := policy.ScopeList(caller, "", nil)
	if err != nil {
		return nil, err
	}

	users, err := s.store.Users().List(ctx, repository.ListOptions{
		Filter: expr,
		Scope:  scope,
		Limit:  in.Limit,
		Skip:   in.Skip,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		out = append(out, present(caller, u))
	}
	return out, nil
}

// Update altera a conta. Mudança da meta diária recalcula as flags do
// usuário na mesma transação da alteração.
func (s *Service) Update(ctx context.Context, caller model.Identity, email string, in UpdateInput) error {
	existing, err := s.accessible(ctx, caller, email)
	if err != nil {
		return err
	}

	var hash string
	if in.Password != nil {
		if err := s.checkPassword(*in.Password); err != nil {
			return err
		}
		if hash, err = security.HashPassword(*in.Password); err != nil {
			return fmt.Errorf("falha ao gerar hash da senha: %w", err)
		}
	}

	var role model.Role
	if in.Role != nil {
		parsed, ok := model.ParseRole(*in.Role)
		if !ok {
			return apierrors.BadRequest("Invalid role", nil)
		}
		if err := policy.CanAssignRole(caller, existing.Role, parsed); err != nil {
			return err
		}
		role = parsed
	}

	if in.ExpectedCaloriesPerDay != nil && *in.ExpectedCaloriesPerDay <= 0 {
		return apierrors.BadRequest("expectedCaloriesPerDay must be greater than 0", nil)
	}

	apply := func(tx repository.Store) error {
		current, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return notFound(err, email)
		}
		if in.Name != nil {
			current.Name = *in.Name
		}
		if in.Surname != nil {
			current.Surname = *in.Surname
		}
		if hash != "" {
			current.PasswordHash = hash
		}
		if role != "" {
			current.Role = role
		}
		if in.ExpectedCaloriesPerDay != nil {
			current.ExpectedCaloriesPerDay = *in.ExpectedCaloriesPerDay
		}
		return notFound(tx.Users().Update(ctx, current), email)
	}

	if in.ExpectedCaloriesPerDay != nil {
		err = s.records.RecomputeWith(ctx, email, *in.ExpectedCaloriesPerDay, apply)
	} else {
		err = s.records.WithOwner(ctx, email, apply)
	}
	if err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Usuário atualizado", zap.String("email", email))
	return nil
}

// Delete remove a conta e todos os registros dela na mesma transação
func (s *Service) Delete(ctx context.Context, caller model.Identity, email string) error {
	if _, err := s.accessible(ctx, caller, email); err != nil {
		return err
	}

	var removed int64
	err := s.records.WithOwner(ctx, email, func(tx repository.Store) error {
		var err error
		if removed, err = tx.Records().DeleteByOwner(ctx, email); err != nil {
			return err
		}
		return notFound(tx.Users().Delete(ctx, email), email)
	})
	if err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Usuário removido",
		zap.String("email", email),
		zap.Int64("records_removed", removed))
	return nil
}

// accessible busca a conta aplicando a política na ordem pré-teste, existência, acesso
func (s *Service) accessible(ctx context.Context, caller model.Identity, email string) (*model.User, error) {
	if err := policy.CanTargetEmail(caller, email); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, email)
	}

	if err := policy.CanAccess(caller, user.Email, user.Role); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) checkPassword(password string) error {
	if len(password) < s.passwordMinLen {
		return apierrors.BadRequest(fmt.Sprintf("password must have at least %d characters", s.passwordMinLen), nil)
	}
	return nil
}

// present remove o que o chamador não pode ver
func present(viewer model.Identity, u *model.User) *model.User {
	out := *u
	out.PasswordHash = ""
	if !viewer.Role.Privileged() {
		out.Role = ""
	}
	return &out
}

func notFound(err error, email string) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apierrors.NotFound(fmt.Sprintf("User with email %s not found", email), err)
	}
	return err
}

type noopMetrics struct{}

func (noopMetrics) LoginAttempt(string) {}
