// Package record gerencia as refeições registradas e mantém o campo
// derivado lessThanExpectedCalories consistente com a meta diária do dono.
package record

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diillson/calorie-api-go/internal/domain/filter"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/policy"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gatilhos de recálculo usados nas métricas
const (
	TriggerCreate       = "record_create"
	TriggerUpdate       = "record_update"
	TriggerDelete       = "record_delete"
	TriggerTargetChange = "target_change"
)

// Estimator calcula as calorias de uma refeição descrita em texto
type Estimator interface {
	Estimate(ctx context.Context, text string) (int, error)
}

// Metrics recebe os eventos de domínio do serviço
type Metrics interface {
	RecordCreated(source string)
	Recomputed(trigger, outcome string, changed int)
}

// CreateInput são os dados de um novo registro
type CreateInput struct {
	UserEmail        string
	Date             string
	Time             string
	Text             string
	NumberOfCalories *int
}

// UpdateInput contém apenas os campos a alterar
type UpdateInput struct {
	Date             *string
	Time             *string
	Text             *string
	NumberOfCalories *int
}

// ListInput são os parâmetros de uma listagem
type ListInput struct {
	Filter    string
	Limit     int
	Skip      int
	UserEmail string
}

// Service é o motor de registros
type Service struct {
	store      repository.Store
	estimator  Estimator
	locker     *Locker
	metrics    Metrics
	logger     *logging.ContextLogger
	maxRetries int
}

// Option ajusta o Service na construção
type Option func(*Service)

// WithMetrics registra os eventos de domínio em m
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxRetries define quantas vezes uma transação é repetida após falha transitória
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewService cria o motor de registros
func NewService(store repository.Store, estimator Estimator, locker *Locker, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		estimator:  estimator,
		locker:     locker,
		metrics:    noopMetrics{},
		logger:     logging.NewContextLogger(logger.Named("record")),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registra uma refeição e devolve o id gerado
func (s *Service) Create(ctx context.Context, caller model.Identity, in CreateInput) (string, error) {
	ownerEmail := in.UserEmail
	if ownerEmail == "" {
		ownerEmail = caller.Email
	}

	if err := policy.CanTargetEmail(caller, ownerEmail); err != nil {
		return "", err
	}
	owner, err := s.store.Users().GetByEmail(ctx, ownerEmail)
	if err != nil {
		return "", translate(err, ownerEmail)
	}
	if err := policy.CanAccess(caller, owner.Email, owner.Role); err != nil {
		return "", err
	}

	calories, source, err := s.resolveCalories(ctx, in.NumberOfCalories, in.Text)
	if err != nil {
		return "", err
	}

	record := &model.Record{
		ID:               uuid.NewString(),
		UserEmail:        owner.Email,
		Date:             in.Date,
		Time:             in.Time,
		Text:             in.Text,
		NumberOfCalories: calories,
	}

	var changed int
	err = s.WithOwner(ctx, owner.Email, func(tx repository.Store) error {
		// a meta pode ter mudado desde a leitura fora da transação
		current, err := tx.Users().GetByEmail(ctx, owner.Email)
		if err != nil {
			return translate(err, owner.Email)
		}
		if err := tx.Records().Create(ctx, record); err != nil {
			return err
		}
		changed, err = recomputeDays(ctx, tx, owner.Email, current.ExpectedCaloriesPerDay, record.Date)
		return err
	})
	s.observeRecompute(TriggerCreate, err, changed)
	if err != nil {
		return "", err
	}

	s.metrics.RecordCreated(source)
	s.logger.InfoCtx(ctx, "Registro criado",
		zap.String("id", record.ID),
		zap.String("user_email", record.UserEmail),
		zap.String("date", record.Date),
		zap.Int("calories", calories))

	return record.ID, nil
}

// Get busca um registro; NotFound se não existir, Forbidden se o chamador não puder vê-lo
func (s *Service) Get(ctx context.Context, caller model.Identity, id string) (*model.Record, error) {
	record, err := s.store.Records().GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	if err := s.authorize(ctx, caller, record.UserEmail); err != nil {
		return nil, err
	}
	return record, nil
}

// List devolve os registros visíveis ao chamador
func (s *Service) List(ctx context.Context, caller model.Identity, in ListInput) ([]*model.Record, error) {
	if in.Limit < 0 || in.Skip < 0 {
		return nil, apierrors.BadRequest("limit and skip must not be negative", nil)
	}

	expr, err := filter.Parse(in.Filter, filter.RecordFields)
	if err != nil {
		return nil, err
	}

	scope, err := policy.ScopeList(caller, in.UserEmail, func() (model.Role, error) {
		owner, err := s.store.Users().GetByEmail(ctx, in.UserEmail)
		if err != nil {
			return "", translate(err, in.UserEmail)
		}
		return owner.Role, nil
	})
	if err != nil {
		return nil, err
	}

	return s.store.Records().List(ctx, repository.ListOptions{
		Filter: expr,
		Scope:  scope,
		Limit:  in.Limit,
		Skip:   in.Skip,
	})
}

// Update altera um registro e recalcula os dias afetados
func (s *Service) Update(ctx context.Context, caller model.Identity, id string, in UpdateInput) error {
	existing, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	calories := in.NumberOfCalories
	if calories == nil && in.Text != nil && *in.Text != existing.Text {
		estimated, _, err := s.resolveCalories(ctx, nil, *in.Text)
		if err != nil {
			return err
		}
		calories = &estimated
	} else if calories != nil {
		if err := checkCalories(*calories); err != nil {
			return err
		}
	}

	var changed int
	err = s.WithOwner(ctx, existing.UserEmail, func(tx repository.Store) error {
		record, err := tx.Records().GetByID(ctx, id)
		if err != nil {
			return translate(err, id)
		}
		owner, err := tx.Users().GetByEmail(ctx, record.UserEmail)
		if err != nil {
			return translate(err, record.UserEmail)
		}

		previousDate := record.Date
		if in.Date != nil {
			record.Date = *in.Date
		}
		if in.Time != nil {
			record.Time = *in.Time
		}
		if in.Text != nil {
			record.Text = *in.Text
		}
		if calories != nil {
			record.NumberOfCalories = *calories
		}

		if err := tx.Records().Update(ctx, record); err != nil {
			return translate(err, id)
		}

		dates := []string{record.Date}
		if previousDate != record.Date {
			dates = append(dates, previousDate)
		}
		changed, err = recomputeDays(ctx, tx, record.UserEmail, owner.ExpectedCaloriesPerDay, dates...)
		return err
	})
	s.observeRecompute(TriggerUpdate, err, changed)
	if err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Registro atualizado", zap.String("id", id))
	return nil
}

// Delete remove um registro e recalcula o dia dele
func (s *Service) Delete(ctx context.Context, caller model.Identity, id string) error {
	existing, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	var changed int
	err = s.WithOwner(ctx, existing.UserEmail, func(tx repository.Store) error {
		if err := tx.Records().Delete(ctx, id); err != nil {
			return translate(err, id)
		}
		owner, err := tx.Users().GetByEmail(ctx, existing.UserEmail)
		if err != nil {
			return translate(err, existing.UserEmail)
		}
		changed, err = recomputeDays(ctx, tx, existing.UserEmail, owner.ExpectedCaloriesPerDay, existing.Date)
		return err
	})
	s.observeRecompute(TriggerDelete, err, changed)
	if err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Registro removido", zap.String("id", id))
	return nil
}

// RecomputeForUser recalcula todas as flags do usuário com a meta informada
func (s *Service) RecomputeForUser(ctx context.Context, email string, expected int) error {
	return s.RecomputeWith(ctx, email, expected, nil)
}

// RecomputeWith executa before e o recálculo completo do usuário na mesma
// transação; qualquer erro desfaz ambos
func (s *Service) RecomputeWith(ctx context.Context, email string, expected int, before func(tx repository.Store) error) error {
	var changed int
	err := s.WithOwner(ctx, email, func(tx repository.Store) error {
		if before != nil {
			if err := before(tx); err != nil {
				return err
			}
		}
		var err error
		changed, err = recomputeDays(ctx, tx, email, expected)
		return err
	})
	s.observeRecompute(TriggerTargetChange, err, changed)
	if err != nil {
		return err
	}

	s.logger.InfoCtx(ctx, "Flags do usuário recalculadas",
		zap.String("user_email", email),
		zap.Int("expected", expected),
		zap.Int("changed", changed))
	return nil
}

// WithOwner executa fn em uma transação sob o lock do dono. A transação é
// repetida inteira com backoff exponencial em falhas transitórias; erros de
// domínio não são repetidos. Esgotadas as tentativas devolve Conflict.
func (s *Service) WithOwner(ctx context.Context, email string, fn func(tx repository.Store) error) error {
	unlock := s.locker.Lock(email)
	defer unlock()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 20 * time.Millisecond
	retry.MaxInterval = 500 * time.Millisecond

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := s.store.Transaction(ctx, fn)
		if err == nil {
			return nil
		}
		if permanent(err) {
			return backoff.Permanent(err)
		}
		s.logger.WarnCtx(ctx, "transação falhou, repetindo",
			zap.String("user_email", email),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(retry, uint64(s.maxRetries)), ctx))

	if err == nil || permanent(err) {
		return err
	}

	s.logger.ErrorCtx(ctx, "transação esgotou as tentativas",
		zap.String("user_email", email),
		zap.Int("attempts", attempt),
		zap.Error(err))
	return apierrors.Conflict("Concurrent update detected, please retry", err)
}

// authorize aplica a política ao dono do recurso, buscando o papel dele só quando necessário
func (s *Service) authorize(ctx context.Context, caller model.Identity, ownerEmail string) error {
	if caller.Role == model.RoleAdmin || caller.Email == ownerEmail {
		return policy.CanAccess(caller, ownerEmail, "")
	}
	if caller.Role != model.RoleModerator {
		return apierrors.Forbidden("", nil)
	}

	owner, err := s.store.Users().GetByEmail(ctx, ownerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apierrors.Forbidden("", nil)
		}
		return err
	}
	return policy.CanAccess(caller, owner.Email, owner.Role)
}

func (s *Service) resolveCalories(ctx context.Context, supplied *int, text string) (int, string, error) {
	if supplied != nil {
		if err := checkCalories(*supplied); err != nil {
			return 0, "", err
		}
		return *supplied, "client", nil
	}

	calories, err := s.estimator.Estimate(ctx, text)
	if err != nil {
		s.logger.WarnCtx(ctx, "falha ao estimar calorias", zap.Error(err))
		if _, ok := apierrors.As(err); ok {
			return 0, "", err
		}
		return 0, "", apierrors.Upstream(http.StatusBadGateway, "Calorie estimator failed")
	}
	s.logger.DebugCtx(ctx, "calorias estimadas", zap.Int("calories", calories))
	if err := checkCalories(calories); err != nil {
		return 0, "", err
	}
	return calories, "estimator", nil
}

func checkCalories(n int) error {
	if n < 0 {
		return apierrors.BadRequest("numberOfCalories must not be negative", nil)
	}
	if n > model.MaxRecordCalories {
		return apierrors.BadRequest(fmt.Sprintf("numberOfCalories must not exceed %d", model.MaxRecordCalories), nil)
	}
	return nil
}

func (s *Service) observeRecompute(trigger string, err error, changed int) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.Recomputed(trigger, outcome, changed)
}

// recomputeDays reaplica a soma acumulada nas datas informadas, ou em todas se vazio
func recomputeDays(ctx context.Context, tx repository.Store, email string, expected int, dates ...string) (int, error) {
	records, err := tx.Records().ListByOwner(ctx, email, dates...)
	if err != nil {
		return 0, err
	}

	changed := model.ApplyDailyTotals(records, expected)
	if len(changed) == 0 {
		return 0, nil
	}
	if err := tx.Records().UpdateFlags(ctx, changed); err != nil {
		return 0, err
	}
	return len(changed), nil
}

// translate converte os erros de repositório em erros da API
func translate(err error, key string) error {
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		return apierrors.NotFound(fmt.Sprintf("Record with id %s not found", key), err)
	case errors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound(fmt.Sprintf("User with email %s not found", key), err)
	}
	return err
}

// permanent informa se o erro não deve ser repetido
func permanent(err error) bool {
	if _, ok := apierrors.As(err); ok {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type noopMetrics struct{}

func (noopMetrics) RecordCreated(string)           {}
func (noopMetrics) Recomputed(string, string, int) {}
