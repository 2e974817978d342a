package service

import (
	"github.com/diillson/calorie-api-go/internal/app/auth"
	"github.com/diillson/calorie-api-go/internal/app/record"
	"github.com/diillson/calorie-api-go/internal/app/user"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	"github.com/diillson/calorie-api-go/internal/infra/metrics"
	"github.com/diillson/calorie-api-go/pkg/security"
	"go.uber.org/zap"
)

// Services contém todos os serviços da aplicação
type Services struct {
	Records *record.Service
	Users   *user.Service
	Auth    *auth.AuthService
}

// Options ajusta a construção dos serviços
type Options struct {
	Metrics        *metrics.APIMetrics // pode ser nil
	PasswordMinLen int
	MaxRetries     int // 0 mantém o padrão do motor de registros
}

// NewServices cria todos os serviços sobre o mesmo store e o mesmo lock por usuário
func NewServices(store repository.Store, estimator record.Estimator, keyManager *security.KeyManager, opts Options, logger *zap.Logger) *Services {
	var recordOpts []record.Option
	if opts.MaxRetries > 0 {
		recordOpts = append(recordOpts, record.WithMaxRetries(opts.MaxRetries))
	}

	// interfaces só recebem as métricas quando elas existem
	var userMetrics user.Metrics
	if opts.Metrics != nil {
		recordOpts = append(recordOpts, record.WithMetrics(opts.Metrics))
		userMetrics = opts.Metrics
	}

	records := record.NewService(store, estimator, record.NewLocker(), logger, recordOpts...)
	users := user.NewService(store, records, keyManager, userMetrics, opts.PasswordMinLen, logger)

	return &Services{
		Records: records,
		Users:   users,
		Auth:    auth.NewAuthService(keyManager, store.Users(), logger),
	}
}
