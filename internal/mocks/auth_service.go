package mocks

import (
	"context"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

// MockAuthService é um mock para a validação de tokens
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (model.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(model.Identity), args.Error(1)
}
