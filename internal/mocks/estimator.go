package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEstimator é um mock para o estimador de calorias
type MockEstimator struct {
	mock.Mock
}

func (m *MockEstimator) Estimate(ctx context.Context, text string) (int, error) {
	args := m.Called(ctx, text)
	return args.Int(0), args.Error(1)
}
