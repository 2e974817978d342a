package mocks

import (
	"context"

	"github.com/diillson/calorie-api-go/pkg/ratelimit"
	"github.com/stretchr/testify/mock"
)

// MockLimiter é um mock para ratelimit.Limiter
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, config ratelimit.LimitConfig) (ratelimit.Result, error) {
	args := m.Called(ctx, config)
	return args.Get(0).(ratelimit.Result), args.Error(1)
}

func (m *MockLimiter) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
