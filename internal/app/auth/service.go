// Package auth resolve o token de acesso na identidade do chamador.
package auth

import (
	"context"
	"errors"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/diillson/calorie-api-go/internal/domain/repository"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/diillson/calorie-api-go/pkg/security"
	"go.uber.org/zap"
)

// UserReader é a parte do repositório de usuários usada na validação
type UserReader interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// TokenVerifier verifica assinatura e validade do token
type TokenVerifier interface {
	VerifyToken(token string) (*security.Claims, error)
}

// AuthService valida tokens de acesso
type AuthService struct {
	tokens TokenVerifier
	users  UserReader
	logger *zap.Logger
}

// NewAuthService cria um novo serviço de autenticação
func NewAuthService(tokens TokenVerifier, users UserReader, logger *zap.Logger) *AuthService {
	return &AuthService{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// ValidateToken valida o token e devolve a identidade do titular. O papel
// vem da conta armazenada, não do token, para que mudanças de papel e
// remoções valham imediatamente.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, apierrors.Unauthorized("Authentication required", nil)
	}

	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return model.Identity{}, apierrors.Unauthorized("Token expired", err)
		}
		return model.Identity{}, apierrors.Unauthorized("Invalid token", err)
	}

	user, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("Usuário do token não encontrado", zap.String("email", claims.Email))
			return model.Identity{}, apierrors.Unauthorized("Invalid token", err)
		}
		return model.Identity{}, err
	}

	if claims.Role != user.Role.String() {
		s.logger.Debug("Papel do token difere do armazenado",
			zap.String("email", user.Email),
			zap.String("token_role", claims.Role),
			zap.String("role", user.Role.String()))
	}

	return model.Identity{Email: user.Email, Role: user.Role}, nil
}
