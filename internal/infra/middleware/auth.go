package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diillson/calorie-api-go/internal/domain/model"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// identityKey é a chave da identidade autenticada no contexto do gin
const identityKey = "identity"

// TokenValidator resolve um token de acesso na identidade do titular
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (model.Identity, error)
}

// AuthMiddleware gerencia middlewares de autenticação
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware cria uma nova instância do middleware de autenticação
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// Authenticate exige um bearer token válido e guarda a identidade no contexto
func (m *AuthMiddleware) Authenticate(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		abortWithError(c, apierrors.Unauthorized("Authorization header missing", nil))
		return
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		abortWithError(c, apierrors.Unauthorized("Invalid authorization header format", nil))
		return
	}

	identity, err := m.validator.ValidateToken(c.Request.Context(), strings.TrimSpace(token))
	if err != nil {
		if apierrors.StatusOf(err) != http.StatusUnauthorized {
			m.logger.Error("falha ao validar token", zap.Error(err))
		}
		abortWithError(c, err)
		return
	}

	c.Set(identityKey, identity)
	c.Next()
}

// RequirePrivileged exige um chamador admin ou moderador; roda depois de Authenticate
func (m *AuthMiddleware) RequirePrivileged(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		abortWithError(c, apierrors.Unauthorized("", nil))
		return
	}
	if !identity.Role.Privileged() {
		abortWithError(c, apierrors.Forbidden("", nil))
		return
	}
	c.Next()
}

// IdentityFrom devolve a identidade guardada por Authenticate
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return model.Identity{}, false
	}
	identity, ok := value.(model.Identity)
	return identity, ok
}

func abortWithError(c *gin.Context, err error) {
	status := apierrors.StatusOf(err)
	message := http.StatusText(status)
	if apiErr, ok := apierrors.As(err); ok {
		message = apiErr.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
