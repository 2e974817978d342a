package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrTokenExpired = errors.New("token expirado")
	ErrTokenInvalid = errors.New("token inválido")
	ErrShortSecret  = errors.New("jwt secret key muito curta")
)

// Claims carrega a identidade do titular do token
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// KeyManager emite e verifica tokens HS256
type KeyManager struct {
	secretKey []byte
	duration  time.Duration
	logger    *zap.Logger
}

// NewKeyManager cria um KeyManager; o segredo precisa de pelo menos 32 bytes
func NewKeyManager(secretKey []byte, duration time.Duration, logger *zap.Logger) (*KeyManager, error) {
	if len(secretKey) < 32 {
		return nil, ErrShortSecret
	}
	if duration <= 0 {
		duration = time.Hour
	}

	return &KeyManager{
		secretKey: secretKey,
		duration:  duration,
		logger:    logger,
	}, nil
}

// GenerateToken assina um token para o email e papel informados
func (km *KeyManager) GenerateToken(email, role string) (string, error) {
	now := time.Now()

	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(km.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(km.secretKey)
	if err != nil {
		km.logger.Error("falha ao gerar token JWT", zap.Error(err))
		return "", err
	}

	return tokenString, nil
}

// VerifyToken valida assinatura e validade e devolve os claims
func (km *KeyManager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return km.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		km.logger.Debug("falha ao validar token JWT", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Duration retorna o tempo de vida dos tokens emitidos
func (km *KeyManager) Duration() time.Duration {
	return km.duration
}
