package security

import (
	"crypto/rand"
	"encoding/hex"
	"os"

	"go.uber.org/zap"
)

// ResolveJWTSecret obtém o segredo JWT na seguinte ordem:
// 1. Variável de ambiente JWT_SECRET_KEY
// 2. Valor da configuração
// 3. Segredo aleatório efêmero (tokens não sobrevivem a um restart)
func ResolveJWTSecret(configured string, logger *zap.Logger) []byte {
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		return []byte(secret)
	}

	if configured != "" {
		return []byte(configured)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logger.Fatal("falha ao gerar segredo JWT temporário", zap.Error(err))
	}
	logger.Warn("segredo JWT não configurado, usando chave temporária; defina JWT_SECRET_KEY ou auth.jwtSecret")
	return []byte(hex.EncodeToString(buf))
}
