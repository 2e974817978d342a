package security

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword gera o hash bcrypt da senha
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compara a senha com o hash armazenado
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash é comparado quando a conta não existe, para que o tempo de
// resposta do login não revele se o email está cadastrado
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("calorie-api-dummy-password"), bcrypt.DefaultCost)

// BurnPasswordCheck executa uma comparação descartável
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
