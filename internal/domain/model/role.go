package model

import "strings"

// Role é o papel de uma conta; o conjunto é fechado
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole converte uma string em Role, ignorando caixa
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleModerator:
		return RoleModerator, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Valid informa se o papel pertence ao conjunto conhecido
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// Privileged informa se o papel pode gerenciar outras contas
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleModerator
}

func (r Role) String() string {
	return string(r)
}

// Identity é o chamador autenticado de uma operação
type Identity struct {
	Email string
	Role  Role
}
