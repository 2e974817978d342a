// Package policy decide o que cada papel pode ler e escrever.
// As funções são puras e rodam antes de qualquer acesso ao repositório.
package policy

import (
	"github.com/diillson/calorie-api-go/internal/domain/model"
	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
)

// CanAccess decide se o chamador pode ler ou modificar um recurso do dono informado
func CanAccess(caller model.Identity, ownerEmail string, ownerRole model.Role) error {
	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleModerator:
		if ownerEmail == caller.Email || ownerRole == model.RoleUser {
			return nil
		}
	case model.RoleUser:
		if ownerEmail == caller.Email {
			return nil
		}
	}
	return forbidden()
}

// CanTargetEmail é o pré-teste feito antes de qualquer leitura: um usuário
// comum só pode endereçar o próprio email, exista o alvo ou não
func CanTargetEmail(caller model.Identity, email string) error {
	if !caller.Role.Valid() {
		return forbidden()
	}
	if caller.Role == model.RoleUser && caller.Email != email {
		return forbidden()
	}
	return nil
}

// CanCreateUser decide se o chamador pode criar uma conta com o papel informado
func CanCreateUser(caller model.Identity, role model.Role) error {
	if !role.Valid() {
		return apierrors.BadRequest("Invalid role", nil)
	}
	switch caller.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleModerator:
		if role == model.RoleUser || role == model.RoleModerator {
			return nil
		}
	}
	return forbidden()
}

// CanAssignRole decide se o chamador pode mudar o papel de uma conta
// já acessível para o novo papel
func CanAssignRole(caller model.Identity, current, next model.Role) error {
	if current == next {
		return nil
	}
	if caller.Role == model.RoleUser {
		return forbidden()
	}
	return CanCreateUser(caller, next)
}

// Scope restringe os donos visíveis em uma listagem
type Scope struct {
	// Owner fixa um único dono; vazio significa sem restrição por email
	Owner string
	// IncludeUserRole inclui todos os donos com papel user além de Owner
	IncludeUserRole bool
}

// Unrestricted informa se a listagem pode ver todos os donos
func (s Scope) Unrestricted() bool {
	return s.Owner == "" && !s.IncludeUserRole
}

// ScopeList calcula o escopo de uma listagem. ownerRole só é consultado
// quando um moderador pede explicitamente outro dono.
func ScopeList(caller model.Identity, ownerFilter string, ownerRole func() (model.Role, error)) (Scope, error) {
	switch caller.Role {
	case model.RoleAdmin:
		return Scope{Owner: ownerFilter}, nil

	case model.RoleModerator:
		if ownerFilter == "" {
			return Scope{Owner: caller.Email, IncludeUserRole: true}, nil
		}
		if ownerFilter == caller.Email {
			return Scope{Owner: ownerFilter}, nil
		}
		role, err := ownerRole()
		if err != nil {
			return Scope{}, err
		}
		if role != model.RoleUser {
			return Scope{}, forbidden()
		}
		return Scope{Owner: ownerFilter}, nil

	case model.RoleUser:
		if ownerFilter != "" && ownerFilter != caller.Email {
			return Scope{}, forbidden()
		}
		return Scope{Owner: caller.Email}, nil
	}

	return Scope{}, forbidden()
}

func forbidden() error {
	return apierrors.Forbidden("Forbidden", nil)
}
