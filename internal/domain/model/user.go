package model

import "time"

// User representa uma conta do sistema
type User struct {
	Email                  string    `json:"email"`
	Name                   string    `json:"name"`
	Surname                string    `json:"surname"`
	PasswordHash           string    `json:"-"`
	Role                   Role      `json:"role,omitempty"`
	ExpectedCaloriesPerDay int       `json:"expectedCaloriesPerDay"`
	CreatedAt              time.Time `json:"-"`
}

// UserEntity é a representação de banco de dados de um usuário
type UserEntity struct {
	Email                  string    `gorm:"primaryKey;size:100"`
	Name                   string    `gorm:"size:30;not null"`
	Surname                string    `gorm:"size:100;not null"`
	Password               string    `gorm:"not null"`
	Role                   string    `gorm:"size:20;not null;default:user;index"`
	ExpectedCaloriesPerDay int       `gorm:"not null"`
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

// TableName define o nome da tabela
func (UserEntity) TableName() string {
	return "users"
}

// ToModel converte a entidade para o modelo de domínio
func (e *UserEntity) ToModel() *User {
	return &User{
		Email:                  e.Email,
		Name:                   e.Name,
		Surname:                e.Surname,
		PasswordHash:           e.Password,
		Role:                   Role(e.Role),
		ExpectedCaloriesPerDay: e.ExpectedCaloriesPerDay,
		CreatedAt:              e.CreatedAt,
	}
}

// UserEntityFromModel converte o modelo de domínio para a entidade
func UserEntityFromModel(u *User) *UserEntity {
	return &UserEntity{
		Email:                  u.Email,
		Name:                   u.Name,
		Surname:                u.Surname,
		Password:               u.PasswordHash,
		Role:                   string(u.Role),
		ExpectedCaloriesPerDay: u.ExpectedCaloriesPerDay,
		CreatedAt:              u.CreatedAt,
	}
}
