package http

import (
	"context"
	"net/http"

	"github.com/diillson/calorie-api-go/internal/app/user"
	"github.com/diillson/calorie-api-go/internal/domain/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserService é o motor de contas visto pelos handlers
type UserService interface {
	Signup(ctx context.Context, in user.SignupInput) error
	Login(ctx context.Context, email, password string) (string, error)
	Create(ctx context.Context, caller model.Identity, in user.CreateInput) error
	Get(ctx context.Context, caller model.Identity, email string) (*model.User, error)
	List(ctx context.Context, caller model.Identity, in user.ListInput) ([]*model.User, error)
	Update(ctx context.Context, caller model.Identity, email string, in user.UpdateInput) error
	Delete(ctx context.Context, caller model.Identity, email string) error
}

// UserHandler implementa os handlers de /users
type UserHandler struct {
	users    UserService
	logger   *zap.Logger
	maxLimit int
}

// NewUserHandler cria um novo handler de usuários
func NewUserHandler(users UserService, maxLimit int, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		logger:   logger,
		maxLimit: maxLimit,
	}
}

type signupRequest struct {
	Email                  string `json:"email" validate:"required,email,max=100"`
	Name                   string `json:"name" validate:"required,max=30"`
	Surname                string `json:"surname" validate:"required,max=100"`
	Password               string `json:"password" validate:"required"`
	ExpectedCaloriesPerDay int    `json:"expectedCaloriesPerDay" validate:"required,gt=0"`
}

func (r signupRequest) input() user.SignupInput {
	return user.SignupInput{
		Email:                  r.Email,
		Name:                   r.Name,
		Surname:                r.Surname,
		Password:               r.Password,
		ExpectedCaloriesPerDay: r.ExpectedCaloriesPerDay,
	}
}

type createUserRequest struct {
	signupRequest
	Role string `json:"role" validate:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateUserRequest struct {
	Name                   *string `json:"name" validate:"omitempty,max=30"`
	Surname                *string `json:"surname" validate:"omitempty,max=100"`
	Password               *string `json:"password" validate:"omitempty,min=1"`
	Role                   *string `json:"role" validate:"omitempty,max=20"`
	ExpectedCaloriesPerDay *int    `json:"expectedCaloriesPerDay" validate:"omitempty,gt=0"`
}

// Signup cadastra uma conta pública com papel user
func (h *UserHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.users.Signup(c.Request.Context(), req.input()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusCreated, nil)
}

// Login troca email e senha por um token de acesso
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusOK, gin.H{"accessToken": token})
}

// Create cadastra uma conta com papel, para admins e moderadores
func (h *UserHandler) Create(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req createUserRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	err = h.users.Create(c.Request.Context(), identity, user.CreateInput{
		SignupInput: req.input(),
		Role:        req.Role,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusCreated, nil)
}

// List lista as contas visíveis ao chamador
func (h *UserHandler) List(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	limit, skip, err := paging(c, h.maxLimit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	users, err := h.users.List(c.Request.Context(), identity, user.ListInput{
		Filter: c.Query("filter"),
		Limit:  limit,
		Skip:   skip,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Get devolve uma conta
func (h *UserHandler) Get(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	u, err := h.users.Get(c.Request.Context(), identity, c.Param("email"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Update altera uma conta
func (h *UserHandler) Update(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	err = h.users.Update(c.Request.Context(), identity, c.Param("email"), user.UpdateInput{
		Name:                   req.Name,
		Surname:                req.Surname,
		Password:               req.Password,
		Role:                   req.Role,
		ExpectedCaloriesPerDay: req.ExpectedCaloriesPerDay,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusOK, nil)
}

// Delete remove uma conta e os registros dela
func (h *UserHandler) Delete(c *gin.Context) {
	identity, err := caller(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.users.Delete(c.Request.Context(), identity, c.Param("email")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	done(c, http.StatusOK, nil)
}
