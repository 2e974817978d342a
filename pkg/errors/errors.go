package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Erros genéricos usados pelas camadas de domínio
var (
	ErrNotFound     = errors.New("recurso não encontrado")
	ErrBadRequest   = errors.New("requisição inválida")
	ErrUnauthorized = errors.New("não autorizado")
	ErrForbidden    = errors.New("acesso negado")
	ErrConflict     = errors.New("conflito de escrita concorrente")
	ErrUpstream     = errors.New("falha no serviço externo")
)

// APIError representa um erro da API com informações adicionais
type APIError struct {
	Code        int         `json:"-"`
	Message     string      `json:"error"`
	Details     interface{} `json:"details,omitempty"`
	OriginalErr error       `json:"-"`
}

// Error implementa a interface error
func (e *APIError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
	}
	return e.Message
}

// Unwrap permite usar errors.Is e errors.As
func (e *APIError) Unwrap() error {
	return e.OriginalErr
}

// New cria um novo APIError
func New(code int, message string, err error) *APIError {
	return &APIError{
		Code:        code,
		Message:     message,
		OriginalErr: err,
	}
}

// WithDetails adiciona detalhes ao erro
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// NotFound cria um erro 404
func NotFound(message string, err error) *APIError {
	if err == nil {
		err = ErrNotFound
	}
	return New(http.StatusNotFound, message, err)
}

// BadRequest cria um erro 400
func BadRequest(message string, err error) *APIError {
	if err == nil {
		err = ErrBadRequest
	}
	return New(http.StatusBadRequest, message, err)
}

// Unauthorized cria um erro 401
func Unauthorized(message string, err error) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	if err == nil {
		err = ErrUnauthorized
	}
	return New(http.StatusUnauthorized, message, err)
}

// Forbidden cria um erro 403
func Forbidden(message string, err error) *APIError {
	if message == "" {
		message = "Forbidden"
	}
	if err == nil {
		err = ErrForbidden
	}
	return New(http.StatusForbidden, message, err)
}

// Conflict cria um erro 409
func Conflict(message string, err error) *APIError {
	if err == nil {
		err = ErrConflict
	}
	return New(http.StatusConflict, message, err)
}

// InternalServer cria um erro 500
func InternalServer(message string, err error) *APIError {
	if message == "" {
		message = "Internal server error"
	}
	return New(http.StatusInternalServerError, message, err)
}

// UpstreamError descreve uma resposta de falha do estimador de calorias
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream respondeu %d: %s", e.Status, e.Message)
}

// Is faz errors.Is(err, ErrUpstream) funcionar para qualquer UpstreamError
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Upstream cria um erro 502 carregando o status devolvido pelo serviço externo
func Upstream(status int, message string) *APIError {
	return New(http.StatusBadGateway, message, &UpstreamError{Status: status, Message: message}).
		WithDetails(map[string]int{"upstreamStatus": status})
}

// As extrai um APIError da cadeia de erros
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf retorna o status HTTP associado ao erro, 500 quando desconhecido
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if apiErr, ok := As(err); ok {
		return apiErr.Code
	}
	return http.StatusInternalServerError
}
