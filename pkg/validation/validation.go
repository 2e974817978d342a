// Package validation valida os DTOs de requisição com go-playground/validator
// e traduz as falhas em mensagens legíveis para o cliente.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	apierrors "github.com/diillson/calorie-api-go/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		// mensagens usam o nome do campo no JSON
		instance.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return instance
}

// Struct valida v e devolve um BadRequest descrevendo todos os campos inválidos
func Struct(v interface{}) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	return apierrors.BadRequest(FormatValidationError(err), err)
}

// FormatValidationError junta as mensagens de cada campo inválido
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, fieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must match the format %s", field, layoutName(fe.Param()))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func layoutName(layout string) string {
	switch layout {
	case "2006-01-02":
		return "YYYY-MM-DD"
	case "15:04:05":
		return "HH:MM:SS"
	}
	return layout
}
