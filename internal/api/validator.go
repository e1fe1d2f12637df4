// Package api wires the HTTP routes, request validation and middleware of the Finance API
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nsvirk/financeapi/internal/apperror"
)

// RequestValidator validates bound request bodies for echo
type RequestValidator struct {
	validator *validator.Validate
}

// NewRequestValidator creates a validator that reports fields by their json names
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validator: v}
}

// Validate implements echo.Validator
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return apperror.Validation("invalid request: %v", err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fieldMessage(fe))
	}
	return apperror.Validation("%s", strings.Join(messages, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("`%s` is required", fe.Field())
	case "email":
		return fmt.Sprintf("`%s` must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("`%s` must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("`%s` must be at most %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("`%s` must contain only digits", fe.Field())
	case "dive":
		return fmt.Sprintf("`%s` is invalid", fe.Field())
	default:
		return fmt.Sprintf("`%s` failed %s validation", fe.Field(), fe.Tag())
	}
}
