// Package response contains response utility functions and types
package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/apperror"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
)

// Response represents the standard API response structure
type Response struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// SuccessResponse sends a successful JSON response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// CreatedResponse sends a 201 JSON response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// ErrorResponse sends an error JSON response
func ErrorResponse(c echo.Context, httpStatus int, errorType, message string) error {
	return c.JSON(httpStatus, Response{
		Status:    "error",
		ErrorType: errorType,
		Message:   message,
	})
}

// FromError maps an application error to its HTTP status and error type.
// Server errors are logged with their cause and answered with a generic message.
func FromError(c echo.Context, err error) error {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Server("internal server error", err)
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		return ErrorResponse(c, http.StatusBadRequest, "InputException", appErr.Message)
	case apperror.KindAuthentication:
		return ErrorResponse(c, http.StatusUnauthorized, "AuthenticationException", appErr.Message)
	case apperror.KindNotFound:
		return ErrorResponse(c, http.StatusNotFound, "DataNotFound", appErr.Message)
	case apperror.KindConflict:
		return ErrorResponse(c, http.StatusConflict, "ConflictException", appErr.Message)
	}

	zaplogger.Error(appErr.Message, zaplogger.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
		"error":  err.Error(),
	})
	return ErrorResponse(c, http.StatusInternalServerError, "ServerException", appErr.Message)
}
