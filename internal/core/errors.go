// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("conflict")
	ErrUnprocessable = errors.New("unprocessable entity")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

func InternalError(err error) *AppError {
	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}

// toAppError maps bare sentinels to their HTTP shape. Anything
// unrecognized is an internal error.
func toAppError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NewAppError(err, "resource not found", http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, ErrForbidden):
		return NewAppError(err, "forbidden", http.StatusForbidden, "FORBIDDEN")
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(err, "unauthorized", http.StatusUnauthorized, "UNAUTHORIZED")
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(err, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	case errors.Is(err, ErrConflict):
		return NewAppError(err, err.Error(), http.StatusConflict, "CONFLICT")
	case errors.Is(err, ErrUnprocessable):
		return NewAppError(
			err,
			err.Error(),
			http.StatusUnprocessableEntity,
			"UNPROCESSABLE_ENTITY",
		)
	default:
		return InternalError(err)
	}
}
