package errorx

import (
	"fmt"
	"net/http"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryAuthorization  ErrorCategory = "authorization"
	CategoryExternal       ErrorCategory = "external"
	CategoryInternal       ErrorCategory = "internal"
)

// APIError is the body of every non-2xx response
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   ErrorCategory  `json:"category"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// WithDetail returns a copy of the error carrying key
func (e *APIError) WithDetail(key string, value any) *APIError {
	c := *e
	c.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	c.Details[key] = value
	return &c
}

var (
	// Validation Errors (E1000-E1999)
	ErrInvalidUserID = &APIError{
		Code:       "E1001",
		Message:    "User id must be a non-negative integer",
		Category:   CategoryValidation,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidPayload = &APIError{
		Code:       "E1002",
		Message:    "Body must be valid JSON",
		Category:   CategoryValidation,
		HTTPStatus: http.StatusBadRequest,
	}

	ErrPayloadTooLarge = &APIError{
		Code:       "E1003",
		Message:    "Payload too large",
		Category:   CategoryValidation,
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}

	// Authentication Errors (E2000-E2999)
	ErrMissingToken = &APIError{
		Code:       "E2001",
		Message:    "Authentication token required",
		Category:   CategoryAuthentication,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidToken = &APIError{
		Code:       "E2002",
		Message:    "Invalid authentication token",
		Category:   CategoryAuthentication,
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &APIError{
		Code:       "E2003",
		Message:    "Authentication token has expired",
		Category:   CategoryAuthentication,
		HTTPStatus: http.StatusUnauthorized,
	}

	// Authorization Errors (E3000-E3999)
	ErrUserMismatch = &APIError{
		Code:       "E3001",
		Message:    "Token does not belong to this user",
		Category:   CategoryAuthorization,
		HTTPStatus: http.StatusForbidden,
	}

	ErrWrongTokenType = &APIError{
		Code:       "E3002",
		Message:    "Only access tokens may open a connection",
		Category:   CategoryAuthorization,
		HTTPStatus: http.StatusForbidden,
	}

	// External Errors (E5000-E5999)
	ErrTransportUnavailable = &APIError{
		Code:       "E5001",
		Message:    "Notification transport unavailable",
		Category:   CategoryExternal,
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrInternal = &APIError{
		Code:       "E5999",
		Message:    "Internal server error occurred",
		Category:   CategoryInternal,
		HTTPStatus: http.StatusInternalServerError,
	}
)
