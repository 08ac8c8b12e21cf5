package errorx

import (
	"fmt"
	"net/http"
)

// Category represents different categories of errors
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "authentication"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryInternal   Category = "internal"
	CategoryExternal   Category = "external"
	CategoryPayload    Category = "payload"
)

// APIError represents a structured API error
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   Category       `json:"category"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Category, e.Message)
}

// WithDetail returns a copy of the error with an extra detail attached.
// Predefined errors are shared values, so the receiver is never mutated.
func (e *APIError) WithDetail(key string, value any) *APIError {
	clone := *e
	clone.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

// WithMessage returns a copy of the error with the message replaced.
func (e *APIError) WithMessage(format string, args ...any) *APIError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Predefined errors used across the services.
var (
	ErrBadRequest = &APIError{
		Code: "E4000", Message: "invalid request", Category: CategoryValidation,
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnauthorized = &APIError{
		Code: "E4010", Message: "unauthorized", Category: CategoryAuth,
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrNotFound = &APIError{
		Code: "E4040", Message: "resource not found", Category: CategoryNotFound,
		HTTPStatus: http.StatusNotFound,
	}
	ErrConflict = &APIError{
		Code: "E4090", Message: "resource already exists", Category: CategoryConflict,
		HTTPStatus: http.StatusConflict,
	}
	ErrPayloadTooLarge = &APIError{
		Code: "E4130", Message: "payload too large", Category: CategoryPayload,
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
	ErrUnsupportedMedia = &APIError{
		Code: "E4150", Message: "unsupported media type", Category: CategoryPayload,
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
	ErrInternal = &APIError{
		Code: "E5000", Message: "internal server error", Category: CategoryInternal,
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrUpstream = &APIError{
		Code: "E5020", Message: "upstream service error", Category: CategoryExternal,
		HTTPStatus: http.StatusBadGateway,
	}
)

// NotFoundError creates a not found error for a specific resource
func NotFoundError(resourceType, identifier string) *APIError {
	return ErrNotFound.
		WithMessage("%s not found", resourceType).
		WithDetail("resource_type", resourceType).
		WithDetail("identifier", identifier)
}

// ValidationError creates a validation error with field details
func ValidationError(field, reason string) *APIError {
	return ErrBadRequest.
		WithMessage("invalid value for %s", field).
		WithDetail("field", field).
		WithDetail("reason", reason)
}
