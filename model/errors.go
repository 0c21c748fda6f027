package model

import "fmt"

// Standard error codes surfaced by the editor API.
const (
	ErrBadRequest          = "BAD_REQUEST"
	ErrUnauthorized        = "UNAUTHORIZED"
	ErrForbidden           = "FORBIDDEN"
	ErrNotFound            = "NOT_FOUND"
	ErrConflict            = "CONFLICT"
	ErrValidationError     = "VALIDATION_ERROR"
	ErrInternalError       = "INTERNAL_ERROR"
	ErrUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	ErrSessionInvalid      = "SESSION_INVALID"
)

// ErrorEnvelope is the standard error response envelope. It implements the
// error interface so domain code can return it directly.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewUpstreamUnavailableError returns an UPSTREAM_UNAVAILABLE error.
func NewUpstreamUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUpstreamUnavailable,
		Message: "The configuration backend is temporarily unavailable",
	}
}

// NewUpstreamTimeoutError returns an UPSTREAM_TIMEOUT error.
func NewUpstreamTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUpstreamTimeout,
		Message: "The configuration backend did not respond in time",
	}
}

// NewSessionInvalidError returns a SESSION_INVALID error. The upstream
// session credential was rejected; callers route this through the global
// unauthorized path.
func NewSessionInvalidError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrSessionInvalid,
		Message: "The upstream session is no longer valid",
	}
}
