package errors

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeBadSignature     = "BAD_SIGNATURE"
	ErrCodeProviderAPI      = "PROVIDER_API_ERROR"
	ErrCodeProviderAuth     = "PROVIDER_AUTH_ERROR"
	ErrCodeRegistry         = "REGISTRY_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeQueueFull        = "QUEUE_FULL"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// BadSignature creates a webhook signature verification error
func BadSignature() *AppError {
	return New(ErrCodeBadSignature, "Invalid signature", http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// ProviderAuthError creates a provider authentication error
func ProviderAuthError(err error) *AppError {
	return Wrap(err, ErrCodeProviderAuth,
		"Failed to authenticate with Cloudflare",
		http.StatusUnauthorized)
}

// ProviderAPIError creates a provider API error
func ProviderAPIError(err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		"Failed to communicate with Cloudflare API",
		http.StatusBadGateway)
}

// RegistryError creates a registry write error
func RegistryError(message string, err error) *AppError {
	return Wrap(err, ErrCodeRegistry, message, http.StatusBadGateway)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// QueueFull creates an error for a saturated dispatch queue
func QueueFull() *AppError {
	return New(ErrCodeQueueFull, "Dispatch queue is full, try again later", http.StatusServiceUnavailable)
}
