package errors

import (
	"fmt"
	"time"
)

type baseError struct {
	message string
}

func (e *baseError) Error() string {
	return e.message
}

// ValidationError is returned for malformed input (bad phone, bad link, size over limit)
type ValidationError struct {
	baseError
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{baseError{message: message}}
}

func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{baseError{message: fmt.Sprintf(format, args...)}}
}

// UnauthorizedError is returned when the provider rejects a code, password or session
type UnauthorizedError struct {
	baseError
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{baseError{message: message}}
}

// PermissionError is returned when a user invokes an operator-only command
type PermissionError struct {
	baseError
}

func NewPermissionError(message string) *PermissionError {
	return &PermissionError{baseError{message: message}}
}

// NotFoundError is returned when a chat, message or record does not exist
type NotFoundError struct {
	baseError
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{baseError{message: message}}
}

func NewNotFoundErrorf(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{baseError{message: fmt.Sprintf(format, args...)}}
}

// ConflictError is returned when the requested transition clashes with current state
type ConflictError struct {
	baseError
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{baseError{message: message}}
}

// ExpiredError is returned when a login attempt can no longer continue
type ExpiredError struct {
	baseError
}

func NewExpiredError(message string) *ExpiredError {
	return &ExpiredError{baseError{message: message}}
}

// InternalError is returned for local failures (disk, permissions, unexpected state)
type InternalError struct {
	baseError
}

func NewInternalError(message string) *InternalError {
	return &InternalError{baseError{message: message}}
}

func NewInternalErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{baseError{message: fmt.Sprintf(format, args...)}}
}

// ServiceUnavailableError is returned when a backing service (database, provider) is down
type ServiceUnavailableError struct {
	baseError
}

func NewServiceUnavailableError(message string) *ServiceUnavailableError {
	return &ServiceUnavailableError{baseError{message: message}}
}

// RateLimitError is returned when the provider asks the caller to wait
type RateLimitError struct {
	baseError
	RetryAfter time.Duration
}

func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		baseError:  baseError{message: fmt.Sprintf("rate limited, retry after %s", retryAfter)},
		RetryAfter: retryAfter,
	}
}
