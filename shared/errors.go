package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryInvalidState   ErrorCategory = "invalid_state"
	ErrorCategoryConflict       ErrorCategory = "conflict"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryAuthorization  ErrorCategory = "authorization"
	ErrorCategoryDatabase       ErrorCategory = "database"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryUnavailable    ErrorCategory = "unavailable"
	ErrorCategoryConfiguration  ErrorCategory = "configuration"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// WithOperation records where the error surfaced.
func (e *ServiceError) WithOperation(serviceName, operation string) *ServiceError {
	e.ServiceName = serviceName
	e.Operation = operation
	return e
}

func (e *ServiceError) IsRetryable() bool {
	return e.Retryable
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

func NewNotFoundError(message string) *ServiceError {
	return NewServiceError(ErrorCategoryNotFound, "NOT_FOUND", message, "", "", false, nil)
}

func NewInvalidStateError(message string) *ServiceError {
	return NewServiceError(ErrorCategoryInvalidState, "INVALID_STATE", message, "", "", false, nil)
}

func NewConflictError(message string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryConflict, "CONFLICT", message, "", "", false, cause)
}

func NewValidationError(message string) *ServiceError {
	return NewServiceError(ErrorCategoryValidation, "VALIDATION_FAILED", message, "", "", false, nil)
}

func NewUnauthorizedError(message string) *ServiceError {
	return NewServiceError(ErrorCategoryAuthentication, "UNAUTHORIZED", message, "", "", false, nil)
}

func NewForbiddenError(message string) *ServiceError {
	return NewServiceError(ErrorCategoryAuthorization, "FORBIDDEN", message, "", "", false, nil)
}

func NewDatabaseError(operation string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryDatabase, "DATABASE_ERROR", "database operation failed", "database", operation, IsRetryableError(cause), cause)
}

func NewUnavailableError(message string, cause error) *ServiceError {
	return NewServiceError(ErrorCategoryUnavailable, "SERVICE_UNAVAILABLE", message, "", "", true, cause)
}

// CategoryOf returns the category of the first ServiceError in err's chain,
// or "" when there is none.
func CategoryOf(err error) ErrorCategory {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Category
	}
	return ""
}

// IsCategory reports whether err carries a ServiceError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	return CategoryOf(err) == category
}

// HTTPStatusForError maps an error to the status code the API responds with.
func HTTPStatusForError(err error) int {
	switch CategoryOf(err) {
	case ErrorCategoryNotFound:
		return http.StatusNotFound
	case ErrorCategoryInvalidState, ErrorCategoryConflict, ErrorCategoryValidation:
		return http.StatusBadRequest
	case ErrorCategoryAuthentication:
		return http.StatusUnauthorized
	case ErrorCategoryAuthorization:
		return http.StatusForbidden
	case ErrorCategoryUnavailable, ErrorCategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients. Internal
// failures never leak their cause.
func PublicMessage(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) && HTTPStatusForError(err) != http.StatusInternalServerError {
		return serviceErr.Message
	}
	return "Internal server error"
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		serviceErr.ServiceName = serviceName
		serviceErr.Operation = operation
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.IsRetryable()
	}

	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket", "bad connection",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}
