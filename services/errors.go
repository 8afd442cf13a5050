package services

import (
	"errors"
	"fmt"

	"github.com/upb/travel-control-plane/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeRouting      ErrorType = "routing"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors of the same type and message, so a wrapped copy of
// a sentinel still matches the sentinel. A target without a message matches
// any error of its type.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if e.Type != t.Type {
		return false
	}
	return t.Message == "" || e.Message == t.Message
}

// WithDetail returns a copy of the error with key set in its details.
// The receiver is never modified, so sentinels can be annotated safely.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// Wrap returns a copy of the error carrying cause. Sentinels stay untouched.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Message: e.Message,
		Err:     cause,
		Details: make(map[string]interface{}),
	}
}

// Wrapf is Wrap with a formatted cause
func (e *DomainError) Wrapf(format string, args ...interface{}) *DomainError {
	return e.Wrap(fmt.Errorf(format, args...))
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrCompanyNotFound  = NewDomainError(ErrorTypeNotFound, "company not found", nil)
	ErrUserNotFound     = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrPolicyNotFound   = NewDomainError(ErrorTypeNotFound, "policy not found", nil)
	ErrBookingNotFound  = NewDomainError(ErrorTypeNotFound, "booking not found", nil)
	ErrApprovalNotFound = NewDomainError(ErrorTypeNotFound, "approval not found", nil)
	ErrTripNotFound     = NewDomainError(ErrorTypeNotFound, "trip not found", nil)
	ErrExpenseNotFound  = NewDomainError(ErrorTypeNotFound, "expense not found", nil)
	ErrAuditLogNotFound = NewDomainError(ErrorTypeNotFound, "audit log not found", nil)
	ErrNoActivePolicy   = NewDomainError(ErrorTypeNotFound, "no active policy", nil)

	// Validation Errors
	ErrInvalidInput        = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidPolicyConfig = NewDomainError(ErrorTypeValidation, "invalid policy configuration", nil)
	ErrInvalidBooking      = NewDomainError(ErrorTypeValidation, "invalid booking", nil)
	ErrInvalidExpense      = NewDomainError(ErrorTypeValidation, "invalid expense", nil)
	ErrInvalidOutcome      = NewDomainError(ErrorTypeValidation, "outcome must be approved or rejected", nil)
	ErrInvalidEmail        = NewDomainError(ErrorTypeValidation, "invalid email format", nil)
	ErrInvalidManager      = NewDomainError(ErrorTypeValidation, "invalid manager", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	// Permission Errors
	ErrForbidden               = NewDomainError(ErrorTypeForbidden, "access forbidden", nil)
	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "insufficient permissions", nil)
	ErrCompanyMismatch         = NewDomainError(ErrorTypeForbidden, "company mismatch", nil)
	ErrNotApprover             = NewDomainError(ErrorTypeForbidden, "not the designated approver", nil)

	// Conflict Errors
	ErrDuplicateEmail     = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrDuplicateRecord    = NewDomainError(ErrorTypeConflict, "record already exists", nil)
	ErrInvalidTransition  = NewDomainError(ErrorTypeConflict, "invalid booking status transition", nil)
	ErrApprovalNotPending = NewDomainError(ErrorTypeConflict, "approval is not pending", nil)
	ErrConcurrentUpdate   = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)
	ErrExpenseReviewed    = NewDomainError(ErrorTypeConflict, "expense has already been reviewed", nil)

	// Routing Errors
	ErrNoApproverAvailable = NewDomainError(ErrorTypeRouting, "no approver available", nil)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)
	ErrCacheFailed       = NewDomainError(ErrorTypeInternal, "cache operation failed", nil)

	// External Errors
	ErrNotificationFailed = NewDomainError(ErrorTypeExternal, "notification delivery failed", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsRoutingError checks if an error is an approval routing failure
func IsRoutingError(err error) bool {
	return hasType(err, ErrorTypeRouting)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external collaborator error
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external collaborator error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// FromRepository translates repository errors. ErrNotFound becomes notFound,
// ErrDuplicate a conflict, anything else an internal error described by message.
// Domain errors pass through unchanged.
func FromRepository(err error, notFound *DomainError, message string) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return notFound.Wrap(err)
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrDuplicateRecord.Wrap(err)
	}
	return WrapInternal(message, err)
}
