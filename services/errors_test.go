package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/repositories"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "booking not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: booking not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeRouting,
				Message: "no approver available",
			},
			wantMsg: "routing: no approver available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"wrapped copy of sentinel", ErrBookingNotFound.Wrap(errors.New("x")), ErrBookingNotFound, true},
		{"same type other message", ErrTripNotFound, ErrBookingNotFound, false},
		{"type-only target", ErrTripNotFound, &DomainError{Type: ErrorTypeNotFound}, true},
		{"different type", ErrInvalidInput, ErrBookingNotFound, false},
		{"not a domain error", ErrBookingNotFound, errors.New("regular error"), false},
		{"through fmt wrapping", fmt.Errorf("submit: %w", ErrNotApprover), ErrNotApprover, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WrapLeavesSentinelUntouched(t *testing.T) {
	cause := errors.New("approval 42 is approved")
	wrapped := ErrApprovalNotPending.Wrap(cause).WithDetail("status", "approved")

	assert.Nil(t, ErrApprovalNotPending.Err)
	assert.Empty(t, ErrApprovalNotPending.Details)
	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.Equal(t, "approved", wrapped.Details["status"])

	formatted := ErrInvalidBooking.Wrapf("price %s is negative", "-1")
	assert.Equal(t, "validation: invalid booking (price -1 is negative)", formatted.Error())
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", ErrPolicyNotFound, IsNotFoundError, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrUserNotFound), IsNotFoundError, true},
		{"nil error", nil, IsNotFoundError, false},
		{"validation", ErrInvalidOutcome, IsValidationError, true},
		{"validation on not found", ErrPolicyNotFound, IsValidationError, false},
		{"unauthorized", ErrTokenExpired, IsUnauthorizedError, true},
		{"forbidden", ErrNotApprover, IsForbiddenError, true},
		{"forbidden on unauthorized", ErrUnauthorized, IsForbiddenError, false},
		{"conflict transition", ErrInvalidTransition, IsConflictError, true},
		{"conflict not pending", ErrApprovalNotPending, IsConflictError, true},
		{"routing", ErrNoApproverAvailable, IsRoutingError, true},
		{"routing on internal", ErrInternal, IsRoutingError, false},
		{"internal", ErrDatabaseError, IsInternalError, true},
		{"external", ErrNotificationFailed, IsExternalError, true},
		{"regular error", errors.New("regular"), IsInternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeNotFound, GetErrorType(ErrPolicyNotFound))
	assert.Equal(t, ErrorTypeRouting, GetErrorType(fmt.Errorf("x: %w", ErrNoApproverAvailable)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil).
		WithDetail("field", "price").
		WithDetail("reason", "must not be negative")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "price", details["field"])
	assert.Equal(t, "must not be negative", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("base error")

	wrapped := WrapError(ErrorTypeConflict, "wrapped message", baseErr)
	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeConflict, domainErr.Type)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))

	assert.True(t, IsInternalError(WrapInternal("failed to connect", baseErr)))
	assert.True(t, IsExternalError(WrapExternal("smtp relay refused", baseErr)))
}

func TestFromRepository(t *testing.T) {
	notFound := fmt.Errorf("booking 1 not found: %w", repositories.ErrNotFound)
	duplicate := fmt.Errorf("user a@b.c already exists: %w", repositories.ErrDuplicate)
	other := errors.New("connection refused")

	assert.Nil(t, FromRepository(nil, ErrBookingNotFound, "failed"))

	err := FromRepository(notFound, ErrBookingNotFound, "failed to get booking")
	assert.True(t, errors.Is(err, ErrBookingNotFound))
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	err = FromRepository(duplicate, ErrUserNotFound, "failed to create user")
	assert.True(t, IsConflictError(err))

	err = FromRepository(other, ErrBookingNotFound, "failed to get booking")
	assert.True(t, IsInternalError(err))
	assert.Contains(t, err.Error(), "failed to get booking")

	assert.Equal(t, ErrNotApprover, FromRepository(ErrNotApprover, ErrBookingNotFound, "x"))
}

func TestWithDetail_LeavesReceiverUntouched(t *testing.T) {
	annotated := ErrInvalidOutcome.WithDetail("outcome", "maybe")

	assert.Empty(t, ErrInvalidOutcome.Details)
	assert.Equal(t, "maybe", annotated.Details["outcome"])
	assert.ErrorIs(t, annotated, ErrInvalidOutcome)

	again := annotated.WithDetail("actor", "ana")
	assert.Len(t, annotated.Details, 1)
	assert.Len(t, again.Details, 2)
}

func TestWithDetail_ConcurrentAnnotationOfSentinel(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := ErrInvalidBooking.WithDetail("attempt", i)
			assert.Equal(t, i, err.Details["attempt"])
		}(i)
	}
	wg.Wait()

	assert.Empty(t, ErrInvalidBooking.Details)
}
