package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/models"
)

var (
	// ErrNotFound is wrapped by repositories when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is wrapped by repositories on unique constraint violations
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Repositories called with the provided ctx join the transaction.
	// Commits if fn succeeds, rolls back on error.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction
	Context() context.Context
}

// CompanyRepository handles company data operations
type CompanyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	List(ctx context.Context, limit, offset int) ([]*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetBySubject retrieves a user by token subject
	GetBySubject(ctx context.Context, subject string) (*models.User, error)

	// GetByCompanyID retrieves all users for a company
	GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.User, error)

	// GetFirstByRole retrieves the earliest created user of a role in a company,
	// skipping excludeID
	GetFirstByRole(ctx context.Context, companyID uuid.UUID, role models.UserRole, excludeID uuid.UUID) (*models.User, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error
}

// PolicyRepository handles travel policy data operations
type PolicyRepository interface {
	Create(ctx context.Context, policy *models.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error)
	GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.Policy, error)

	// GetActiveByCompanyID retrieves the most recently updated active policy
	GetActiveByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.Policy, error)

	Update(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// BookingFilter narrows booking listings
type BookingFilter struct {
	CompanyID uuid.UUID
	UserID    *uuid.UUID
	TripID    *uuid.UUID
	Status    *models.BookingStatus
	Limit     int
	Offset    int
}

// BookingRepository handles booking data operations
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)

	// GetByIDForUpdate locks the booking row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)

	List(ctx context.Context, filter BookingFilter) ([]*models.Booking, error)

	// UpdateStatus moves a booking from one status to another.
	// Fails with ErrNotFound when the booking is not in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) error
}

// ApprovalRepository handles approval data operations
type ApprovalRepository interface {
	Create(ctx context.Context, approval *models.Approval) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Approval, error)

	// GetByIDForUpdate locks the approval row for the rest of the transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Approval, error)

	// GetPendingByBookingID retrieves the open approval of a booking
	GetPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Approval, error)

	GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.Approval, error)
	GetPendingByApproverID(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]*models.Approval, error)
	GetPendingByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Approval, error)

	// Resolve persists a decision on a pending approval
	Resolve(ctx context.Context, approval *models.Approval) error
}

// TripRepository handles trip data operations
type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Trip, error)
	GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Trip, error)
	Update(ctx context.Context, trip *models.Trip) error
	// AddCost adjusts total_cost by delta atomically and returns the new total
	AddCost(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	CompanyID uuid.UUID
	UserID    *uuid.UUID
	TripID    *uuid.UUID
	Status    *models.ExpenseStatus
	Limit     int
	Offset    int
}

// ExpenseRepository handles expense data operations
type ExpenseRepository interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByCompanyID retrieves audit logs for a company with pagination
	GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByResource retrieves audit logs for one resource
	GetByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error)

	// GetByDateRange retrieves audit logs within a date range
	GetByDateRange(ctx context.Context, companyID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Companies CompanyRepository
	Users     UserRepository
	Policies  PolicyRepository
	Bookings  BookingRepository
	Approvals ApprovalRepository
	Trips     TripRepository
	Expenses  ExpenseRepository
	AuditLogs AuditRepository
}
