// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
)

// CompanyRepository is a mock implementation of repositories.CompanyRepository
type CompanyRepository struct {
	mock.Mock
}

func (m *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Company), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CompanyRepository) List(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	args := m.Called(ctx, limit, offset)
	if c := args.Get(0); c != nil {
		return c.([]*models.Company), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

// UserRepository is a mock implementation of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, companyID)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetFirstByRole(ctx context.Context, companyID uuid.UUID, role models.UserRole, excludeID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, companyID, role, excludeID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

// PolicyRepository is a mock implementation of repositories.PolicyRepository
type PolicyRepository struct {
	mock.Mock
}

func (m *PolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return m.Called(ctx, policy).Error(0)
}

func (m *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PolicyRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID) ([]*models.Policy, error) {
	args := m.Called(ctx, companyID)
	if p := args.Get(0); p != nil {
		return p.([]*models.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PolicyRepository) GetActiveByCompanyID(ctx context.Context, companyID uuid.UUID) (*models.Policy, error) {
	args := m.Called(ctx, companyID)
	if p := args.Get(0); p != nil {
		return p.(*models.Policy), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PolicyRepository) Update(ctx context.Context, policy *models.Policy) error {
	return m.Called(ctx, policy).Error(0)
}

func (m *PolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// BookingRepository is a mock implementation of repositories.BookingRepository
type BookingRepository struct {
	mock.Mock
}

func (m *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BookingRepository) List(ctx context.Context, filter repositories.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, filter)
	if b := args.Get(0); b != nil {
		return b.([]*models.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

// ApprovalRepository is a mock implementation of repositories.ApprovalRepository
type ApprovalRepository struct {
	mock.Mock
}

func (m *ApprovalRepository) Create(ctx context.Context, approval *models.Approval) error {
	return m.Called(ctx, approval).Error(0)
}

func (m *ApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Approval, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) GetPendingByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Approval, error) {
	args := m.Called(ctx, bookingID)
	if a := args.Get(0); a != nil {
		return a.(*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.Approval, error) {
	args := m.Called(ctx, bookingID)
	if a := args.Get(0); a != nil {
		return a.([]*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) GetPendingByApproverID(ctx context.Context, approverID uuid.UUID, limit, offset int) ([]*models.Approval, error) {
	args := m.Called(ctx, approverID, limit, offset)
	if a := args.Get(0); a != nil {
		return a.([]*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) GetPendingByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Approval, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if a := args.Get(0); a != nil {
		return a.([]*models.Approval), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ApprovalRepository) Resolve(ctx context.Context, approval *models.Approval) error {
	return m.Called(ctx, approval).Error(0)
}

// TripRepository is a mock implementation of repositories.TripRepository
type TripRepository struct {
	mock.Mock
}

func (m *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

func (m *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TripRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Trip, error) {
	args := m.Called(ctx, userID, limit, offset)
	if t := args.Get(0); t != nil {
		return t.([]*models.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TripRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.Trip, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if t := args.Get(0); t != nil {
		return t.([]*models.Trip), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TripRepository) Update(ctx context.Context, trip *models.Trip) error {
	return m.Called(ctx, trip).Error(0)
}

func (m *TripRepository) AddCost(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// ExpenseRepository is a mock implementation of repositories.ExpenseRepository
type ExpenseRepository struct {
	mock.Mock
}

func (m *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return m.Called(ctx, expense).Error(0)
}

func (m *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Expense, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.Expense), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExpenseRepository) List(ctx context.Context, filter repositories.ExpenseFilter) ([]*models.Expense, error) {
	args := m.Called(ctx, filter)
	if e := args.Get(0); e != nil {
		return e.([]*models.Expense), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	return m.Called(ctx, expense).Error(0)
}

func (m *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// AuditRepository is a mock implementation of repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	args := m.Called(ctx, id)
	if l := args.Get(0); l != nil {
		return l.(*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByCompanyID(ctx context.Context, companyID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, companyID, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error) {
	args := m.Called(ctx, resourceType, resourceID)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) GetByDateRange(ctx context.Context, companyID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, companyID, start, end, limit, offset)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// TxManager runs transactions inline and counts their outcomes.
// Err, when set, is returned by Begin.
type TxManager struct {
	Err       error
	Commits   int
	Rollbacks int
}

type tx struct {
	ctx context.Context
	m   *TxManager
}

func (t *tx) Commit() error {
	t.m.Commits++
	return nil
}

func (t *tx) Rollback() error {
	t.m.Rollbacks++
	return nil
}

func (t *tx) Context() context.Context { return t.ctx }

func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &tx{ctx: ctx, m: m}, nil
}

func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	t, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(t.Context(), t); err != nil {
		_ = t.Rollback()
		return err
	}
	return t.Commit()
}

var (
	_ repositories.CompanyRepository  = (*CompanyRepository)(nil)
	_ repositories.UserRepository     = (*UserRepository)(nil)
	_ repositories.PolicyRepository   = (*PolicyRepository)(nil)
	_ repositories.BookingRepository  = (*BookingRepository)(nil)
	_ repositories.ApprovalRepository = (*ApprovalRepository)(nil)
	_ repositories.TripRepository     = (*TripRepository)(nil)
	_ repositories.AuditRepository    = (*AuditRepository)(nil)
	_ repositories.TransactionManager = (*TxManager)(nil)
)
