package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/travel-control-plane/middleware"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/approval"
	"github.com/upb/travel-control-plane/services/audit"
	"github.com/upb/travel-control-plane/services/booking"
	"github.com/upb/travel-control-plane/services/directory"
	"github.com/upb/travel-control-plane/services/expense"
	"github.com/upb/travel-control-plane/services/policy"
	"github.com/upb/travel-control-plane/services/trip"
)

// newRequest builds a request carrying the authenticated user and chi URL params.
// Pairs of params are name, value.
func newRequest(method, target, body string, user *models.User, params ...string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	return req.WithContext(ctx)
}

type MockPolicyService struct{ mock.Mock }

func (m *MockPolicyService) Active(ctx context.Context, actor *models.User) (*models.Policy, error) {
	args := m.Called(ctx, actor)
	p, _ := args.Get(0).(*models.Policy)
	return p, args.Error(1)
}

func (m *MockPolicyService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Policy, error) {
	args := m.Called(ctx, actor, id)
	p, _ := args.Get(0).(*models.Policy)
	return p, args.Error(1)
}

func (m *MockPolicyService) List(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.Policy, error) {
	args := m.Called(ctx, actor, companyID)
	p, _ := args.Get(0).([]*models.Policy)
	return p, args.Error(1)
}

func (m *MockPolicyService) Create(ctx context.Context, actor *models.User, input policy.PolicyInput) (*models.Policy, error) {
	args := m.Called(ctx, actor, input)
	p, _ := args.Get(0).(*models.Policy)
	return p, args.Error(1)
}

func (m *MockPolicyService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input policy.PolicyInput) (*models.Policy, error) {
	args := m.Called(ctx, actor, id, input)
	p, _ := args.Get(0).(*models.Policy)
	return p, args.Error(1)
}

func (m *MockPolicyService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockBookingService struct{ mock.Mock }

func (m *MockBookingService) Submit(ctx context.Context, actor *models.User, input booking.SubmitInput) (*booking.SubmitResult, error) {
	args := m.Called(ctx, actor, input)
	r, _ := args.Get(0).(*booking.SubmitResult)
	return r, args.Error(1)
}

func (m *MockBookingService) CheckCompliance(ctx context.Context, actor *models.User, input booking.SubmitInput) (*booking.CheckResult, error) {
	args := m.Called(ctx, actor, input)
	r, _ := args.Get(0).(*booking.CheckResult)
	return r, args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, actor, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *MockBookingService) List(ctx context.Context, actor *models.User, input booking.ListInput) ([]*models.Booking, error) {
	args := m.Called(ctx, actor, input)
	b, _ := args.Get(0).([]*models.Booking)
	return b, args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, actor, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (*models.Booking, error) {
	args := m.Called(ctx, actor, id, reason)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

type MockApprovalService struct{ mock.Mock }

func (m *MockApprovalService) Resolve(ctx context.Context, actor *models.User, id uuid.UUID, input approval.ResolveInput) (*approval.ResolveResult, error) {
	args := m.Called(ctx, actor, id, input)
	r, _ := args.Get(0).(*approval.ResolveResult)
	return r, args.Error(1)
}

func (m *MockApprovalService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Approval, error) {
	args := m.Called(ctx, actor, id)
	a, _ := args.Get(0).(*models.Approval)
	return a, args.Error(1)
}

func (m *MockApprovalService) ListPending(ctx context.Context, actor *models.User, input approval.ListPendingInput) ([]*models.Approval, error) {
	args := m.Called(ctx, actor, input)
	a, _ := args.Get(0).([]*models.Approval)
	return a, args.Error(1)
}

func (m *MockApprovalService) ListForBooking(ctx context.Context, actor *models.User, bookingID uuid.UUID) ([]*models.Approval, error) {
	args := m.Called(ctx, actor, bookingID)
	a, _ := args.Get(0).([]*models.Approval)
	return a, args.Error(1)
}

type MockTripService struct{ mock.Mock }

func (m *MockTripService) Create(ctx context.Context, actor *models.User, input trip.CreateInput) (*models.Trip, error) {
	args := m.Called(ctx, actor, input)
	t, _ := args.Get(0).(*models.Trip)
	return t, args.Error(1)
}

func (m *MockTripService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error) {
	args := m.Called(ctx, actor, id)
	t, _ := args.Get(0).(*models.Trip)
	return t, args.Error(1)
}

func (m *MockTripService) List(ctx context.Context, actor *models.User, input trip.ListInput) ([]*models.Trip, error) {
	args := m.Called(ctx, actor, input)
	t, _ := args.Get(0).([]*models.Trip)
	return t, args.Error(1)
}

func (m *MockTripService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input trip.UpdateInput) (*models.Trip, error) {
	args := m.Called(ctx, actor, id, input)
	t, _ := args.Get(0).(*models.Trip)
	return t, args.Error(1)
}

type MockExpenseService struct{ mock.Mock }

func (m *MockExpenseService) Create(ctx context.Context, actor *models.User, input expense.CreateInput) (*models.Expense, error) {
	args := m.Called(ctx, actor, input)
	e, _ := args.Get(0).(*models.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Expense, error) {
	args := m.Called(ctx, actor, id)
	e, _ := args.Get(0).(*models.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseService) List(ctx context.Context, actor *models.User, input expense.ListInput) ([]*models.Expense, error) {
	args := m.Called(ctx, actor, input)
	e, _ := args.Get(0).([]*models.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input expense.UpdateInput) (*models.Expense, error) {
	args := m.Called(ctx, actor, id, input)
	e, _ := args.Get(0).(*models.Expense)
	return e, args.Error(1)
}

func (m *MockExpenseService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockDirectoryService struct{ mock.Mock }

func (m *MockDirectoryService) CurrentUser(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockDirectoryService) CreateUser(ctx context.Context, actor *models.User, input directory.CreateUserInput) (*models.User, error) {
	args := m.Called(ctx, actor, input)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockDirectoryService) GetUser(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, actor, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockDirectoryService) ListUsers(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, actor, companyID)
	u, _ := args.Get(0).([]*models.User)
	return u, args.Error(1)
}

func (m *MockDirectoryService) UpdateUser(ctx context.Context, actor *models.User, id uuid.UUID, input directory.UpdateUserInput) (*models.User, error) {
	args := m.Called(ctx, actor, id, input)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockDirectoryService) CreateCompany(ctx context.Context, actor *models.User, input directory.CreateCompanyInput) (*models.Company, error) {
	args := m.Called(ctx, actor, input)
	c, _ := args.Get(0).(*models.Company)
	return c, args.Error(1)
}

func (m *MockDirectoryService) GetCompany(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Company, error) {
	args := m.Called(ctx, actor, id)
	c, _ := args.Get(0).(*models.Company)
	return c, args.Error(1)
}

func (m *MockDirectoryService) ListCompanies(ctx context.Context, actor *models.User, limit, offset int) ([]*models.Company, error) {
	args := m.Called(ctx, actor, limit, offset)
	c, _ := args.Get(0).([]*models.Company)
	return c, args.Error(1)
}

type MockAuditReader struct{ mock.Mock }

func (m *MockAuditReader) List(ctx context.Context, actor *models.User, input audit.ListInput) ([]*models.AuditLog, error) {
	args := m.Called(ctx, actor, input)
	l, _ := args.Get(0).([]*models.AuditLog)
	return l, args.Error(1)
}

func (m *MockAuditReader) ListForResource(ctx context.Context, actor *models.User, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error) {
	args := m.Called(ctx, actor, resourceType, resourceID)
	l, _ := args.Get(0).([]*models.AuditLog)
	return l, args.Error(1)
}

type MockTokenIssuer struct{ mock.Mock }

func (m *MockTokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	args := m.Called(user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
