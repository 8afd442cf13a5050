package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/repositories/mocks"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit/audittest"
	"go.uber.org/zap"
)

var decidedAt = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	companyID uuid.UUID
	owner     *models.User
	approver  *models.User
	booking   *models.Booking
	approval  *models.Approval

	approvals *mocks.ApprovalRepository
	bookings  *mocks.BookingRepository
	trips     *mocks.TripRepository
	users     *mocks.UserRepository
	txMgr     *mocks.TxManager
	notifier  *mocks.Notifier
	recorder  *audittest.Recorder
	metrics   *observability.Counters
	service   *ApprovalService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	companyID := uuid.New()
	approver := models.NewUser("boss@acme.test", "Boss", companyID, models.RoleEmployee)
	owner := models.NewUser("traveler@acme.test", "Traveler", companyID, models.RoleEmployee)
	owner.ManagerID = &approver.ID

	b := models.NewBooking(companyID, owner.ID, models.BookingTypeFlight, decimal.NewFromInt(600), "USD", decidedAt.AddDate(0, 1, 0))
	b.Status = models.BookingStatusPendingApproval
	a := models.NewApproval(companyID, b.ID, uuid.New(), approver.ID, models.RestrictionOutOfPolicy, nil, "price exceeds maximum allowed amount of 500")

	f := &fixture{
		companyID: companyID,
		owner:     owner,
		approver:  approver,
		booking:   b,
		approval:  a,
		approvals: new(mocks.ApprovalRepository),
		bookings:  new(mocks.BookingRepository),
		trips:     new(mocks.TripRepository),
		users:     new(mocks.UserRepository),
		txMgr:     &mocks.TxManager{},
		notifier:  new(mocks.Notifier),
		recorder:  &audittest.Recorder{},
		metrics:   observability.NewCounters(),
	}
	f.service = NewApprovalService(Dependencies{
		Repos: &repositories.Repositories{
			Approvals: f.approvals,
			Bookings:  f.bookings,
			Trips:     f.trips,
			Users:     f.users,
		},
		TxMgr:    f.txMgr,
		Notifier: f.notifier,
		Audit:    f.recorder,
		Metrics:  f.metrics,
		Logger:   zap.NewNop(),
	})
	f.service.now = func() time.Time { return decidedAt }
	return f
}

func (f *fixture) expectLoad() {
	f.approvals.On("GetByIDForUpdate", mock.Anything, f.approval.ID).Return(f.approval, nil)
	f.bookings.On("GetByIDForUpdate", mock.Anything, f.booking.ID).Return(f.booking, nil)
}

func (f *fixture) expectResolve(to models.BookingStatus) {
	f.approvals.On("Resolve", mock.Anything, f.approval).Return(nil)
	f.bookings.On("UpdateStatus", mock.Anything, f.booking.ID, models.BookingStatusPendingApproval, to).Return(nil)
	f.users.On("GetByID", mock.Anything, f.owner.ID).Return(f.owner, nil)
	f.notifier.On("ApprovalResolved", mock.Anything, f.approval, f.booking, f.owner).Return(nil)
}

func TestResolve_ApproverApproves(t *testing.T) {
	f := newFixture(t)
	f.expectLoad()
	f.expectResolve(models.BookingStatusApproved)

	result, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{
		Outcome:  models.ApprovalStatusApproved,
		Comments: "ok for the client visit",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusApproved, result.Approval.Status)
	assert.Equal(t, "ok for the client visit", result.Approval.Comments)
	assert.Equal(t, f.approver.ID, *result.Approval.ResolvedBy)
	assert.Equal(t, decidedAt, *result.Approval.ResolvedAt)
	assert.Equal(t, models.BookingStatusApproved, result.Booking.Status)

	assert.Equal(t, 1, f.txMgr.Commits)
	assert.Equal(t, []models.AuditAction{models.AuditActionApprovalResolved}, f.recorder.Actions())
	assert.Equal(t, uint64(1), f.metrics.Snapshot().Resolutions["approved"])
	f.notifier.AssertExpectations(t)
}

func TestResolve_RejectKeepsRoutingComments(t *testing.T) {
	f := newFixture(t)
	f.expectLoad()
	f.expectResolve(models.BookingStatusRejected)

	result, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{
		Outcome: models.ApprovalStatusRejected,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalStatusRejected, result.Approval.Status)
	assert.Equal(t, "price exceeds maximum allowed amount of 500", result.Approval.Comments)
	assert.Equal(t, models.BookingStatusRejected, result.Booking.Status)
}

func TestResolve_RejectReleasesTripCost(t *testing.T) {
	f := newFixture(t)
	trip := models.NewTrip(f.companyID, f.owner.ID, "Offsite", decidedAt, decidedAt)
	trip.TotalCost = decimal.NewFromInt(750)
	f.booking.TripID = &trip.ID
	f.expectLoad()
	f.expectResolve(models.BookingStatusRejected)
	refund := mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(-600)) })
	f.trips.On("AddCost", mock.Anything, trip.ID, refund).Return(decimal.NewFromInt(150), nil)

	_, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusRejected})
	require.NoError(t, err)
	f.trips.AssertExpectations(t)
	f.trips.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestResolve_RejectOnDeletedTrip(t *testing.T) {
	f := newFixture(t)
	tripID := uuid.New()
	f.booking.TripID = &tripID
	f.expectLoad()
	f.expectResolve(models.BookingStatusRejected)
	f.trips.On("AddCost", mock.Anything, tripID, mock.Anything).Return(decimal.Zero, repositories.ErrNotFound)

	result, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, result.Booking.Status)
}

func TestResolve_AdminCannotApproveOwnBooking(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleTravelAdmin, models.RoleSuperAdmin} {
		t.Run(string(role), func(t *testing.T) {
			f := newFixture(t)
			f.owner.Role = role
			f.expectLoad()

			_, err := f.service.Resolve(context.Background(), f.owner, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusApproved})
			assert.ErrorIs(t, err, services.ErrNotApprover)

			assert.Equal(t, models.ApprovalStatusPending, f.approval.Status)
			assert.Equal(t, models.BookingStatusPendingApproval, f.booking.Status)
			f.approvals.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 1, f.txMgr.Rollbacks)
			assert.Empty(t, f.recorder.Actions())
		})
	}
}

func TestResolve_OverrideAuthority(t *testing.T) {
	tests := []struct {
		name string
		role models.UserRole
		same bool
	}{
		{"travel admin of the company", models.RoleTravelAdmin, true},
		{"super admin of another company", models.RoleSuperAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			companyID := f.companyID
			if !tt.same {
				companyID = uuid.New()
			}
			actor := models.NewUser("admin@acme.test", "Admin", companyID, tt.role)
			f.expectLoad()
			f.expectResolve(models.BookingStatusApproved)

			result, err := f.service.Resolve(context.Background(), actor, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusApproved})
			require.NoError(t, err)
			assert.Equal(t, actor.ID, *result.Approval.ResolvedBy)
			assert.Equal(t, f.approver.ID, result.Approval.ApproverID)

			logs := f.recorder.Logs()
			require.Len(t, logs, 1)
			assert.Contains(t, string(logs[0].Details), `"override":true`)
		})
	}
}

func TestResolve_UnauthorizedChangesNothing(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *fixture) *models.User
		wantErr error
	}{
		{
			name:    "booking owner",
			actor:   func(f *fixture) *models.User { return f.owner },
			wantErr: services.ErrNotApprover,
		},
		{
			name: "colleague",
			actor: func(f *fixture) *models.User {
				return models.NewUser("c@acme.test", "C", f.companyID, models.RoleEmployee)
			},
			wantErr: services.ErrNotApprover,
		},
		{
			name: "travel admin of another company",
			actor: func(f *fixture) *models.User {
				return models.NewUser("x@other.test", "X", uuid.New(), models.RoleTravelAdmin)
			},
			wantErr: services.ErrApprovalNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.approvals.On("GetByIDForUpdate", mock.Anything, f.approval.ID).Return(f.approval, nil)

			_, err := f.service.Resolve(context.Background(), tt.actor(f), f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusApproved})
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, models.ApprovalStatusPending, f.approval.Status)
			assert.Nil(t, f.approval.ResolvedBy)
			assert.Equal(t, models.BookingStatusPendingApproval, f.booking.Status)
			f.approvals.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 1, f.txMgr.Rollbacks)
			assert.Empty(t, f.recorder.Actions())
		})
	}
}

func TestResolve_AlreadyResolved(t *testing.T) {
	f := newFixture(t)
	f.approval.Status = models.ApprovalStatusApproved
	f.approvals.On("GetByIDForUpdate", mock.Anything, f.approval.ID).Return(f.approval, nil)

	_, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusRejected})
	assert.ErrorIs(t, err, services.ErrApprovalNotPending)
	assert.True(t, services.IsConflictError(err))
}

func TestResolve_InvalidOutcome(t *testing.T) {
	f := newFixture(t)
	for _, outcome := range []models.ApprovalStatus{"", models.ApprovalStatusPending, models.ApprovalStatusCancelled, "maybe"} {
		_, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: outcome})
		assert.ErrorIs(t, err, services.ErrInvalidOutcome, string(outcome))
		assert.Equal(t, string(outcome), services.GetErrorDetails(err)["outcome"])
	}
	f.approvals.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
	assert.Empty(t, services.ErrInvalidOutcome.Details)
}

func TestResolve_BookingMovedConcurrently(t *testing.T) {
	f := newFixture(t)
	f.expectLoad()
	f.approvals.On("Resolve", mock.Anything, f.approval).Return(nil)
	f.bookings.On("UpdateStatus", mock.Anything, f.booking.ID, mock.Anything, mock.Anything).Return(repositories.ErrNotFound)

	_, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusApproved})
	assert.ErrorIs(t, err, services.ErrConcurrentUpdate)
	assert.Equal(t, 1, f.txMgr.Rollbacks)
	assert.Zero(t, f.txMgr.Commits)
	f.notifier.AssertNotCalled(t, "ApprovalResolved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.expectLoad()
	f.approvals.On("Resolve", mock.Anything, f.approval).Return(nil)
	f.bookings.On("UpdateStatus", mock.Anything, f.booking.ID, mock.Anything, mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, f.owner.ID).Return(nil, errors.New("connection reset"))

	result, err := f.service.Resolve(context.Background(), f.approver, f.approval.ID, ResolveInput{Outcome: models.ApprovalStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, result.Booking.Status)
	f.notifier.AssertNotCalled(t, "ApprovalResolved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	f.approvals.On("GetByID", mock.Anything, f.approval.ID).Return(f.approval, nil)
	f.bookings.On("GetByID", mock.Anything, f.booking.ID).Return(f.booking, nil)

	admin := models.NewUser("a@acme.test", "A", f.companyID, models.RoleTravelAdmin)
	for _, u := range []*models.User{f.approver, f.owner, admin} {
		got, err := f.service.Get(context.Background(), u, f.approval.ID)
		require.NoError(t, err, u.Email)
		assert.Equal(t, f.approval, got)
	}

	colleague := models.NewUser("c@acme.test", "C", f.companyID, models.RoleEmployee)
	_, err := f.service.Get(context.Background(), colleague, f.approval.ID)
	assert.ErrorIs(t, err, services.ErrApprovalNotFound)

	stranger := models.NewUser("x@other.test", "X", uuid.New(), models.RoleEmployee)
	_, err = f.service.Get(context.Background(), stranger, f.approval.ID)
	assert.ErrorIs(t, err, services.ErrApprovalNotFound)
}

func TestListPending(t *testing.T) {
	f := newFixture(t)
	admin := models.NewUser("a@acme.test", "A", f.companyID, models.RoleTravelAdmin)
	f.approvals.On("GetPendingByApproverID", mock.Anything, f.approver.ID, 50, 0).Return([]*models.Approval{f.approval}, nil)
	f.approvals.On("GetPendingByCompanyID", mock.Anything, f.companyID, 10, 20).Return([]*models.Approval{f.approval}, nil)

	mine, err := f.service.ListPending(context.Background(), f.approver, ListPendingInput{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	company, err := f.service.ListPending(context.Background(), admin, ListPendingInput{Company: true, Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Len(t, company, 1)

	_, err = f.service.ListPending(context.Background(), f.approver, ListPendingInput{Company: true})
	assert.True(t, services.IsForbiddenError(err))
}

func TestListForBooking(t *testing.T) {
	f := newFixture(t)
	f.bookings.On("GetByID", mock.Anything, f.booking.ID).Return(f.booking, nil)
	f.approvals.On("GetByBookingID", mock.Anything, f.booking.ID).Return([]*models.Approval{f.approval}, nil)

	for _, u := range []*models.User{f.owner, f.approver} {
		got, err := f.service.ListForBooking(context.Background(), u, f.booking.ID)
		require.NoError(t, err)
		assert.Equal(t, []*models.Approval{f.approval}, got)
	}

	colleague := models.NewUser("c@acme.test", "C", f.companyID, models.RoleEmployee)
	_, err := f.service.ListForBooking(context.Background(), colleague, f.booking.ID)
	assert.ErrorIs(t, err, services.ErrBookingNotFound)
}
