package policy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/repositories/mocks"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit/audittest"
	"go.uber.org/zap"
)

type fixture struct {
	repo     *mocks.PolicyRepository
	cache    *PolicyCache
	recorder *audittest.Recorder
	service  *PolicyService
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(mocks.PolicyRepository),
		cache:    NewPolicyCache(10, time.Minute),
		recorder: &audittest.Recorder{},
	}
	f.service = NewPolicyService(f.repo, f.cache, f.recorder, zap.NewNop())
	return f
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func TestPolicyService_ActivePolicyIsCached(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	p := models.NewPolicy(companyID, "Standard")
	f.repo.On("GetActiveByCompanyID", mock.Anything, companyID).Return(p, nil).Once()

	first, err := f.service.ActivePolicy(context.Background(), companyID)
	require.NoError(t, err)
	second, err := f.service.ActivePolicy(context.Background(), companyID)
	require.NoError(t, err)

	assert.Equal(t, p, first)
	assert.Equal(t, p, second)
	f.repo.AssertNumberOfCalls(t, "GetActiveByCompanyID", 1)
	assert.Equal(t, uint64(1), f.service.GetCacheStats().Hits)
}

func TestPolicyService_NoActivePolicy(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	f.repo.On("GetActiveByCompanyID", mock.Anything, companyID).
		Return(nil, fmt.Errorf("policy for company %s: %w", companyID, repositories.ErrNotFound)).Once()

	p, err := f.service.ActivePolicy(context.Background(), companyID)
	require.NoError(t, err)
	assert.Nil(t, p)

	// absence is cached too
	p, err = f.service.ActivePolicy(context.Background(), companyID)
	require.NoError(t, err)
	assert.Nil(t, p)
	f.repo.AssertNumberOfCalls(t, "GetActiveByCompanyID", 1)

	actor := models.NewUser("e@acme.test", "E", companyID, models.RoleEmployee)
	_, err = f.service.Active(context.Background(), actor)
	assert.ErrorIs(t, err, services.ErrNoActivePolicy)
}

func TestPolicyService_ActivePolicyRepositoryFailure(t *testing.T) {
	f := newFixture()
	companyID := uuid.New()
	f.repo.On("GetActiveByCompanyID", mock.Anything, companyID).Return(nil, errors.New("connection reset"))

	_, err := f.service.ActivePolicy(context.Background(), companyID)
	assert.True(t, services.IsInternalError(err))
	_, ok := f.cache.Get(companyID)
	assert.False(t, ok, "failures are not cached")
}

func TestPolicyService_Create(t *testing.T) {
	companyID := uuid.New()
	admin := models.NewUser("admin@acme.test", "Admin", companyID, models.RoleTravelAdmin)

	t.Run("travel admin creates for own company", func(t *testing.T) {
		f := newFixture()
		f.cache.Set(companyID, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Policy")).Return(nil)

		p, err := f.service.Create(context.Background(), admin, PolicyInput{
			Name:                     "Standard",
			FlightMaxAmount:          dec("500.004"),
			FlightAdvanceBookingDays: intPtr(14),
			BusinessClass:            models.ClassNever,
		})
		require.NoError(t, err)
		assert.Equal(t, companyID, p.CompanyID)
		assert.True(t, p.Active)
		assert.Equal(t, "500", p.FlightMaxAmount.String())
		assert.Equal(t, models.ClassNever, p.BusinessClass)
		assert.Equal(t, models.ClassAlways, p.FirstClass)
		assert.Equal(t, models.RestrictionOutOfPolicy, p.ApprovalRestriction)

		_, cached := f.cache.Get(companyID)
		assert.False(t, cached, "cache invalidated on create")
		assert.Equal(t, []models.AuditAction{models.AuditActionPolicyCreated}, f.recorder.Actions())
	})

	t.Run("travel admin cannot create for another company", func(t *testing.T) {
		f := newFixture()
		other := uuid.New()
		_, err := f.service.Create(context.Background(), admin, PolicyInput{CompanyID: &other, Name: "X"})
		assert.ErrorIs(t, err, services.ErrInsufficientPermissions)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("super admin creates for any company", func(t *testing.T) {
		f := newFixture()
		root := models.NewUser("root@platform.test", "Root", uuid.New(), models.RoleSuperAdmin)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		p, err := f.service.Create(context.Background(), root, PolicyInput{CompanyID: &companyID, Name: "Exec"})
		require.NoError(t, err)
		assert.Equal(t, companyID, p.CompanyID)
	})

	t.Run("employee forbidden", func(t *testing.T) {
		f := newFixture()
		emp := models.NewUser("e@acme.test", "E", companyID, models.RoleEmployee)
		_, err := f.service.Create(context.Background(), emp, PolicyInput{Name: "X"})
		assert.True(t, services.IsForbiddenError(err))
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input PolicyInput
		}{
			{"missing name", PolicyInput{}},
			{"negative max", PolicyInput{Name: "X", FlightMaxAmount: dec("-1")}},
			{"negative hotel max", PolicyInput{Name: "X", HotelMaxAmount: dec("-0.01")}},
			{"negative advance days", PolicyInput{Name: "X", FlightAdvanceBookingDays: intPtr(-1)}},
			{"threshold over 100", PolicyInput{Name: "X", FlightPriceThresholdPercent: intPtr(101)}},
			{"star rating 6", PolicyInput{Name: "X", HotelMaxStarRating: intPtr(6)}},
			{"unknown class allowance", PolicyInput{Name: "X", FirstClass: "sometimes"}},
			{"unknown restriction", PolicyInput{Name: "X", ApprovalRestriction: "maybe"}},
			{"approver without role", PolicyInput{Name: "X", Approvers: models.ApproverList{{Name: "Ana"}}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				_, err := f.service.Create(context.Background(), admin, tt.input)
				require.Error(t, err)
				assert.True(t, services.IsValidationError(err), "got %v", err)
				f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := newFixture().service.Create(context.Background(), nil, PolicyInput{Name: "X"})
		assert.True(t, services.IsUnauthorizedError(err))
	})
}

func TestPolicyService_Update(t *testing.T) {
	companyID := uuid.New()
	admin := models.NewUser("admin@acme.test", "Admin", companyID, models.RoleTravelAdmin)

	t.Run("updates and invalidates", func(t *testing.T) {
		f := newFixture()
		existing := models.NewPolicy(companyID, "Standard")
		existing.FlightMaxAmount = dec("500")
		f.cache.Set(companyID, existing)
		f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
		f.repo.On("Update", mock.Anything, existing).Return(nil)

		updated, err := f.service.Update(context.Background(), admin, existing.ID, PolicyInput{
			Name:                "Standard",
			FlightMaxAmount:     dec("650"),
			ApprovalRestriction: models.RestrictionAll,
		})
		require.NoError(t, err)
		assert.Equal(t, "650", updated.FlightMaxAmount.String())
		assert.Equal(t, models.RestrictionAll, updated.ApprovalRestriction)

		_, cached := f.cache.Get(companyID)
		assert.False(t, cached)

		logs := f.recorder.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditActionPolicyUpdated, logs[0].Action)
		assert.Contains(t, string(logs[0].Details), "flight_max_amount")
		assert.Contains(t, string(logs[0].Details), "approval_restriction")
		assert.NotContains(t, string(logs[0].Details), "\"name\"")
	})

	t.Run("other company's admin", func(t *testing.T) {
		f := newFixture()
		foreign := models.NewPolicy(uuid.New(), "Foreign")
		f.repo.On("GetByID", mock.Anything, foreign.ID).Return(foreign, nil)

		_, err := f.service.Update(context.Background(), admin, foreign.ID, PolicyInput{Name: "Mine now"})
		assert.ErrorIs(t, err, services.ErrInsufficientPermissions)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("cannot move company", func(t *testing.T) {
		f := newFixture()
		existing := models.NewPolicy(companyID, "Standard")
		other := uuid.New()
		f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

		_, err := f.service.Update(context.Background(), admin, existing.ID, PolicyInput{CompanyID: &other, Name: "Standard"})
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.repo.On("GetByID", mock.Anything, id).Return(nil, repositories.ErrNotFound)

		_, err := f.service.Update(context.Background(), admin, id, PolicyInput{Name: "X"})
		assert.ErrorIs(t, err, services.ErrPolicyNotFound)
	})
}

func TestPolicyService_Delete(t *testing.T) {
	companyID := uuid.New()
	admin := models.NewUser("admin@acme.test", "Admin", companyID, models.RoleTravelAdmin)
	existing := models.NewPolicy(companyID, "Standard")

	f := newFixture()
	f.cache.Set(companyID, existing)
	f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.repo.On("Delete", mock.Anything, existing.ID).Return(nil)

	require.NoError(t, f.service.Delete(context.Background(), admin, existing.ID))
	_, cached := f.cache.Get(companyID)
	assert.False(t, cached)
	assert.Equal(t, []models.AuditAction{models.AuditActionPolicyDeleted}, f.recorder.Actions())

	emp := models.NewUser("e@acme.test", "E", companyID, models.RoleEmployee)
	assert.True(t, services.IsForbiddenError(f.service.Delete(context.Background(), emp, existing.ID)))
}

func TestPolicyService_GetAndList(t *testing.T) {
	companyID := uuid.New()
	emp := models.NewUser("e@acme.test", "E", companyID, models.RoleEmployee)
	own := models.NewPolicy(companyID, "Own")
	foreign := models.NewPolicy(uuid.New(), "Foreign")

	f := newFixture()
	f.repo.On("GetByID", mock.Anything, own.ID).Return(own, nil)
	f.repo.On("GetByID", mock.Anything, foreign.ID).Return(foreign, nil)
	f.repo.On("GetByCompanyID", mock.Anything, companyID).Return([]*models.Policy{own}, nil)

	got, err := f.service.Get(context.Background(), emp, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own, got)

	_, err = f.service.Get(context.Background(), emp, foreign.ID)
	assert.ErrorIs(t, err, services.ErrPolicyNotFound)

	list, err := f.service.List(context.Background(), emp, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.service.List(context.Background(), emp, foreign.CompanyID)
	assert.ErrorIs(t, err, services.ErrCompanyMismatch)
}

func TestPolicyService_AuditFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.recorder.Err = errors.New("buffer full")
	companyID := uuid.New()
	admin := models.NewUser("admin@acme.test", "Admin", companyID, models.RoleTravelAdmin)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Create(context.Background(), admin, PolicyInput{Name: "Standard"})
	assert.NoError(t, err)
}

func TestPolicyService_StartCacheCleanup(t *testing.T) {
	f := newFixture()
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		f.service.StartCacheCleanup(time.Millisecond, stopCh)
		close(done)
	}()
	close(stopCh)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
}
