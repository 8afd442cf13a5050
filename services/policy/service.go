package policy

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit"
	"go.uber.org/zap"
)

// PolicyInput carries the writable fields of a travel policy
type PolicyInput struct {
	// CompanyID lets a super admin target another company; others default to their own
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	Name      string     `json:"name" validate:"required,max=255"`
	Active    *bool      `json:"active,omitempty"`

	FlightDynamicPricing        bool                  `json:"flight_dynamic_pricing"`
	FlightPriceThresholdPercent *int                  `json:"flight_price_threshold_percent,omitempty" validate:"omitempty,min=0,max=100"`
	FlightMaxAmount             *decimal.Decimal      `json:"flight_max_amount,omitempty"`
	FlightAdvanceBookingDays    *int                  `json:"flight_advance_booking_days,omitempty" validate:"omitempty,min=0,max=365"`
	EconomyClass                models.ClassAllowance `json:"economy_class,omitempty" validate:"omitempty,oneof=always never conditional"`
	PremiumEconomyClass         models.ClassAllowance `json:"premium_economy_class,omitempty" validate:"omitempty,oneof=always never conditional"`
	BusinessClass               models.ClassAllowance `json:"business_class,omitempty" validate:"omitempty,oneof=always never conditional"`
	FirstClass                  models.ClassAllowance `json:"first_class,omitempty" validate:"omitempty,oneof=always never conditional"`

	HotelDynamicPricing        bool             `json:"hotel_dynamic_pricing"`
	HotelPriceThresholdPercent *int             `json:"hotel_price_threshold_percent,omitempty" validate:"omitempty,min=0,max=100"`
	HotelMaxAmount             *decimal.Decimal `json:"hotel_max_amount,omitempty"`
	HotelAdvanceBookingDays    *int             `json:"hotel_advance_booking_days,omitempty" validate:"omitempty,min=0,max=365"`
	HotelMaxStarRating         *int             `json:"hotel_max_star_rating,omitempty" validate:"omitempty,min=1,max=5"`

	ApprovalRestriction models.ApprovalRestriction `json:"approval_restriction,omitempty" validate:"omitempty,oneof=none out-of-policy all"`
	Approvers           models.ApproverList        `json:"approvers,omitempty" validate:"omitempty,max=10,dive"`
}

// apply copies the input onto p, filling enum defaults
func (in *PolicyInput) apply(p *models.Policy) {
	p.Name = in.Name
	if in.Active != nil {
		p.Active = *in.Active
	}

	p.FlightDynamicPricing = in.FlightDynamicPricing
	p.FlightPriceThresholdPercent = in.FlightPriceThresholdPercent
	p.FlightMaxAmount = roundAmount(in.FlightMaxAmount)
	p.FlightAdvanceBookingDays = in.FlightAdvanceBookingDays
	p.EconomyClass = allowanceOrDefault(in.EconomyClass)
	p.PremiumEconomyClass = allowanceOrDefault(in.PremiumEconomyClass)
	p.BusinessClass = allowanceOrDefault(in.BusinessClass)
	p.FirstClass = allowanceOrDefault(in.FirstClass)

	p.HotelDynamicPricing = in.HotelDynamicPricing
	p.HotelPriceThresholdPercent = in.HotelPriceThresholdPercent
	p.HotelMaxAmount = roundAmount(in.HotelMaxAmount)
	p.HotelAdvanceBookingDays = in.HotelAdvanceBookingDays
	p.HotelMaxStarRating = in.HotelMaxStarRating

	p.ApprovalRestriction = in.ApprovalRestriction
	if p.ApprovalRestriction == "" {
		p.ApprovalRestriction = models.RestrictionOutOfPolicy
	}
	p.Approvers = in.Approvers
	if p.Approvers == nil {
		p.Approvers = models.ApproverList{}
	}
}

func allowanceOrDefault(c models.ClassAllowance) models.ClassAllowance {
	if c == "" {
		return models.ClassAlways
	}
	return c
}

func roundAmount(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

// validate checks what struct tags cannot express
func (in *PolicyInput) validate() error {
	if err := services.ValidateInput(in); err != nil {
		return err
	}
	amounts := []struct {
		field  string
		amount *decimal.Decimal
	}{
		{"flight_max_amount", in.FlightMaxAmount},
		{"hotel_max_amount", in.HotelMaxAmount},
	}
	for _, a := range amounts {
		if a.amount != nil && a.amount.IsNegative() {
			return services.ErrInvalidPolicyConfig.Wrapf("%s must not be negative", a.field).
				WithDetail("field", a.field)
		}
	}
	return nil
}

// PolicyService manages company travel policies and serves the active one
type PolicyService struct {
	policyRepo repositories.PolicyRepository
	cache      *PolicyCache
	audit      audit.Recorder
	logger     *zap.Logger
}

// NewPolicyService creates a new PolicyService instance
func NewPolicyService(policyRepo repositories.PolicyRepository, cache *PolicyCache, recorder audit.Recorder, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		policyRepo: policyRepo,
		cache:      cache,
		audit:      recorder,
		logger:     logger,
	}
}

// ActivePolicy returns the policy bookings of the company are evaluated against.
// A company without an active policy yields nil, nil.
func (s *PolicyService) ActivePolicy(ctx context.Context, companyID uuid.UUID) (*models.Policy, error) {
	logger := observability.Logger(ctx, s.logger)

	if p, ok := s.cache.Get(companyID); ok {
		logger.Debug("cache hit for active policy", zap.String("company_id", companyID.String()))
		return p, nil
	}

	p, err := s.policyRepo.GetActiveByCompanyID(ctx, companyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.cache.Set(companyID, nil)
			logger.Debug("company has no active policy", zap.String("company_id", companyID.String()))
			return nil, nil
		}
		return nil, services.FromRepository(err, services.ErrNoActivePolicy, "failed to load active policy")
	}

	s.cache.Set(companyID, p)
	logger.Debug("cache miss for active policy, fetched from database",
		zap.String("company_id", companyID.String()),
		zap.String("policy_id", p.ID.String()))
	return p, nil
}

// Active returns the active policy of the actor's company
func (s *PolicyService) Active(ctx context.Context, actor *models.User) (*models.Policy, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	p, err := s.ActivePolicy(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.ErrNoActivePolicy
	}
	return p, nil
}

// Get returns a policy visible to the actor
func (s *PolicyService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Policy, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrPolicyNotFound, "failed to get policy")
	}
	if !actor.CanViewCompany(p.CompanyID) {
		// hide policies of other companies
		return nil, services.ErrPolicyNotFound
	}
	return p, nil
}

// List returns the policies of a company. uuid.Nil means the actor's company.
func (s *PolicyService) List(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.Policy, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if companyID == uuid.Nil {
		companyID = actor.CompanyID
	}
	if !actor.CanViewCompany(companyID) {
		return nil, services.ErrCompanyMismatch
	}
	policies, err := s.policyRepo.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrPolicyNotFound, "failed to list policies")
	}
	return policies, nil
}

// Create stores a new policy. Travel admins may only manage their own company.
func (s *PolicyService) Create(ctx context.Context, actor *models.User, input PolicyInput) (*models.Policy, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	companyID := actor.CompanyID
	if input.CompanyID != nil && *input.CompanyID != uuid.Nil {
		companyID = *input.CompanyID
	}
	if !actor.CanManageCompany(companyID) {
		return nil, services.ErrInsufficientPermissions
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	p := models.NewPolicy(companyID, input.Name)
	input.apply(p)

	if err := s.policyRepo.Create(ctx, p); err != nil {
		return nil, services.FromRepository(err, services.ErrPolicyNotFound, "failed to create policy")
	}
	s.cache.Invalidate(companyID)

	observability.Logger(ctx, s.logger).Info("policy created",
		zap.String("policy_id", p.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("actor_id", actor.ID.String()))
	s.record(ctx, audit.PolicyCreated(p, actor.ID))

	return p, nil
}

// Update replaces the writable fields of a policy
func (s *PolicyService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input PolicyInput) (*models.Policy, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrPolicyNotFound, "failed to get policy")
	}
	if !actor.CanManageCompany(p.CompanyID) {
		return nil, services.ErrInsufficientPermissions
	}
	if input.CompanyID != nil && *input.CompanyID != uuid.Nil && *input.CompanyID != p.CompanyID {
		return nil, services.ErrInvalidPolicyConfig.Wrapf("policies cannot move between companies")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	before := *p
	input.apply(p)
	p.UpdatedAt = time.Now()

	if err := s.policyRepo.Update(ctx, p); err != nil {
		return nil, services.FromRepository(err, services.ErrPolicyNotFound, "failed to update policy")
	}
	s.cache.Invalidate(p.CompanyID)

	changes := diffPolicies(&before, p)
	observability.Logger(ctx, s.logger).Info("policy updated",
		zap.String("policy_id", p.ID.String()),
		zap.Int("changed_fields", len(changes)))
	s.record(ctx, audit.PolicyUpdated(p, actor.ID, changes))

	return p, nil
}

// Delete removes a policy
func (s *PolicyService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor == nil {
		return services.ErrUnauthorized
	}
	p, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return services.FromRepository(err, services.ErrPolicyNotFound, "failed to get policy")
	}
	if !actor.CanManageCompany(p.CompanyID) {
		return services.ErrInsufficientPermissions
	}

	if err := s.policyRepo.Delete(ctx, id); err != nil {
		return services.FromRepository(err, services.ErrPolicyNotFound, "failed to delete policy")
	}
	s.cache.Invalidate(p.CompanyID)

	observability.Logger(ctx, s.logger).Info("policy deleted",
		zap.String("policy_id", id.String()),
		zap.String("company_id", p.CompanyID.String()))
	s.record(ctx, audit.PolicyDeleted(p.CompanyID, id, actor.ID))

	return nil
}

func (s *PolicyService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}

// diffPolicies returns the JSON fields whose values changed, keyed by field name
func diffPolicies(before, after *models.Policy) map[string]interface{} {
	toMap := func(p *models.Policy) map[string]interface{} {
		out := map[string]interface{}{}
		data, err := json.Marshal(p)
		if err != nil {
			return out
		}
		_ = json.Unmarshal(data, &out)
		return out
	}

	old, cur := toMap(before), toMap(after)
	changes := make(map[string]interface{})
	for key, value := range cur {
		if key == "updated_at" {
			continue
		}
		if !reflect.DeepEqual(old[key], value) {
			changes[key] = value
		}
	}
	for key := range old {
		if _, ok := cur[key]; !ok {
			changes[key] = nil
		}
	}
	return changes
}

// InvalidateCompany drops the cached active policy of a company
func (s *PolicyService) InvalidateCompany(companyID uuid.UUID) {
	s.cache.Invalidate(companyID)
	s.logger.Debug("invalidated policy cache", zap.String("company_id", companyID.String()))
}

// GetCacheStats returns cache statistics
func (s *PolicyService) GetCacheStats() CacheStats {
	return s.cache.Stats()
}

// StartCacheCleanup runs the cache cleanup worker until stopCh is closed. It blocks.
func (s *PolicyService) StartCacheCleanup(interval time.Duration, stopCh <-chan struct{}) {
	s.logger.Info("started cache cleanup worker", zap.Duration("interval", interval))
	s.cache.StartCleanupWorker(interval, stopCh)
}
