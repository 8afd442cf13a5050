package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/internal/observability"
	compliance "github.com/upb/travel-control-plane/internal/policy"
	"github.com/upb/travel-control-plane/internal/routing"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit"
	"github.com/upb/travel-control-plane/services/notification"
	"go.uber.org/zap"
)

// PolicySource provides the policy a company's bookings are evaluated against.
// A nil policy means the company has none.
type PolicySource interface {
	ActivePolicy(ctx context.Context, companyID uuid.UUID) (*models.Policy, error)
}

// Router decides whether a booking needs approval and by whom
type Router interface {
	Route(ctx context.Context, booking *models.Booking, result compliance.Result, owner *models.User, pol *models.Policy) (*routing.Decision, error)
}

// SubmitInput is a booking request as quoted by the flight or hotel provider
type SubmitInput struct {
	Type        models.BookingType `json:"type" validate:"required,oneof=flight hotel"`
	Price       decimal.Decimal    `json:"price"`
	Currency    string             `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	BookingDate string             `json:"booking_date" validate:"required"`
	TripID      *uuid.UUID         `json:"trip_id,omitempty"`
	Details     json.RawMessage    `json:"details,omitempty"`
}

// SubmitResult is the persisted booking with its verdict
type SubmitResult struct {
	Booking    *models.Booking   `json:"booking"`
	Compliance compliance.Result `json:"compliance"`
	Approval   *models.Approval  `json:"approval,omitempty"`
}

// CheckResult is the outcome of a dry-run compliance check
type CheckResult struct {
	Compliance       compliance.Result          `json:"compliance"`
	ApprovalRequired bool                       `json:"approval_required"`
	Restriction      models.ApprovalRestriction `json:"restriction"`
	PolicyID         *uuid.UUID                 `json:"policy_id,omitempty"`
}

// ListInput filters booking listings
type ListInput struct {
	CompanyID *uuid.UUID
	UserID    *uuid.UUID
	TripID    *uuid.UUID
	Status    *models.BookingStatus
	Limit     int
	Offset    int
}

// Config tunes the booking service
type Config struct {
	DefaultCurrency string
}

// BookingService runs the booking lifecycle: evaluate, route, persist, notify
type BookingService struct {
	bookings  repositories.BookingRepository
	approvals repositories.ApprovalRepository
	trips     repositories.TripRepository
	txMgr     repositories.TransactionManager
	policies  PolicySource
	engine    compliance.Engine
	router    Router
	notifier  notification.Notifier
	audit     audit.Recorder
	metrics   observability.Metrics
	logger    *zap.Logger
	currency  string
}

// Dependencies groups the collaborators of BookingService
type Dependencies struct {
	Repos    *repositories.Repositories
	TxMgr    repositories.TransactionManager
	Policies PolicySource
	Engine   compliance.Engine
	Router   Router
	Notifier notification.Notifier
	Audit    audit.Recorder
	Metrics  observability.Metrics
	Logger   *zap.Logger
}

// NewBookingService creates a new BookingService instance
func NewBookingService(deps Dependencies, cfg Config) *BookingService {
	currency := strings.ToUpper(cfg.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &BookingService{
		bookings:  deps.Repos.Bookings,
		approvals: deps.Repos.Approvals,
		trips:     deps.Repos.Trips,
		txMgr:     deps.TxMgr,
		policies:  deps.Policies,
		engine:    deps.Engine,
		router:    deps.Router,
		notifier:  deps.Notifier,
		audit:     deps.Audit,
		metrics:   metrics,
		logger:    deps.Logger,
		currency:  currency,
	}
}

// prepare validates the input and builds the unsaved booking
func (s *BookingService) prepare(ctx context.Context, actor *models.User, input SubmitInput) (*models.Booking, *models.Trip, error) {
	if err := services.ValidateInput(input); err != nil {
		return nil, nil, err
	}
	if input.Price.IsNegative() {
		return nil, nil, services.ErrInvalidBooking.Wrapf("price must not be negative").WithDetail("field", "price")
	}

	date, err := compliance.ParseBookingDate(input.BookingDate)
	if err != nil {
		return nil, nil, services.ErrInvalidBooking.Wrap(err).WithDetail("field", "booking_date")
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = s.currency
	}

	b := models.NewBooking(actor.CompanyID, actor.ID, input.Type, input.Price.Round(2), currency, date)
	if len(input.Details) > 0 {
		var details map[string]interface{}
		if err := json.Unmarshal(input.Details, &details); err != nil {
			return nil, nil, services.ErrInvalidBooking.Wrapf("details must be a JSON object").WithDetail("field", "details")
		}
		b.Details = input.Details
	}

	var trip *models.Trip
	if input.TripID != nil {
		trip, err = s.trips.GetByID(ctx, *input.TripID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, nil, services.ErrInvalidBooking.Wrapf("trip %s does not exist", *input.TripID).WithDetail("field", "trip_id")
			}
			return nil, nil, services.WrapInternal("failed to load trip", err)
		}
		if trip.CompanyID != actor.CompanyID {
			return nil, nil, services.ErrInvalidBooking.Wrapf("trip belongs to another company").WithDetail("field", "trip_id")
		}
		if trip.UserID != actor.ID && !actor.CanManageCompany(trip.CompanyID) {
			return nil, nil, services.ErrInvalidBooking.Wrapf("trip belongs to another traveler").WithDetail("field", "trip_id")
		}
		if trip.IsClosed() {
			return nil, nil, services.ErrInvalidBooking.Wrapf("trip is %s", trip.Status).WithDetail("field", "trip_id")
		}
		b.TripID = &trip.ID
	}

	return b, trip, nil
}

// evaluate loads the active policy and checks the booking against it
func (s *BookingService) evaluate(ctx context.Context, b *models.Booking) (*models.Policy, compliance.Result, error) {
	pol, err := s.policies.ActivePolicy(ctx, b.CompanyID)
	if err != nil {
		return nil, compliance.Result{}, err
	}

	result, err := s.engine.Evaluate(compliance.SnapshotFromBooking(b), compliance.RulesFromPolicy(pol))
	if err != nil {
		return nil, compliance.Result{}, services.ErrInvalidBooking.Wrap(err)
	}
	return pol, result, nil
}

// CheckCompliance evaluates a booking request without persisting anything
func (s *BookingService) CheckCompliance(ctx context.Context, actor *models.User, input SubmitInput) (*CheckResult, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	b, _, err := s.prepare(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	pol, result, err := s.evaluate(ctx, b)
	if err != nil {
		return nil, err
	}

	restriction := pol.Restriction()
	check := &CheckResult{
		Compliance:       result,
		Restriction:      restriction,
		ApprovalRequired: routing.RequiresApproval(result, restriction),
	}
	if pol != nil {
		check.PolicyID = &pol.ID
	}
	return check, nil
}

// Submit evaluates a booking, routes it for approval when required and
// persists the booking, its approval and its status atomically.
func (s *BookingService) Submit(ctx context.Context, actor *models.User, input SubmitInput) (*SubmitResult, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	logger := observability.Logger(ctx, s.logger)

	b, trip, err := s.prepare(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	pol, result, err := s.evaluate(ctx, b)
	if err != nil {
		return nil, err
	}
	b.IsPolicyCompliant = result.Compliant
	if summary := result.Summary(); summary != "" {
		b.ComplianceNotes = &summary
	}
	policyID := uuid.Nil
	if pol != nil {
		policyID = pol.ID
		b.PolicyID = &policyID
	}

	decision, err := s.router.Route(ctx, b, result, actor, pol)
	if err != nil {
		if errors.Is(err, routing.ErrNoApproverAvailable) {
			logger.Warn("booking cannot be routed, no approver available",
				zap.String("user_id", actor.ID.String()),
				zap.String("company_id", actor.CompanyID.String()))
			return nil, services.ErrNoApproverAvailable.Wrap(err)
		}
		return nil, services.WrapInternal("failed to route booking", err)
	}

	var approval *models.Approval
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		if err := s.bookings.Create(ctx, b); err != nil {
			return services.FromRepository(err, services.ErrBookingNotFound, "failed to create booking")
		}

		next := models.BookingStatusConfirmed
		if decision.Required {
			approval = decision.NewApproval(b, policyID)
			if err := s.approvals.Create(ctx, approval); err != nil {
				return services.FromRepository(err, services.ErrApprovalNotFound, "failed to create approval")
			}
			next = models.BookingStatusPendingApproval
		}

		if err := s.transition(ctx, b, next); err != nil {
			return err
		}

		if trip != nil {
			total, err := s.trips.AddCost(ctx, trip.ID, b.Price)
			if err != nil {
				return services.FromRepository(err, services.ErrTripNotFound, "failed to update trip cost")
			}
			trip.TotalCost = total
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEvaluation(ctx, observability.EvaluationLabels{
		BookingType:      string(b.Type),
		Compliant:        result.Compliant,
		ApprovalRequired: decision.Required,
	})
	logger.Info("booking submitted",
		zap.String("booking_id", b.ID.String()),
		zap.String("status", string(b.Status)),
		zap.Bool("compliant", result.Compliant),
		zap.Int("violations", len(result.Violations)))

	s.record(ctx, audit.BookingSubmitted(b, actor.ID))
	if !result.Compliant {
		s.record(ctx, audit.PolicyViolation(b, actor.ID, result.Messages()))
	}
	if approval != nil {
		s.record(ctx, audit.ApprovalRequested(approval, actor.ID))
		if err := s.notifier.ApprovalRequested(ctx, approval, b, decision.Approver); err != nil {
			logger.Warn("failed to notify approver",
				zap.String("approval_id", approval.ID.String()),
				zap.Error(err))
		}
	} else {
		s.record(ctx, audit.BookingConfirmed(b, actor.ID))
	}

	return &SubmitResult{Booking: b, Compliance: result, Approval: approval}, nil
}

// transition moves a booking through the state machine and persists the move
func (s *BookingService) transition(ctx context.Context, b *models.Booking, next models.BookingStatus) error {
	from := b.Status
	if err := b.TransitionTo(next); err != nil {
		return services.ErrInvalidTransition.Wrap(err)
	}
	if err := s.bookings.UpdateStatus(ctx, b.ID, from, next); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrConcurrentUpdate.Wrap(err)
		}
		return services.WrapInternal("failed to update booking status", err)
	}
	return nil
}

// canView reports whether actor may read the booking
func (s *BookingService) canView(ctx context.Context, actor *models.User, b *models.Booking) (bool, error) {
	if b.IsOwnedBy(actor.ID) || actor.CanManageCompany(b.CompanyID) {
		return true, nil
	}
	if actor.CompanyID != b.CompanyID {
		return false, nil
	}
	approvals, err := s.approvals.GetByBookingID(ctx, b.ID)
	if err != nil {
		return false, services.FromRepository(err, services.ErrApprovalNotFound, "failed to load approvals")
	}
	for _, a := range approvals {
		if a.ApproverID == actor.ID {
			return true, nil
		}
	}
	return false, nil
}

// Get returns a booking visible to the actor: its owner, a company admin or its approver
func (s *BookingService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to get booking")
	}
	ok, err := s.canView(ctx, actor, b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, services.ErrBookingNotFound
	}
	return b, nil
}

// List returns bookings. Employees see their own; admins see their company's.
func (s *BookingService) List(ctx context.Context, actor *models.User, input ListInput) ([]*models.Booking, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}

	filter := repositories.BookingFilter{
		CompanyID: actor.CompanyID,
		UserID:    input.UserID,
		TripID:    input.TripID,
		Status:    input.Status,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	if input.CompanyID != nil && *input.CompanyID != actor.CompanyID {
		if !actor.IsSuperAdmin() {
			return nil, services.ErrCompanyMismatch
		}
		filter.CompanyID = *input.CompanyID
	}
	if !actor.CanManageCompany(filter.CompanyID) {
		filter.UserID = &actor.ID
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, services.ErrInvalidInput.Wrapf("unknown booking status %q", *filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	bookings, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to list bookings")
	}
	return bookings, nil
}

// Confirm finalises an approved booking. Only the owner or a company admin may confirm.
func (s *BookingService) Confirm(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}

	b, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Booking, error) {
		b, err := s.lockForActor(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if b.Status != models.BookingStatusApproved {
			return nil, services.ErrInvalidTransition.Wrapf("booking is %s, only approved bookings can be confirmed", b.Status)
		}
		if err := s.transition(ctx, b, models.BookingStatusConfirmed); err != nil {
			return nil, err
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	observability.Logger(ctx, s.logger).Info("booking confirmed", zap.String("booking_id", b.ID.String()))
	s.record(ctx, audit.BookingConfirmed(b, actor.ID))
	return b, nil
}

// Cancel withdraws a booking that is awaiting approval or approved.
// A pending approval is cancelled in the same transaction.
func (s *BookingService) Cancel(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (*models.Booking, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}

	var cancelled *models.Approval
	b, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Booking, error) {
		b, err := s.lockForActor(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if !b.Status.CanTransitionTo(models.BookingStatusCancelled) {
			return nil, services.ErrInvalidTransition.Wrapf("booking is %s and cannot be cancelled", b.Status)
		}

		if b.Status == models.BookingStatusPendingApproval {
			a, err := s.approvals.GetPendingByBookingID(ctx, b.ID)
			switch {
			case errors.Is(err, repositories.ErrNotFound):
				// nothing to withdraw
			case err != nil:
				return nil, services.WrapInternal("failed to load pending approval", err)
			default:
				comments := reason
				if comments == "" {
					comments = fmt.Sprintf("cancelled by %s", actor.DisplayName())
				}
				if err := a.Resolve(actor.ID, models.ApprovalStatusCancelled, comments, time.Now()); err != nil {
					return nil, services.ErrApprovalNotPending.Wrap(err)
				}
				if err := s.approvals.Resolve(ctx, a); err != nil {
					return nil, services.FromRepository(err, services.ErrApprovalNotPending, "failed to cancel approval")
				}
				cancelled = a
			}
		}

		if err := s.transition(ctx, b, models.BookingStatusCancelled); err != nil {
			return nil, err
		}

		if b.TripID != nil {
			_, err := s.trips.AddCost(ctx, *b.TripID, b.Price.Neg())
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, services.WrapInternal("failed to release trip cost", err)
			}
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	logger := observability.Logger(ctx, s.logger)
	logger.Info("booking cancelled", zap.String("booking_id", b.ID.String()))
	s.record(ctx, audit.BookingCancelled(b, actor.ID))
	if cancelled != nil {
		if err := s.notifier.ApprovalCancelled(ctx, cancelled, b); err != nil {
			logger.Warn("failed to notify approver of cancellation",
				zap.String("approval_id", cancelled.ID.String()),
				zap.Error(err))
		}
	}
	return b, nil
}

// lockForActor loads the booking for update and checks the actor may change it
func (s *BookingService) lockForActor(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error) {
	b, err := s.bookings.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to load booking")
	}
	if b.IsOwnedBy(actor.ID) || actor.CanManageCompany(b.CompanyID) {
		return b, nil
	}
	if actor.CompanyID != b.CompanyID {
		return nil, services.ErrBookingNotFound
	}
	return nil, services.ErrInsufficientPermissions
}

func (s *BookingService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}
