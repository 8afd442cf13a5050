package approval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit"
	"github.com/upb/travel-control-plane/services/notification"
	"go.uber.org/zap"
)

// ResolveInput is an approver's decision
type ResolveInput struct {
	Outcome  models.ApprovalStatus `json:"outcome" validate:"required,oneof=approved rejected"`
	Comments string                `json:"comments,omitempty" validate:"max=2000"`
}

// ResolveResult carries the decided approval and the booking it moved
type ResolveResult struct {
	Approval *models.Approval `json:"approval"`
	Booking  *models.Booking  `json:"booking"`
}

// ListPendingInput selects an approval queue
type ListPendingInput struct {
	// Company lists every pending approval of the actor's company. Admins only.
	Company bool
	Limit   int
	Offset  int
}

// Dependencies groups the collaborators of ApprovalService
type Dependencies struct {
	Repos    *repositories.Repositories
	TxMgr    repositories.TransactionManager
	Notifier notification.Notifier
	Audit    audit.Recorder
	Metrics  observability.Metrics
	Logger   *zap.Logger
}

// ApprovalService handles approver decisions and approval queries
type ApprovalService struct {
	approvals repositories.ApprovalRepository
	bookings  repositories.BookingRepository
	trips     repositories.TripRepository
	users     repositories.UserRepository
	txMgr     repositories.TransactionManager
	notifier  notification.Notifier
	audit     audit.Recorder
	metrics   observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService creates a new ApprovalService instance
func NewApprovalService(deps Dependencies) *ApprovalService {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	return &ApprovalService{
		approvals: deps.Repos.Approvals,
		bookings:  deps.Repos.Bookings,
		trips:     deps.Repos.Trips,
		users:     deps.Repos.Users,
		txMgr:     deps.TxMgr,
		notifier:  deps.Notifier,
		audit:     deps.Audit,
		metrics:   metrics,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// mayResolve reports whether actor holds decision authority over the approval.
// The designated approver always does; super admins and the company's travel
// admins may override, except on bookings they own (checked in Resolve).
func mayResolve(actor *models.User, a *models.Approval) bool {
	return actor.ID == a.ApproverID || actor.CanManageCompany(a.CompanyID)
}

// Resolve records an approve or reject decision and cascades it to the booking
// in the same transaction. Unauthorized actors change nothing.
func (s *ApprovalService) Resolve(ctx context.Context, actor *models.User, id uuid.UUID, input ResolveInput) (*ResolveResult, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if !input.Outcome.IsOutcome() {
		return nil, services.ErrInvalidOutcome.Wrapf("outcome %q", input.Outcome).WithDetail("outcome", string(input.Outcome))
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*ResolveResult, error) {
		a, err := s.approvals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, services.FromRepository(err, services.ErrApprovalNotFound, "failed to load approval")
		}
		if !actor.CanViewCompany(a.CompanyID) {
			return nil, services.ErrApprovalNotFound
		}
		if !mayResolve(actor, a) {
			return nil, services.ErrNotApprover
		}
		if !a.IsPending() {
			return nil, services.ErrApprovalNotPending.Wrapf("approval is %s", a.Status)
		}

		b, err := s.bookings.GetByIDForUpdate(ctx, a.BookingID)
		if err != nil {
			return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to load booking")
		}
		// Override authority never extends to one's own booking.
		if b.IsOwnedBy(actor.ID) && actor.ID != a.ApproverID {
			return nil, services.ErrNotApprover
		}

		if err := a.Resolve(actor.ID, input.Outcome, input.Comments, s.now()); err != nil {
			return nil, services.ErrApprovalNotPending.Wrap(err)
		}
		if err := s.approvals.Resolve(ctx, a); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrConcurrentUpdate.Wrap(err)
			}
			return nil, services.WrapInternal("failed to resolve approval", err)
		}

		from := b.Status
		if err := b.TransitionTo(input.Outcome.BookingStatus()); err != nil {
			return nil, services.ErrInvalidTransition.Wrap(err)
		}
		if err := s.bookings.UpdateStatus(ctx, b.ID, from, b.Status); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.ErrConcurrentUpdate.Wrap(err)
			}
			return nil, services.WrapInternal("failed to update booking status", err)
		}

		if b.Status == models.BookingStatusRejected && b.TripID != nil {
			if err := s.releaseTripCost(ctx, b); err != nil {
				return nil, err
			}
		}
		return &ResolveResult{Approval: a, Booking: b}, nil
	})
	if err != nil {
		return nil, err
	}

	logger := observability.Logger(ctx, s.logger)
	override := actor.ID != result.Approval.ApproverID
	logger.Info("approval resolved",
		zap.String("approval_id", result.Approval.ID.String()),
		zap.String("booking_id", result.Booking.ID.String()),
		zap.String("outcome", string(result.Approval.Status)),
		zap.Bool("override", override))

	s.metrics.RecordResolution(ctx, string(result.Approval.Status))
	s.record(ctx, audit.ApprovalResolved(result.Approval, actor.ID))
	s.notifyOwner(ctx, result)
	return result, nil
}

func (s *ApprovalService) releaseTripCost(ctx context.Context, b *models.Booking) error {
	_, err := s.trips.AddCost(ctx, *b.TripID, b.Price.Neg())
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return services.WrapInternal("failed to release trip cost", err)
	}
	return nil
}

func (s *ApprovalService) notifyOwner(ctx context.Context, result *ResolveResult) {
	if s.notifier == nil {
		return
	}
	logger := observability.Logger(ctx, s.logger)

	owner, err := s.users.GetByID(ctx, result.Booking.UserID)
	if err != nil {
		logger.Warn("failed to load booking owner for notification",
			zap.String("booking_id", result.Booking.ID.String()),
			zap.Error(err))
		return
	}
	if err := s.notifier.ApprovalResolved(ctx, result.Approval, result.Booking, owner); err != nil {
		logger.Warn("failed to notify booking owner",
			zap.String("approval_id", result.Approval.ID.String()),
			zap.Error(err))
	}
}

// Get returns an approval visible to the actor: the approver, the booking's
// owner or a company admin. Anyone else gets not found.
func (s *ApprovalService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Approval, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	a, err := s.approvals.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrApprovalNotFound, "failed to get approval")
	}
	if mayResolve(actor, a) {
		return a, nil
	}
	if actor.CompanyID != a.CompanyID {
		return nil, services.ErrApprovalNotFound
	}

	b, err := s.bookings.GetByID(ctx, a.BookingID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to load booking")
	}
	if !b.IsOwnedBy(actor.ID) {
		return nil, services.ErrApprovalNotFound
	}
	return a, nil
}

// ListPending returns the actor's approval queue
func (s *ApprovalService) ListPending(ctx context.Context, actor *models.User, input ListPendingInput) ([]*models.Approval, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	limit, offset := input.Limit, input.Offset
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var (
		approvals []*models.Approval
		err       error
	)
	if input.Company {
		if !actor.CanManageCompany(actor.CompanyID) {
			return nil, services.ErrInsufficientPermissions
		}
		approvals, err = s.approvals.GetPendingByCompanyID(ctx, actor.CompanyID, limit, offset)
	} else {
		approvals, err = s.approvals.GetPendingByApproverID(ctx, actor.ID, limit, offset)
	}
	if err != nil {
		return nil, services.FromRepository(err, services.ErrApprovalNotFound, "failed to list pending approvals")
	}
	return approvals, nil
}

// ListForBooking returns the approval history of a booking
func (s *ApprovalService) ListForBooking(ctx context.Context, actor *models.User, bookingID uuid.UUID) ([]*models.Approval, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrBookingNotFound, "failed to get booking")
	}
	if !actor.CanViewCompany(b.CompanyID) {
		return nil, services.ErrBookingNotFound
	}

	approvals, err := s.approvals.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrApprovalNotFound, "failed to list approvals")
	}
	if b.IsOwnedBy(actor.ID) || actor.CanManageCompany(b.CompanyID) {
		return approvals, nil
	}
	for _, a := range approvals {
		if a.ApproverID == actor.ID {
			return approvals, nil
		}
	}
	return nil, services.ErrBookingNotFound
}

func (s *ApprovalService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}
