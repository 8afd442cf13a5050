package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/policy"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"go.uber.org/zap"
)

// ErrNoApproverAvailable is returned when the owner has no manager and the
// company has no travel admin.
var ErrNoApproverAvailable = errors.New("no approver available")

// Router selects approvers. It only reads from its Directory.
type Router struct {
	directory Directory
	logger    *zap.Logger
}

// NewRouter creates a new Router
func NewRouter(directory Directory, logger *zap.Logger) *Router {
	return &Router{
		directory: directory,
		logger:    logger,
	}
}

// Route decides whether the booking needs approval and, if so, by whom.
// A nil policy routes with the default restriction.
func (r *Router) Route(ctx context.Context, booking *models.Booking, result policy.Result, owner *models.User, pol *models.Policy) (*Decision, error) {
	restriction := pol.Restriction()
	if !RequiresApproval(result, restriction) {
		return &Decision{Required: false, Restriction: restriction}, nil
	}

	approver, source, err := r.selectApprover(ctx, owner)
	if err != nil {
		return nil, err
	}

	approvers := models.ApproverList{}
	if pol != nil && len(pol.Approvers) > 0 {
		approvers = append(approvers, pol.Approvers...)
	} else {
		approvers = append(approvers, models.ApproverDescriptor{
			Name: approver.DisplayName(),
			Role: string(source),
		})
	}

	r.logger.Debug("booking routed for approval",
		zap.String("booking_id", booking.ID.String()),
		zap.String("approver_id", approver.ID.String()),
		zap.String("source", string(source)),
		zap.String("restriction", string(restriction)),
		zap.Int("violations", len(result.Violations)))

	return &Decision{
		Required:    true,
		Approver:    approver,
		Source:      source,
		Restriction: restriction,
		Approvers:   approvers,
		Comments:    result.Summary(),
	}, nil
}

func (r *Router) selectApprover(ctx context.Context, owner *models.User) (*models.User, Source, error) {
	if owner.HasManager() && *owner.ManagerID != owner.ID {
		manager, err := r.directory.ManagerOf(ctx, owner)
		if err != nil {
			return nil, "", fmt.Errorf("failed to look up manager: %w", err)
		}
		if manager != nil && manager.CompanyID == owner.CompanyID {
			return manager, SourceManager, nil
		}
		r.logger.Warn("assigned manager unavailable, falling back to travel admin",
			zap.String("user_id", owner.ID.String()),
			zap.String("manager_id", owner.ManagerID.String()))
	}

	admin, err := r.directory.FirstAdmin(ctx, owner.CompanyID, owner.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up travel admin: %w", err)
	}
	if admin == nil {
		return nil, "", fmt.Errorf("%w: user %s in company %s", ErrNoApproverAvailable, owner.ID, owner.CompanyID)
	}
	return admin, SourceTravelAdmin, nil
}

// userDirectory implements Directory over the user repository.
type userDirectory struct {
	users repositories.UserRepository
}

// NewDirectory creates a Directory backed by users.
func NewDirectory(users repositories.UserRepository) Directory {
	return &userDirectory{users: users}
}

func (d *userDirectory) ManagerOf(ctx context.Context, owner *models.User) (*models.User, error) {
	if !owner.HasManager() {
		return nil, nil
	}
	manager, err := d.users.GetByID(ctx, *owner.ManagerID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return manager, err
}

func (d *userDirectory) FirstAdmin(ctx context.Context, companyID uuid.UUID, excluding uuid.UUID) (*models.User, error) {
	admin, err := d.users.GetFirstByRole(ctx, companyID, models.RoleTravelAdmin, excluding)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return admin, err
}
