package trip

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"github.com/upb/travel-control-plane/services/audit"
	"go.uber.org/zap"
)

// CreateInput describes a new trip. Dates use models.BookingDateLayout.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Purpose     string `json:"purpose,omitempty" validate:"max=1000"`
	Destination string `json:"destination,omitempty" validate:"max=255"`
	StartDate   string `json:"start_date" validate:"required"`
	EndDate     string `json:"end_date" validate:"required"`
}

// UpdateInput carries optional trip changes
type UpdateInput struct {
	Name        *string            `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Purpose     *string            `json:"purpose,omitempty" validate:"omitempty,max=1000"`
	Destination *string            `json:"destination,omitempty" validate:"omitempty,max=255"`
	Status      *models.TripStatus `json:"status,omitempty" validate:"omitempty,oneof=draft pending approved completed cancelled"`
}

// ListInput filters trip listings
type ListInput struct {
	UserID *uuid.UUID
	Limit  int
	Offset int
}

// TripService manages trips
type TripService struct {
	trips  repositories.TripRepository
	audit  audit.Recorder
	logger *zap.Logger
}

// NewTripService creates a new TripService instance
func NewTripService(trips repositories.TripRepository, recorder audit.Recorder, logger *zap.Logger) *TripService {
	return &TripService{
		trips:  trips,
		audit:  recorder,
		logger: logger,
	}
}

func parseDates(start, end string) (time.Time, time.Time, error) {
	from, err := time.Parse(models.BookingDateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, services.ErrInvalidInput.Wrapf("start_date must be YYYY-MM-DD").WithDetail("field", "start_date")
	}
	to, err := time.Parse(models.BookingDateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, services.ErrInvalidInput.Wrapf("end_date must be YYYY-MM-DD").WithDetail("field", "end_date")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, services.ErrInvalidInput.Wrapf("end_date is before start_date").WithDetail("field", "end_date")
	}
	return from, to, nil
}

// Create opens a draft trip owned by the actor
func (s *TripService) Create(ctx context.Context, actor *models.User, input CreateInput) (*models.Trip, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}
	start, end, err := parseDates(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	t := models.NewTrip(actor.CompanyID, actor.ID, strings.TrimSpace(input.Name), start, end)
	t.Purpose = input.Purpose
	t.Destination = input.Destination

	if err := s.trips.Create(ctx, t); err != nil {
		return nil, services.FromRepository(err, services.ErrTripNotFound, "failed to create trip")
	}

	observability.Logger(ctx, s.logger).Info("trip created",
		zap.String("trip_id", t.ID.String()),
		zap.String("user_id", actor.ID.String()))
	s.record(ctx, audit.TripCreated(t, actor.ID))
	return t, nil
}

// load returns a trip the actor owns or administers
func (s *TripService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrTripNotFound, "failed to get trip")
	}
	if t.UserID != actor.ID && !actor.CanManageCompany(t.CompanyID) {
		return nil, services.ErrTripNotFound
	}
	return t, nil
}

// Get returns a trip visible to the actor
func (s *TripService) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	return s.load(ctx, actor, id)
}

// List returns the actor's trips, or for admins the company's or one traveler's
func (s *TripService) List(ctx context.Context, actor *models.User, input ListInput) ([]*models.Trip, error) {
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
		trips []*models.Trip
		err   error
	)
	switch {
	case !actor.CanManageCompany(actor.CompanyID):
		if input.UserID != nil && *input.UserID != actor.ID {
			return nil, services.ErrInsufficientPermissions
		}
		trips, err = s.trips.GetByUserID(ctx, actor.ID, limit, offset)
	case input.UserID != nil:
		trips, err = s.trips.GetByUserID(ctx, *input.UserID, limit, offset)
		if err == nil {
			trips = visible(actor, trips)
		}
	default:
		trips, err = s.trips.GetByCompanyID(ctx, actor.CompanyID, limit, offset)
	}
	if err != nil {
		return nil, services.FromRepository(err, services.ErrTripNotFound, "failed to list trips")
	}
	return trips, nil
}

func visible(actor *models.User, trips []*models.Trip) []*models.Trip {
	out := make([]*models.Trip, 0, len(trips))
	for _, t := range trips {
		if actor.CanManageCompany(t.CompanyID) {
			out = append(out, t)
		}
	}
	return out
}

// Update changes trip details or moves the trip through its status workflow
func (s *TripService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateInput) (*models.Trip, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	t, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]interface{})
	if input.Name != nil && *input.Name != t.Name {
		changes["name"] = map[string]string{"old": t.Name, "new": *input.Name}
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Purpose != nil && *input.Purpose != t.Purpose {
		changes["purpose"] = map[string]string{"old": t.Purpose, "new": *input.Purpose}
		t.Purpose = *input.Purpose
	}
	if input.Destination != nil && *input.Destination != t.Destination {
		changes["destination"] = map[string]string{"old": t.Destination, "new": *input.Destination}
		t.Destination = *input.Destination
	}
	if input.Status != nil && *input.Status != t.Status {
		if !t.Status.CanTransitionTo(*input.Status) {
			return nil, services.ErrInvalidTransition.Wrapf("trip cannot move from %s to %s", t.Status, *input.Status)
		}
		if *input.Status == models.TripStatusApproved && !actor.CanManageCompany(t.CompanyID) {
			return nil, services.ErrInsufficientPermissions
		}
		changes["status"] = map[string]string{"old": string(t.Status), "new": string(*input.Status)}
		t.Status = *input.Status
	}

	if len(changes) == 0 {
		return t, nil
	}
	t.UpdatedAt = time.Now()

	if err := s.trips.Update(ctx, t); err != nil {
		return nil, services.FromRepository(err, services.ErrTripNotFound, "failed to update trip")
	}

	observability.Logger(ctx, s.logger).Info("trip updated",
		zap.String("trip_id", t.ID.String()),
		zap.Int("changes", len(changes)))
	s.record(ctx, audit.TripUpdated(t, actor.ID, changes))
	return t, nil
}

func (s *TripService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}
