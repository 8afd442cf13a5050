package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/trip"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// TripService defines the trip operations the HTTP layer needs
type TripService interface {
	Create(ctx context.Context, actor *models.User, input trip.CreateInput) (*models.Trip, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, actor *models.User, input trip.ListInput) ([]*models.Trip, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input trip.UpdateInput) (*models.Trip, error)
}

// TripHandler handles trip HTTP requests
type TripHandler struct {
	trips  TripService
	logger *zap.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(trips TripService, logger *zap.Logger) *TripHandler {
	return &TripHandler{trips: trips, logger: logger}
}

// HandleCreate handles POST /api/v1/trips
func (h *TripHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input trip.CreateInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	t, err := h.trips.Create(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("trip created", zap.String("trip_id", t.ID.String()))
	_ = utils.WriteCreated(w, t)
}

// HandleList handles GET /api/v1/trips
func (h *TripHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	userID, err := optionalUUIDQuery(r, "user_id")
	if err != nil {
		badRequest(w, err)
		return
	}

	trips, err := h.trips.List(r.Context(), user, trip.ListInput{
		UserID: userID,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, trips)
}

// HandleGet handles GET /api/v1/trips/{id}
func (h *TripHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	t, err := h.trips.Get(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, t)
}

// HandleUpdate handles PATCH /api/v1/trips/{id}
func (h *TripHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	var input trip.UpdateInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	t, err := h.trips.Update(r.Context(), user, id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("trip updated", zap.String("trip_id", id.String()), zap.String("status", string(t.Status)))
	_ = utils.WriteOK(w, t)
}
