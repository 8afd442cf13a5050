package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/booking"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// BookingService defines the booking lifecycle operations the HTTP layer needs
type BookingService interface {
	Submit(ctx context.Context, actor *models.User, input booking.SubmitInput) (*booking.SubmitResult, error)
	CheckCompliance(ctx context.Context, actor *models.User, input booking.SubmitInput) (*booking.CheckResult, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error)
	List(ctx context.Context, actor *models.User, input booking.ListInput) ([]*models.Booking, error)
	Confirm(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Booking, error)
	Cancel(ctx context.Context, actor *models.User, id uuid.UUID, reason string) (*models.Booking, error)
}

// CancelBookingRequest is the optional body of a cancellation
type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookings BookingService
	logger   *zap.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// HandleSubmit handles POST /api/v1/bookings
// Responds 201 with the booking, its compliance verdict and the approval if one was raised.
func (h *BookingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input booking.SubmitInput
	if err := decodeJSON(w, r, &input); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		badRequest(w, err)
		return
	}

	result, err := h.bookings.Submit(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("booking submitted",
		zap.String("booking_id", result.Booking.ID.String()),
		zap.String("status", string(result.Booking.Status)),
		zap.Bool("compliant", result.Compliance.Compliant))
	_ = utils.WriteCreated(w, result)
}

// HandleCheck handles POST /api/v1/bookings/check
func (h *BookingHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}

	var input booking.SubmitInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.bookings.CheckCompliance(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleList handles GET /api/v1/bookings
// Query: status, user_id, trip_id, company_id, limit, offset.
func (h *BookingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}

	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	input := booking.ListInput{Limit: page.Limit, Offset: page.Offset}
	for _, q := range []struct {
		name string
		dst  **uuid.UUID
	}{
		{"user_id", &input.UserID},
		{"trip_id", &input.TripID},
		{"company_id", &input.CompanyID},
	} {
		if *q.dst, err = optionalUUIDQuery(r, q.name); err != nil {
			badRequest(w, err)
			return
		}
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.BookingStatus(raw)
		input.Status = &status
	}

	bookings, err := h.bookings.List(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, bookings)
}

// HandleGet handles GET /api/v1/bookings/{id}
func (h *BookingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	b, err := h.bookings.Get(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, b)
}

// HandleConfirm handles POST /api/v1/bookings/{id}/confirm
func (h *BookingHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
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

	b, err := h.bookings.Confirm(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("booking confirmed", zap.String("booking_id", id.String()))
	_ = utils.WriteOK(w, b)
}

// HandleCancel handles POST /api/v1/bookings/{id}/cancel
func (h *BookingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
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

	var req CancelBookingRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		badRequest(w, err)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, logger)
		return
	}

	b, err := h.bookings.Cancel(r.Context(), user, id, req.Reason)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("booking cancelled", zap.String("booking_id", id.String()))
	_ = utils.WriteOK(w, b)
}
