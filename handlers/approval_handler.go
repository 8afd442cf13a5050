package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/approval"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// ApprovalService defines the approval operations the HTTP layer needs
type ApprovalService interface {
	Resolve(ctx context.Context, actor *models.User, id uuid.UUID, input approval.ResolveInput) (*approval.ResolveResult, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Approval, error)
	ListPending(ctx context.Context, actor *models.User, input approval.ListPendingInput) ([]*models.Approval, error)
	ListForBooking(ctx context.Context, actor *models.User, bookingID uuid.UUID) ([]*models.Approval, error)
}

// ApprovalHandler handles approval HTTP requests
type ApprovalHandler struct {
	approvals ApprovalService
	logger    *zap.Logger
}

// NewApprovalHandler creates a new ApprovalHandler
func NewApprovalHandler(approvals ApprovalService, logger *zap.Logger) *ApprovalHandler {
	return &ApprovalHandler{
		approvals: approvals,
		logger:    logger,
	}
}

// HandleListPending handles GET /api/v1/approvals
// ?scope=company lists the whole company queue for administrators.
func (h *ApprovalHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	input := approval.ListPendingInput{Limit: page.Limit, Offset: page.Offset}
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "mine":
	case "company":
		input.Company = true
	default:
		_ = utils.WriteBadRequest(w, "scope must be mine or company", map[string]interface{}{"scope": scope})
		return
	}

	approvals, err := h.approvals.ListPending(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, approvals)
}

// HandleGet handles GET /api/v1/approvals/{id}
func (h *ApprovalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	a, err := h.approvals.Get(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, a)
}

// HandleResolve handles POST /api/v1/approvals/{id}/resolve
func (h *ApprovalHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
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

	var input approval.ResolveInput
	if err := decodeJSON(w, r, &input); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		badRequest(w, err)
		return
	}

	result, err := h.approvals.Resolve(r.Context(), user, id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("approval resolved",
		zap.String("approval_id", id.String()),
		zap.String("outcome", string(result.Approval.Status)))
	_ = utils.WriteOK(w, result)
}

// HandleListForBooking handles GET /api/v1/bookings/{id}/approvals
func (h *ApprovalHandler) HandleListForBooking(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	approvals, err := h.approvals.ListForBooking(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, approvals)
}
