package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/audit"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// AuditReader defines the audit trail queries the HTTP layer needs
type AuditReader interface {
	List(ctx context.Context, actor *models.User, input audit.ListInput) ([]*models.AuditLog, error)
	ListForResource(ctx context.Context, actor *models.User, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	audit  AuditReader
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(reader AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: reader, logger: logger}
}

// HandleListLogs handles GET /api/v1/audit/logs
// Query: company_id, start, end (RFC 3339), limit, offset.
func (h *AuditHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	companyID, err := optionalUUIDQuery(r, "company_id")
	if err != nil {
		badRequest(w, err)
		return
	}

	input := audit.ListInput{Limit: page.Limit, Offset: page.Offset}
	if companyID != nil {
		input.CompanyID = *companyID
	}
	if input.Start, err = timeQuery(r, "start"); err != nil {
		badRequest(w, err)
		return
	}
	if input.End, err = timeQuery(r, "end"); err != nil {
		badRequest(w, err)
		return
	}

	logs, err := h.audit.List(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, logs)
}

// HandleBookingHistory handles GET /api/v1/bookings/{id}/history
func (h *AuditHandler) HandleBookingHistory(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	logs, err := h.audit.ListForResource(r.Context(), user, audit.ResourceBooking, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, logs)
}

func timeQuery(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}
