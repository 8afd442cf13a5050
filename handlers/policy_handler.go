package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/policy"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// PolicyService defines the policy operations the HTTP layer needs
type PolicyService interface {
	Active(ctx context.Context, actor *models.User) (*models.Policy, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Policy, error)
	List(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.Policy, error)
	Create(ctx context.Context, actor *models.User, input policy.PolicyInput) (*models.Policy, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, input policy.PolicyInput) (*models.Policy, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// PolicyHandler handles policy-related HTTP requests
type PolicyHandler struct {
	policies PolicyService
	logger   *zap.Logger
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(policies PolicyService, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		logger:   logger,
	}
}

// HandleListPolicies handles GET /api/v1/policies
// A super admin may pass ?company_id= to look at another company.
func (h *PolicyHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	companyID, err := optionalUUIDQuery(r, "company_id")
	if err != nil {
		badRequest(w, err)
		return
	}
	target := uuid.Nil
	if companyID != nil {
		target = *companyID
	}

	policies, err := h.policies.List(r.Context(), user, target)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}

	requestLogger(r, h.logger).Debug("listed policies", zap.Int("count", len(policies)))
	_ = utils.WriteOK(w, policies)
}

// HandleActivePolicy handles GET /api/v1/policies/active
func (h *PolicyHandler) HandleActivePolicy(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}

	p, err := h.policies.Active(r.Context(), user)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, p)
}

// HandleGetPolicy handles GET /api/v1/policies/{id}
func (h *PolicyHandler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	p, err := h.policies.Get(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, p)
}

// HandleCreatePolicy handles POST /api/v1/policies
func (h *PolicyHandler) HandleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input policy.PolicyInput
	if err := decodeJSON(w, r, &input); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		badRequest(w, err)
		return
	}

	p, err := h.policies.Create(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("policy created",
		zap.String("policy_id", p.ID.String()),
		zap.String("company_id", p.CompanyID.String()))
	_ = utils.WriteCreated(w, p)
}

// HandleUpdatePolicy handles PUT /api/v1/policies/{id}
func (h *PolicyHandler) HandleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
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
	var input policy.PolicyInput
	if err := decodeJSON(w, r, &input); err != nil {
		logger.Warn("failed to parse request body", zap.Error(err))
		badRequest(w, err)
		return
	}

	p, err := h.policies.Update(r.Context(), user, id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("policy updated", zap.String("policy_id", id.String()))
	_ = utils.WriteOK(w, p)
}

// HandleDeletePolicy handles DELETE /api/v1/policies/{id}
func (h *PolicyHandler) HandleDeletePolicy(w http.ResponseWriter, r *http.Request) {
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

	if err := h.policies.Delete(r.Context(), user, id); err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("policy deleted", zap.String("policy_id", id.String()))
	utils.WriteNoContent(w)
}
