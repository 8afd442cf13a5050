package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/services/directory"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// DirectoryService defines the user and company operations the HTTP layer needs
type DirectoryService interface {
	CreateUser(ctx context.Context, actor *models.User, input directory.CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.User, error)
	UpdateUser(ctx context.Context, actor *models.User, id uuid.UUID, input directory.UpdateUserInput) (*models.User, error)
	CreateCompany(ctx context.Context, actor *models.User, input directory.CreateCompanyInput) (*models.Company, error)
	GetCompany(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Company, error)
	ListCompanies(ctx context.Context, actor *models.User, limit, offset int) ([]*models.Company, error)
}

// DirectoryHandler handles user and company HTTP requests
type DirectoryHandler struct {
	directory DirectoryService
	logger    *zap.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(directory DirectoryService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, logger: logger}
}

// HandleMe handles GET /api/v1/users/me
func (h *DirectoryHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleListUsers handles GET /api/v1/users
func (h *DirectoryHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
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

	users, err := h.directory.ListUsers(r.Context(), user, target)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, users)
}

// HandleCreateUser handles POST /api/v1/users
func (h *DirectoryHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input directory.CreateUserInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	created, err := h.directory.CreateUser(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("user created",
		zap.String("user_id", created.ID.String()),
		zap.String("role", string(created.Role)))
	_ = utils.WriteCreated(w, created)
}

// HandleGetUser handles GET /api/v1/users/{id}
func (h *DirectoryHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	found, err := h.directory.GetUser(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, found)
}

// HandleUpdateUser handles PATCH /api/v1/users/{id}
func (h *DirectoryHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
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

	var input directory.UpdateUserInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	updated, err := h.directory.UpdateUser(r.Context(), user, id, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("user updated", zap.String("user_id", id.String()))
	_ = utils.WriteOK(w, updated)
}

// HandleListCompanies handles GET /api/v1/companies
func (h *DirectoryHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	page, err := pagination(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	companies, err := h.directory.ListCompanies(r.Context(), user, page.Limit, page.Offset)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, companies)
}

// HandleCreateCompany handles POST /api/v1/companies
func (h *DirectoryHandler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	logger := requestLogger(r, h.logger)

	var input directory.CreateCompanyInput
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, err)
		return
	}

	company, err := h.directory.CreateCompany(r.Context(), user, input)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("company created", zap.String("company_id", company.ID.String()))
	_ = utils.WriteCreated(w, company)
}

// HandleGetCompany handles GET /api/v1/companies/{id}
func (h *DirectoryHandler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	user := requestUser(w, r)
	if user == nil {
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		badRequest(w, err)
		return
	}

	company, err := h.directory.GetCompany(r.Context(), user, id)
	if err != nil {
		HandleServiceError(w, err, requestLogger(r, h.logger))
		return
	}
	_ = utils.WriteOK(w, company)
}
