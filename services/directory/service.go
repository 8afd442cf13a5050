// Package directory manages companies and their users.
package directory

import (
	"context"
	"errors"
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

// CreateUserInput describes a new user. CompanyID defaults to the actor's company.
type CreateUserInput struct {
	Email     string          `json:"email" validate:"required,email,max=255"`
	Name      string          `json:"name" validate:"required,max=255"`
	Role      models.UserRole `json:"role" validate:"required,oneof=super_admin travel_admin employee"`
	CompanyID *uuid.UUID      `json:"company_id,omitempty"`
	ManagerID *uuid.UUID      `json:"manager_id,omitempty"`
	Subject   string          `json:"subject,omitempty" validate:"max=255"`
}

// UpdateUserInput carries optional user changes
type UpdateUserInput struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Role      *models.UserRole `json:"role,omitempty" validate:"omitempty,oneof=super_admin travel_admin employee"`
	ManagerID *uuid.UUID       `json:"manager_id,omitempty"`
	// ClearManager removes the manager assignment
	ClearManager bool `json:"clear_manager,omitempty"`
}

// CreateCompanyInput describes a new company
type CreateCompanyInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	City    string `json:"city,omitempty" validate:"max=100"`
	Country string `json:"country,omitempty" validate:"max=100"`
	Website string `json:"website,omitempty" validate:"omitempty,url,max=255"`
}

// DirectoryService handles user and company administration
type DirectoryService struct {
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(users repositories.UserRepository, companies repositories.CompanyRepository, recorder audit.Recorder, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		users:     users,
		companies: companies,
		audit:     recorder,
		logger:    logger,
	}
}

// CurrentUser resolves an authenticated token subject to its user
func (s *DirectoryService) CurrentUser(ctx context.Context, subject string) (*models.User, error) {
	if subject == "" {
		return nil, services.ErrUnauthorized
	}
	u, err := s.users.GetBySubject(ctx, subject)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrUserNotFound, "failed to get user by subject")
	}
	return u, nil
}

// checkManager verifies that managerID names a user of companyID other than userID
func (s *DirectoryService) checkManager(ctx context.Context, managerID, userID, companyID uuid.UUID) error {
	if managerID == userID {
		return services.ErrInvalidManager.Wrapf("a user cannot manage themselves")
	}
	manager, err := s.users.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrInvalidManager.Wrapf("manager %s does not exist", managerID)
		}
		return services.WrapInternal("failed to load manager", err)
	}
	if manager.CompanyID != companyID {
		return services.ErrInvalidManager.Wrapf("manager belongs to another company")
	}
	return nil
}

// CreateUser adds a user to a company the actor administers
func (s *DirectoryService) CreateUser(ctx context.Context, actor *models.User, input CreateUserInput) (*models.User, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	companyID := actor.CompanyID
	if input.CompanyID != nil {
		companyID = *input.CompanyID
	}
	if !actor.CanManageCompany(companyID) {
		return nil, services.ErrInsufficientPermissions
	}
	if input.Role == models.RoleSuperAdmin && !actor.IsSuperAdmin() {
		return nil, services.ErrInsufficientPermissions.Wrapf("only super admins may create super admins")
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, services.FromRepository(err, services.ErrCompanyNotFound, "failed to load company")
	}

	u := models.NewUser(strings.ToLower(strings.TrimSpace(input.Email)), strings.TrimSpace(input.Name), companyID, input.Role)
	if input.Subject != "" {
		u.Subject = input.Subject
	}
	if input.ManagerID != nil {
		if err := s.checkManager(ctx, *input.ManagerID, u.ID, companyID); err != nil {
			return nil, err
		}
		u.ManagerID = input.ManagerID
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateEmail.Wrap(err)
		}
		return nil, services.WrapInternal("failed to create user", err)
	}

	observability.Logger(ctx, s.logger).Info("user created",
		zap.String("user_id", u.ID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("role", string(u.Role)))
	s.record(ctx, audit.UserCreated(u, actor.ID))
	return u, nil
}

// GetUser returns a user of a company the actor belongs to
func (s *DirectoryService) GetUser(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrUserNotFound, "failed to get user")
	}
	if !actor.CanViewCompany(u.CompanyID) {
		return nil, services.ErrUserNotFound
	}
	return u, nil
}

// ListUsers returns the users of a company. uuid.Nil means the actor's company.
func (s *DirectoryService) ListUsers(ctx context.Context, actor *models.User, companyID uuid.UUID) ([]*models.User, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if companyID == uuid.Nil {
		companyID = actor.CompanyID
	}
	if !actor.CanManageCompany(companyID) {
		return nil, services.ErrInsufficientPermissions
	}
	users, err := s.users.GetByCompanyID(ctx, companyID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrUserNotFound, "failed to list users")
	}
	return users, nil
}

// UpdateUser changes a user's name, role or manager
func (s *DirectoryService) UpdateUser(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	u, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageCompany(u.CompanyID) {
		return nil, services.ErrInsufficientPermissions
	}

	if input.Name != nil {
		u.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil && *input.Role != u.Role {
		if (*input.Role == models.RoleSuperAdmin || u.Role == models.RoleSuperAdmin) && !actor.IsSuperAdmin() {
			return nil, services.ErrInsufficientPermissions.Wrapf("only super admins may change super admin roles")
		}
		u.Role = *input.Role
	}
	switch {
	case input.ClearManager:
		u.ManagerID = nil
	case input.ManagerID != nil:
		if err := s.checkManager(ctx, *input.ManagerID, u.ID, u.CompanyID); err != nil {
			return nil, err
		}
		u.ManagerID = input.ManagerID
	}
	u.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, services.FromRepository(err, services.ErrUserNotFound, "failed to update user")
	}
	observability.Logger(ctx, s.logger).Info("user updated", zap.String("user_id", u.ID.String()))
	return u, nil
}

// CreateCompany registers a new tenant. Super admins only.
func (s *DirectoryService) CreateCompany(ctx context.Context, actor *models.User, input CreateCompanyInput) (*models.Company, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if !actor.IsSuperAdmin() {
		return nil, services.ErrInsufficientPermissions
	}
	if err := services.ValidateInput(input); err != nil {
		return nil, err
	}

	c := models.NewCompany(strings.TrimSpace(input.Name), input.Email)
	c.Phone = input.Phone
	c.Address = input.Address
	c.City = input.City
	c.Country = input.Country
	c.Website = input.Website

	if err := s.companies.Create(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateRecord.Wrap(err)
		}
		return nil, services.WrapInternal("failed to create company", err)
	}

	observability.Logger(ctx, s.logger).Info("company created", zap.String("company_id", c.ID.String()))
	s.record(ctx, audit.CompanyCreated(c, actor.ID))
	return c, nil
}

// GetCompany returns a company the actor belongs to
func (s *DirectoryService) GetCompany(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Company, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if !actor.CanViewCompany(id) {
		return nil, services.ErrCompanyNotFound
	}
	c, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrCompanyNotFound, "failed to get company")
	}
	return c, nil
}

// ListCompanies returns every company for super admins and the actor's own otherwise
func (s *DirectoryService) ListCompanies(ctx context.Context, actor *models.User, limit, offset int) ([]*models.Company, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if !actor.IsSuperAdmin() {
		c, err := s.GetCompany(ctx, actor, actor.CompanyID)
		if err != nil {
			return nil, err
		}
		return []*models.Company{c}, nil
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	companies, err := s.companies.List(ctx, limit, offset)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrCompanyNotFound, "failed to list companies")
	}
	return companies, nil
}

func (s *DirectoryService) record(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		observability.Logger(ctx, s.logger).Warn("failed to record audit event",
			zap.String("action", string(log.Action)),
			zap.Error(err))
	}
}
