package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the role of a user within a company
type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleTravelAdmin UserRole = "travel_admin"
	RoleEmployee    UserRole = "employee"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleTravelAdmin, RoleEmployee:
		return true
	}
	return false
}

// User represents a traveler, approver or administrator
type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	Name      string     `json:"name" db:"name"`
	Subject   string     `json:"-" db:"subject"` // token subject issued by the identity provider
	CompanyID uuid.UUID  `json:"company_id" db:"company_id"`
	Role      UserRole   `json:"role" db:"role"`
	ManagerID *uuid.UUID `json:"manager_id,omitempty" db:"manager_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, name string, companyID uuid.UUID, role UserRole) *User {
	now := time.Now()
	id := uuid.New()
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		Subject:   id.String(),
		CompanyID: companyID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the user is a travel admin or super admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleTravelAdmin || u.Role == RoleSuperAdmin
}

// IsSuperAdmin returns true if the user has platform-wide authority
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// HasManager returns true if a manager is assigned
func (u *User) HasManager() bool {
	return u.ManagerID != nil && *u.ManagerID != uuid.Nil
}

// CanManageCompany returns true if the user may administer the given company.
// Travel admins are limited to their own company.
func (u *User) CanManageCompany(companyID uuid.UUID) bool {
	if u.IsSuperAdmin() {
		return true
	}
	return u.Role == RoleTravelAdmin && u.CompanyID == companyID
}

// CanViewCompany returns true if the user belongs to the company or is a super admin
func (u *User) CanViewCompany(companyID uuid.UUID) bool {
	return u.IsSuperAdmin() || u.CompanyID == companyID
}

// DisplayName returns the name, falling back to email
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
