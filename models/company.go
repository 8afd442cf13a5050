package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the tenant that owns users, trips, bookings and travel policies
type Company struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email,omitempty" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Address   string    `json:"address,omitempty" db:"address"`
	City      string    `json:"city,omitempty" db:"city"`
	Country   string    `json:"country,omitempty" db:"country"`
	Website   string    `json:"website,omitempty" db:"website"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Company model
func (Company) TableName() string {
	return "companies"
}

// NewCompany creates a new Company instance
func NewCompany(name, email string) *Company {
	now := time.Now()
	return &Company{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
