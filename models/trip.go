package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TripStatus represents the planning state of a trip
type TripStatus string

const (
	TripStatusDraft     TripStatus = "draft"
	TripStatusPending   TripStatus = "pending"
	TripStatusApproved  TripStatus = "approved"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// IsValid reports whether the status is known
func (s TripStatus) IsValid() bool {
	switch s {
	case TripStatusDraft, TripStatusPending, TripStatusApproved, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// Trip groups the bookings of one business journey
type Trip struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CompanyID   uuid.UUID       `json:"company_id" db:"company_id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Purpose     string          `json:"purpose,omitempty" db:"purpose"`
	Destination string          `json:"destination,omitempty" db:"destination"`
	StartDate   time.Time       `json:"start_date" db:"start_date"`
	EndDate     time.Time       `json:"end_date" db:"end_date"`
	Status      TripStatus      `json:"status" db:"status"`
	TotalCost   decimal.Decimal `json:"total_cost" db:"total_cost"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Trip model
func (Trip) TableName() string {
	return "trips"
}

// NewTrip creates a new draft Trip
func NewTrip(companyID, userID uuid.UUID, name string, start, end time.Time) *Trip {
	now := time.Now()
	return &Trip{
		ID:        uuid.New(),
		CompanyID: companyID,
		UserID:    userID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    TripStatusDraft,
		TotalCost: decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusDraft:    {TripStatusPending, TripStatusApproved, TripStatusCancelled},
	TripStatusPending:  {TripStatusApproved, TripStatusCancelled},
	TripStatusApproved: {TripStatusCompleted, TripStatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsClosed reports whether the trip no longer accepts bookings
func (t *Trip) IsClosed() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}
