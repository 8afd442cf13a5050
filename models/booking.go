package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidStatusTransition is returned when a booking status change is not allowed
var ErrInvalidStatusTransition = errors.New("invalid booking status transition")

// BookingDateLayout is the wire and storage layout of booking dates
const BookingDateLayout = "2006-01-02"

// BookingType represents what is being booked
type BookingType string

const (
	BookingTypeFlight BookingType = "flight"
	BookingTypeHotel  BookingType = "hotel"
)

// IsValid reports whether the type is supported
func (t BookingType) IsValid() bool {
	return t == BookingTypeFlight || t == BookingTypeHotel
}

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending         BookingStatus = "pending"
	BookingStatusPendingApproval BookingStatus = "pending_approval"
	BookingStatusApproved        BookingStatus = "approved"
	BookingStatusRejected        BookingStatus = "rejected"
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusCancelled       BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:         {BookingStatusConfirmed, BookingStatusPendingApproval},
	BookingStatusPendingApproval: {BookingStatusApproved, BookingStatusRejected, BookingStatusCancelled},
	BookingStatusApproved:        {BookingStatusConfirmed, BookingStatusCancelled},
}

// IsValid reports whether the status is known
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusPendingApproval, BookingStatusApproved,
		BookingStatusRejected, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusRejected || s == BookingStatusCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking represents a flight or hotel purchase request
type Booking struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CompanyID         uuid.UUID       `json:"company_id" db:"company_id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	TripID            *uuid.UUID      `json:"trip_id,omitempty" db:"trip_id"`
	PolicyID          *uuid.UUID      `json:"policy_id,omitempty" db:"policy_id"` // policy the booking was evaluated against
	Type              BookingType     `json:"type" db:"type"`
	Status            BookingStatus   `json:"status" db:"status"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Currency          string          `json:"currency" db:"currency"`
	BookingDate       time.Time       `json:"booking_date" db:"booking_date"`
	Details           json.RawMessage `json:"details,omitempty" db:"details"`
	IsPolicyCompliant bool            `json:"is_policy_compliant" db:"is_policy_compliant"`
	ComplianceNotes   *string         `json:"compliance_notes,omitempty" db:"compliance_notes"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}

// NewBooking creates a new pending Booking
func NewBooking(companyID, userID uuid.UUID, bookingType BookingType, price decimal.Decimal, currency string, bookingDate time.Time) *Booking {
	now := time.Now()
	return &Booking{
		ID:                uuid.New(),
		CompanyID:         companyID,
		UserID:            userID,
		Type:              bookingType,
		Status:            BookingStatusPending,
		Price:             price,
		Currency:          currency,
		BookingDate:       bookingDate,
		Details:           json.RawMessage("{}"),
		IsPolicyCompliant: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TransitionTo moves the booking to next if the state machine allows it
func (b *Booking) TransitionTo(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, b.Status, next)
	}
	b.Status = next
	b.UpdatedAt = time.Now()
	return nil
}

// BookingDateString returns the booking date in BookingDateLayout
func (b *Booking) BookingDateString() string {
	return b.BookingDate.Format(BookingDateLayout)
}

// IsOwnedBy returns true if the user submitted the booking
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.UserID == userID
}
