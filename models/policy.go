package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClassAllowance represents how a cabin class may be booked
type ClassAllowance string

const (
	ClassAlways      ClassAllowance = "always"
	ClassNever       ClassAllowance = "never"
	ClassConditional ClassAllowance = "conditional" // time-window restricted
)

// IsValid reports whether the allowance is a known tier
func (c ClassAllowance) IsValid() bool {
	switch c {
	case ClassAlways, ClassNever, ClassConditional:
		return true
	}
	return false
}

// ApprovalRestriction selects which bookings require approval
type ApprovalRestriction string

const (
	RestrictionNone        ApprovalRestriction = "none"
	RestrictionOutOfPolicy ApprovalRestriction = "out-of-policy"
	RestrictionAll         ApprovalRestriction = "all"
)

// IsValid reports whether the restriction is a known mode
func (r ApprovalRestriction) IsValid() bool {
	switch r {
	case RestrictionNone, RestrictionOutOfPolicy, RestrictionAll:
		return true
	}
	return false
}

// ApproverDescriptor names one step of an approval chain
type ApproverDescriptor struct {
	Name string `json:"name" validate:"required,max=255"`
	Role string `json:"role" validate:"required,max=100"`
}

// ApproverList is an ordered approval chain stored as JSONB
type ApproverList []ApproverDescriptor

// Value implements driver.Valuer
func (l ApproverList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *ApproverList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = ApproverList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported approver list type %T", src)
	}
	return json.Unmarshal(data, l)
}

// Policy is a company-scoped set of travel rules.
// Nil thresholds mean "no restriction".
type Policy struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CompanyID uuid.UUID `json:"company_id" db:"company_id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`

	// Flight rules
	FlightDynamicPricing        bool             `json:"flight_dynamic_pricing" db:"flight_dynamic_pricing"`
	FlightPriceThresholdPercent *int             `json:"flight_price_threshold_percent,omitempty" db:"flight_price_threshold_percent"`
	FlightMaxAmount             *decimal.Decimal `json:"flight_max_amount,omitempty" db:"flight_max_amount"`
	FlightAdvanceBookingDays    *int             `json:"flight_advance_booking_days,omitempty" db:"flight_advance_booking_days"`
	EconomyClass                ClassAllowance   `json:"economy_class" db:"economy_class"`
	PremiumEconomyClass         ClassAllowance   `json:"premium_economy_class" db:"premium_economy_class"`
	BusinessClass               ClassAllowance   `json:"business_class" db:"business_class"`
	FirstClass                  ClassAllowance   `json:"first_class" db:"first_class"`

	// Hotel rules
	HotelDynamicPricing        bool             `json:"hotel_dynamic_pricing" db:"hotel_dynamic_pricing"`
	HotelPriceThresholdPercent *int             `json:"hotel_price_threshold_percent,omitempty" db:"hotel_price_threshold_percent"`
	HotelMaxAmount             *decimal.Decimal `json:"hotel_max_amount,omitempty" db:"hotel_max_amount"`
	HotelAdvanceBookingDays    *int             `json:"hotel_advance_booking_days,omitempty" db:"hotel_advance_booking_days"`
	HotelMaxStarRating         *int             `json:"hotel_max_star_rating,omitempty" db:"hotel_max_star_rating"`

	// Approval configuration
	ApprovalRestriction ApprovalRestriction `json:"approval_restriction" db:"approval_restriction"`
	Approvers           ApproverList        `json:"approvers" db:"approvers"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Policy model
func (Policy) TableName() string {
	return "policies"
}

// NewPolicy creates a new active Policy with permissive defaults
func NewPolicy(companyID uuid.UUID, name string) *Policy {
	now := time.Now()
	return &Policy{
		ID:                  uuid.New(),
		CompanyID:           companyID,
		Name:                name,
		Active:              true,
		EconomyClass:        ClassAlways,
		PremiumEconomyClass: ClassAlways,
		BusinessClass:       ClassAlways,
		FirstClass:          ClassAlways,
		ApprovalRestriction: RestrictionOutOfPolicy,
		Approvers:           ApproverList{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Restriction returns the configured restriction, defaulting to out-of-policy
func (p *Policy) Restriction() ApprovalRestriction {
	if p == nil || !p.ApprovalRestriction.IsValid() {
		return RestrictionOutOfPolicy
	}
	return p.ApprovalRestriction
}
