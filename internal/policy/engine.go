package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/upb/travel-control-plane/models"
)

var (
	// ErrInvalidBookingDate is returned when the booking date cannot be parsed
	ErrInvalidBookingDate = errors.New("invalid booking date")

	// ErrUnknownBookingType is returned for booking types without rules
	ErrUnknownBookingType = errors.New("unknown booking type")

	// ErrNegativePrice is returned when the booking price is below zero
	ErrNegativePrice = errors.New("booking price must not be negative")
)

// Clock returns the current time. Evaluations use its calendar date.
type Clock func() time.Time

// Evaluator is the default Engine.
type Evaluator struct {
	clock Clock
}

// NewEvaluator creates an Evaluator. A nil clock uses time.Now.
func NewEvaluator(clock Clock) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{clock: clock}
}

// Evaluate checks the booking against the rules as of the clock's current date.
func (e *Evaluator) Evaluate(booking Snapshot, rules Rules) (Result, error) {
	return Evaluate(booking, rules, e.clock())
}

// Evaluate checks a booking against policy rules on the given day.
// Violations are ordered flight amount, advance days, hotel amount.
func Evaluate(booking Snapshot, rules Rules, today time.Time) (Result, error) {
	if booking.Price.IsNegative() {
		return Result{}, ErrNegativePrice
	}

	violations := make([]Violation, 0)

	switch booking.Type {
	case models.BookingTypeFlight:
		if rules.FlightMaxAmount != nil && booking.Price.GreaterThan(*rules.FlightMaxAmount) {
			violations = append(violations, Violation{
				Rule:    RuleFlightMaxAmount,
				Message: fmt.Sprintf("price exceeds maximum allowed amount of %s", rules.FlightMaxAmount.String()),
			})
		}
		if rules.FlightAdvanceBookingDays != nil {
			lead, err := LeadDays(booking.BookingDate, today)
			if err != nil {
				return Result{}, err
			}
			if lead < *rules.FlightAdvanceBookingDays {
				violations = append(violations, Violation{
					Rule:    RuleFlightAdvanceBookingDays,
					Message: fmt.Sprintf("must be booked %d days in advance", *rules.FlightAdvanceBookingDays),
				})
			}
		}

	case models.BookingTypeHotel:
		if rules.HotelMaxAmount != nil && booking.Price.GreaterThan(*rules.HotelMaxAmount) {
			violations = append(violations, Violation{
				Rule:    RuleHotelMaxAmount,
				Message: fmt.Sprintf("price exceeds maximum allowed amount of %s", rules.HotelMaxAmount.String()),
			})
		}

	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownBookingType, booking.Type)
	}

	return Result{
		Compliant:  len(violations) == 0,
		Violations: violations,
	}, nil
}

const secondsPerDay = 24 * 60 * 60

// LeadDays returns the whole calendar days between today and the booking date.
// Past dates give negative values.
func LeadDays(bookingDate string, today time.Time) (int, error) {
	date, err := ParseBookingDate(bookingDate)
	if err != nil {
		return 0, err
	}
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	// time.Duration overflows beyond ~292 years.
	return int((to.Unix() - from.Unix()) / secondsPerDay), nil
}

// ParseBookingDate accepts models.BookingDateLayout or RFC 3339.
func ParseBookingDate(value string) (time.Time, error) {
	if t, err := time.Parse(models.BookingDateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBookingDate, value)
	}
	return t, nil
}
