package policy

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/upb/travel-control-plane/models"
)

// Engine evaluates bookings against policy rules.
type Engine interface {
	Evaluate(booking Snapshot, rules Rules) (Result, error)
}

// Snapshot is the immutable part of a booking the evaluator looks at.
type Snapshot struct {
	Type        models.BookingType
	Price       decimal.Decimal
	BookingDate string // models.BookingDateLayout or RFC 3339
}

// SnapshotFromBooking builds a snapshot from a stored or pending booking.
func SnapshotFromBooking(b *models.Booking) Snapshot {
	return Snapshot{
		Type:        b.Type,
		Price:       b.Price,
		BookingDate: b.BookingDateString(),
	}
}

// Rules holds the thresholds the evaluator enforces. Nil means unrestricted.
type Rules struct {
	FlightMaxAmount          *decimal.Decimal
	FlightAdvanceBookingDays *int
	HotelMaxAmount           *decimal.Decimal
}

// RulesFromPolicy extracts enforced thresholds. A nil policy yields no rules.
func RulesFromPolicy(p *models.Policy) Rules {
	if p == nil {
		return Rules{}
	}
	return Rules{
		FlightMaxAmount:          p.FlightMaxAmount,
		FlightAdvanceBookingDays: p.FlightAdvanceBookingDays,
		HotelMaxAmount:           p.HotelMaxAmount,
	}
}

// Rule identifies which threshold a violation breaks.
type Rule string

const (
	RuleFlightMaxAmount          Rule = "flight_max_amount"
	RuleFlightAdvanceBookingDays Rule = "flight_advance_booking_days"
	RuleHotelMaxAmount           Rule = "hotel_max_amount"
)

// Violation is one broken rule with its human-readable message.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Result is the compliance verdict.
type Result struct {
	Compliant  bool        `json:"compliant"`
	Violations []Violation `json:"violations"`
}

// Messages returns the violation messages in evaluation order.
func (r Result) Messages() []string {
	msgs := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// Summary joins the violation messages with "; ".
func (r Result) Summary() string {
	return strings.Join(r.Messages(), "; ")
}
