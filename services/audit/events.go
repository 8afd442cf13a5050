package audit

import (
	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/models"
)

// Resource types recorded on audit logs
const (
	ResourceBooking  = "booking"
	ResourceApproval = "approval"
	ResourcePolicy   = "policy"
	ResourceUser     = "user"
	ResourceCompany  = "company"
	ResourceTrip     = "trip"
	ResourceExpense  = "expense"
)

// BookingSubmitted records a new booking with its compliance verdict
func BookingSubmitted(b *models.Booking, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(b.CompanyID, models.AuditActionBookingSubmitted, ResourceBooking)
	log.WithUser(actorID)
	log.WithResource(b.ID)

	details := map[string]interface{}{
		"type":                b.Type,
		"price":               b.Price.StringFixed(2),
		"currency":            b.Currency,
		"booking_date":        b.BookingDateString(),
		"status":              b.Status,
		"is_policy_compliant": b.IsPolicyCompliant,
	}
	if b.PolicyID != nil {
		details["policy_id"] = b.PolicyID.String()
	}
	if b.TripID != nil {
		details["trip_id"] = b.TripID.String()
	}
	log.WithDetails(details)
	return log
}

// PolicyViolation records the violations found on a booking
func PolicyViolation(b *models.Booking, actorID uuid.UUID, violations []string) *models.AuditLog {
	log := models.NewAuditLog(b.CompanyID, models.AuditActionPolicyViolation, ResourceBooking)
	log.WithUser(actorID)
	log.WithResource(b.ID)

	details := map[string]interface{}{
		"violations": violations,
		"price":      b.Price.StringFixed(2),
		"type":       b.Type,
	}
	if b.PolicyID != nil {
		details["policy_id"] = b.PolicyID.String()
	}
	log.WithDetails(details)
	return log
}

// ApprovalRequested records the approval raised for a booking
func ApprovalRequested(a *models.Approval, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(a.CompanyID, models.AuditActionApprovalRequested, ResourceApproval)
	log.WithUser(actorID)
	log.WithResource(a.ID)
	log.WithDetails(map[string]interface{}{
		"booking_id":  a.BookingID.String(),
		"policy_id":   a.PolicyID.String(),
		"approver_id": a.ApproverID.String(),
		"restriction": a.Restriction,
		"comments":    a.Comments,
	})
	return log
}

// ApprovalResolved records an approver's decision
func ApprovalResolved(a *models.Approval, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(a.CompanyID, models.AuditActionApprovalResolved, ResourceApproval)
	log.WithUser(actorID)
	log.WithResource(a.ID)
	log.WithDetails(map[string]interface{}{
		"booking_id":  a.BookingID.String(),
		"outcome":     a.Status,
		"approver_id": a.ApproverID.String(),
		"override":    actorID != a.ApproverID,
		"comments":    a.Comments,
	})
	return log
}

// BookingConfirmed records a booking reaching confirmed
func BookingConfirmed(b *models.Booking, actorID uuid.UUID) *models.AuditLog {
	return bookingStatusLog(b, actorID, models.AuditActionBookingConfirmed)
}

// BookingCancelled records a booking cancellation
func BookingCancelled(b *models.Booking, actorID uuid.UUID) *models.AuditLog {
	return bookingStatusLog(b, actorID, models.AuditActionBookingCancelled)
}

func bookingStatusLog(b *models.Booking, actorID uuid.UUID, action models.AuditAction) *models.AuditLog {
	log := models.NewAuditLog(b.CompanyID, action, ResourceBooking)
	log.WithUser(actorID)
	log.WithResource(b.ID)
	log.WithDetails(map[string]interface{}{"status": b.Status})
	return log
}

// PolicyCreated records a policy creation
func PolicyCreated(p *models.Policy, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(p.CompanyID, models.AuditActionPolicyCreated, ResourcePolicy)
	log.WithUser(actorID)
	log.WithResource(p.ID)
	log.WithDetails(map[string]interface{}{
		"name":                 p.Name,
		"active":               p.Active,
		"approval_restriction": p.ApprovalRestriction,
	})
	return log
}

// PolicyUpdated records a policy update
func PolicyUpdated(p *models.Policy, actorID uuid.UUID, changes map[string]interface{}) *models.AuditLog {
	log := models.NewAuditLog(p.CompanyID, models.AuditActionPolicyUpdated, ResourcePolicy)
	log.WithUser(actorID)
	log.WithResource(p.ID)
	log.WithDetails(map[string]interface{}{"changes": changes})
	return log
}

// PolicyDeleted records a policy deletion
func PolicyDeleted(companyID, policyID, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(companyID, models.AuditActionPolicyDeleted, ResourcePolicy)
	log.WithUser(actorID)
	log.WithResource(policyID)
	return log
}

// UserCreated records a user creation
func UserCreated(u *models.User, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(u.CompanyID, models.AuditActionUserCreated, ResourceUser)
	log.WithUser(actorID)
	log.WithResource(u.ID)
	log.WithDetails(map[string]interface{}{
		"email": u.Email,
		"role":  u.Role,
	})
	return log
}

// CompanyCreated records a company creation
func CompanyCreated(c *models.Company, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(c.ID, models.AuditActionCompanyCreated, ResourceCompany)
	log.WithUser(actorID)
	log.WithResource(c.ID)
	log.WithDetails(map[string]interface{}{"name": c.Name})
	return log
}

// TripCreated records a trip creation
func TripCreated(t *models.Trip, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(t.CompanyID, models.AuditActionTripCreated, ResourceTrip)
	log.WithUser(actorID)
	log.WithResource(t.ID)
	log.WithDetails(map[string]interface{}{
		"name":        t.Name,
		"destination": t.Destination,
	})
	return log
}

// TripUpdated records a trip change
func TripUpdated(t *models.Trip, actorID uuid.UUID, changes map[string]interface{}) *models.AuditLog {
	log := models.NewAuditLog(t.CompanyID, models.AuditActionTripUpdated, ResourceTrip)
	log.WithUser(actorID)
	log.WithResource(t.ID)
	log.WithDetails(map[string]interface{}{"changes": changes})
	return log
}

// ExpenseCreated records a new expense claim
func ExpenseCreated(e *models.Expense, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(e.CompanyID, models.AuditActionExpenseCreated, ResourceExpense)
	log.WithUser(actorID)
	log.WithResource(e.ID)
	log.WithDetails(map[string]interface{}{
		"trip_id":  e.TripID.String(),
		"amount":   e.Amount.String(),
		"currency": e.Currency,
		"category": string(e.Category),
	})
	return log
}

// ExpenseUpdated records an expense change
func ExpenseUpdated(e *models.Expense, actorID uuid.UUID, changes map[string]interface{}) *models.AuditLog {
	log := models.NewAuditLog(e.CompanyID, models.AuditActionExpenseUpdated, ResourceExpense)
	log.WithUser(actorID)
	log.WithResource(e.ID)
	log.WithDetails(map[string]interface{}{"changes": changes})
	return log
}

// ExpenseReviewed records an admin approving, rejecting or reopening an expense
func ExpenseReviewed(e *models.Expense, actorID uuid.UUID, from models.ExpenseStatus) *models.AuditLog {
	log := models.NewAuditLog(e.CompanyID, models.AuditActionExpenseReviewed, ResourceExpense)
	log.WithUser(actorID)
	log.WithResource(e.ID)
	log.WithDetails(map[string]interface{}{
		"from":   string(from),
		"to":     string(e.Status),
		"amount": e.Amount.String(),
	})
	return log
}

// ExpenseDeleted records an expense removal
func ExpenseDeleted(e *models.Expense, actorID uuid.UUID) *models.AuditLog {
	log := models.NewAuditLog(e.CompanyID, models.AuditActionExpenseDeleted, ResourceExpense)
	log.WithUser(actorID)
	log.WithResource(e.ID)
	log.WithDetails(map[string]interface{}{
		"title":  e.Title,
		"amount": e.Amount.String(),
	})
	return log
}
