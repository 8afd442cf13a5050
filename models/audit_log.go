package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionBookingSubmitted  AuditAction = "booking_submitted"
	AuditActionBookingConfirmed  AuditAction = "booking_confirmed"
	AuditActionBookingCancelled  AuditAction = "booking_cancelled"
	AuditActionApprovalRequested AuditAction = "approval_requested"
	AuditActionApprovalResolved  AuditAction = "approval_resolved"
	AuditActionPolicyViolation   AuditAction = "policy_violation"
	AuditActionPolicyCreated     AuditAction = "policy_created"
	AuditActionPolicyUpdated     AuditAction = "policy_updated"
	AuditActionPolicyDeleted     AuditAction = "policy_deleted"
	AuditActionUserCreated       AuditAction = "user_created"
	AuditActionCompanyCreated    AuditAction = "company_created"
	AuditActionTripCreated       AuditAction = "trip_created"
	AuditActionTripUpdated       AuditAction = "trip_updated"
	AuditActionExpenseCreated    AuditAction = "expense_created"
	AuditActionExpenseUpdated    AuditAction = "expense_updated"
	AuditActionExpenseReviewed   AuditAction = "expense_reviewed"
	AuditActionExpenseDeleted    AuditAction = "expense_deleted"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CompanyID    uuid.UUID       `json:"company_id" db:"company_id"`
	UserID       *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // booking, approval, policy, ...
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress    string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string          `json:"user_agent,omitempty" db:"user_agent"`
	RequestID    string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(companyID uuid.UUID, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithUser sets the acting user ID
func (a *AuditLog) WithUser(userID uuid.UUID) *AuditLog {
	a.UserID = &userID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
