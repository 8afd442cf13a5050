package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrApprovalAlreadyResolved is returned when resolving an approval that is no longer pending
var ErrApprovalAlreadyResolved = errors.New("approval already resolved")

// ApprovalStatus represents the decision state of an approval
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusCancelled ApprovalStatus = "cancelled"
)

// IsOutcome reports whether the status is a decision an approver may submit
func (s ApprovalStatus) IsOutcome() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// BookingStatus returns the booking status an outcome cascades to
func (s ApprovalStatus) BookingStatus() BookingStatus {
	switch s {
	case ApprovalStatusApproved:
		return BookingStatusApproved
	case ApprovalStatusRejected:
		return BookingStatusRejected
	case ApprovalStatusCancelled:
		return BookingStatusCancelled
	}
	return BookingStatusPendingApproval
}

// Approval is a routed decision request for one booking under one policy
type Approval struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	CompanyID   uuid.UUID           `json:"company_id" db:"company_id"`
	BookingID   uuid.UUID           `json:"booking_id" db:"booking_id"`
	PolicyID    uuid.UUID           `json:"policy_id" db:"policy_id"`
	ApproverID  uuid.UUID           `json:"approver_id" db:"approver_id"`
	Restriction ApprovalRestriction `json:"restriction" db:"restriction"`
	Approvers   ApproverList        `json:"approvers" db:"approvers"`
	Status      ApprovalStatus      `json:"status" db:"status"`
	Comments    string              `json:"comments,omitempty" db:"comments"`
	ResolvedBy  *uuid.UUID          `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Approval model
func (Approval) TableName() string {
	return "approvals"
}

// NewApproval creates a new pending Approval
func NewApproval(companyID, bookingID, policyID, approverID uuid.UUID, restriction ApprovalRestriction, approvers ApproverList, comments string) *Approval {
	now := time.Now()
	if approvers == nil {
		approvers = ApproverList{}
	}
	return &Approval{
		ID:          uuid.New(),
		CompanyID:   companyID,
		BookingID:   bookingID,
		PolicyID:    policyID,
		ApproverID:  approverID,
		Restriction: restriction,
		Approvers:   approvers,
		Status:      ApprovalStatusPending,
		Comments:    comments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsPending returns true while no decision has been recorded
func (a *Approval) IsPending() bool {
	return a.Status == ApprovalStatusPending
}

// Resolve records a decision. Comments replace the routing summary only when provided.
func (a *Approval) Resolve(actorID uuid.UUID, outcome ApprovalStatus, comments string, at time.Time) error {
	if !a.IsPending() {
		return fmt.Errorf("%w: status is %s", ErrApprovalAlreadyResolved, a.Status)
	}
	a.Status = outcome
	if comments != "" {
		a.Comments = comments
	}
	a.ResolvedBy = &actorID
	a.ResolvedAt = &at
	a.UpdatedAt = at
	return nil
}
