package routing

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/policy"
	"github.com/upb/travel-control-plane/models"
)

// Directory looks up candidate approvers. Both methods return nil, nil when
// no candidate exists.
type Directory interface {
	ManagerOf(ctx context.Context, owner *models.User) (*models.User, error)
	FirstAdmin(ctx context.Context, companyID uuid.UUID, excluding uuid.UUID) (*models.User, error)
}

// Source tells how the approver was found.
type Source string

const (
	SourceManager     Source = "manager"
	SourceTravelAdmin Source = "travel_admin"
)

// Decision is the outcome of routing one booking.
type Decision struct {
	Required    bool
	Approver    *models.User
	Source      Source
	Restriction models.ApprovalRestriction
	Approvers   models.ApproverList
	Comments    string
}

// ApproverID returns the designated approver, or uuid.Nil when no approval is required.
func (d *Decision) ApproverID() uuid.UUID {
	if d == nil || d.Approver == nil {
		return uuid.Nil
	}
	return d.Approver.ID
}

// NewApproval builds the pending approval record for the booking.
func (d *Decision) NewApproval(booking *models.Booking, policyID uuid.UUID) *models.Approval {
	return models.NewApproval(
		booking.CompanyID,
		booking.ID,
		policyID,
		d.ApproverID(),
		d.Restriction,
		d.Approvers,
		d.Comments,
	)
}

// RequiresApproval reports whether a verdict needs an approver under restriction.
// "all" routes every booking; "none" and "out-of-policy" route violations only.
func RequiresApproval(result policy.Result, restriction models.ApprovalRestriction) bool {
	if restriction == models.RestrictionAll {
		return true
	}
	return !result.Compliant
}
