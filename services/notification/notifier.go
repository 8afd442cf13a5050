// Package notification tells people about approval work. Delivery transport
// is out of scope; the shipped Notifier writes structured log entries.
package notification

import (
	"context"

	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"go.uber.org/zap"
)

// Notifier delivers approval notifications
type Notifier interface {
	// ApprovalRequested tells the approver a booking awaits their decision
	ApprovalRequested(ctx context.Context, approval *models.Approval, booking *models.Booking, approver *models.User) error

	// ApprovalResolved tells the booking owner about the decision
	ApprovalResolved(ctx context.Context, approval *models.Approval, booking *models.Booking, owner *models.User) error

	// ApprovalCancelled tells the approver a pending request was withdrawn
	ApprovalCancelled(ctx context.Context, approval *models.Approval, booking *models.Booking) error
}

// LogNotifier records notifications in the application log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) ApprovalRequested(ctx context.Context, approval *models.Approval, booking *models.Booking, approver *models.User) error {
	observability.Logger(ctx, n.logger).Info("approval requested",
		zap.String("approval_id", approval.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("recipient", approver.Email),
		zap.String("booking_type", string(booking.Type)),
		zap.String("price", booking.Price.StringFixed(2)),
		zap.String("currency", booking.Currency),
		zap.String("reason", approval.Comments))
	return nil
}

func (n *LogNotifier) ApprovalResolved(ctx context.Context, approval *models.Approval, booking *models.Booking, owner *models.User) error {
	observability.Logger(ctx, n.logger).Info("approval resolved",
		zap.String("approval_id", approval.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("recipient", owner.Email),
		zap.String("outcome", string(approval.Status)),
		zap.String("comments", approval.Comments))
	return nil
}

func (n *LogNotifier) ApprovalCancelled(ctx context.Context, approval *models.Approval, booking *models.Booking) error {
	observability.Logger(ctx, n.logger).Info("approval cancelled",
		zap.String("approval_id", approval.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("approver_id", approval.ApproverID.String()))
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
